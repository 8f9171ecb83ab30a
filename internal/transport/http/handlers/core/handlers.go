package corehandler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/core"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *core.Service
	Perms   middleware.PermissionStore
	Audit   shared.Auditor
	Log     *zap.Logger
}

func NewHandler(service *core.Service, perms middleware.PermissionStore, auditor shared.Auditor, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Service: service, Perms: perms, Audit: auditor, Log: log}
}

type employeePayload struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Position   string `json:"position"`
	Status     string `json:"status"`
	Password   string `json:"password,omitempty"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateEmployee)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleGetEmployee)
			r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/", h.handleUpdateEmployee)
		})
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var employee *core.Employee
	emp, err := h.Service.GetByUserID(r.Context(), user.TenantID, user.UserID)
	switch {
	case err == nil:
		employee = &emp
	case !errors.Is(err, core.ErrNotFound):
		h.Log.Warn("employee lookup failed", zap.String("userId", user.UserID), zap.Error(err))
	}

	api.Success(w, map[string]any{
		"user": map[string]string{
			"id":       user.UserID,
			"tenantId": user.TenantID,
			"roleId":   user.RoleID,
			"role":     user.RoleName,
		},
		"employee": employee,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 100, 500)
	filter := core.Filter{
		Status:     strings.TrimSpace(r.URL.Query().Get("status")),
		Department: strings.TrimSpace(r.URL.Query().Get("department")),
	}

	employees, err := h.Service.List(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		h.Log.Error("employee list failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	total, err := h.Service.Count(r.Context(), user.TenantID, filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}

	for i := range employees {
		core.FilterEmployeeFields(&employees[i], user, employees[i].UserID == user.UserID)
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	emp, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "employeeID"))
	if err != nil {
		h.failLookup(w, r, err)
		return
	}
	core.FilterEmployeeFields(&emp, user, emp.UserID == user.UserID)
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload employeePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("firstName", payload.FirstName, "is required")
	v.Required("email", payload.Email, "is required")
	v.Enum("status", payload.Status, []string{core.EmployeeStatusActive, core.EmployeeStatusInactive}, "must be active or inactive")
	if v.Reject(w, requestID) {
		return
	}

	emp, err := h.Service.Create(r.Context(), user.TenantID, payload.employee(""), payload.Password)
	if err != nil {
		h.failWrite(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, h.Log, user, audit.ActionEmployeeCreate, audit.EntityEmployee, emp.ID, nil, emp)
	api.Created(w, emp, requestID)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	var payload employeePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	before, err := h.Service.Get(r.Context(), user.TenantID, employeeID)
	if err != nil {
		h.failLookup(w, r, err)
		return
	}
	after, err := h.Service.Update(r.Context(), user.TenantID, payload.employee(employeeID))
	if err != nil {
		h.failWrite(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, h.Log, user, audit.ActionEmployeeUpdate, audit.EntityEmployee, employeeID, before, after)
	api.Success(w, after, requestID)
}

func (p employeePayload) employee(id string) core.Employee {
	return core.Employee{
		ID:         id,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Email:      p.Email,
		Department: p.Department,
		Position:   p.Position,
		Status:     p.Status,
	}
}

func (h *Handler) failLookup(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	h.Log.Error("employee lookup failed", zap.Error(err))
	api.Fail(w, http.StatusInternalServerError, "employee_lookup_failed", "failed to load employee", middleware.GetRequestID(r.Context()))
}

func (h *Handler) failWrite(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, core.ErrInvalid):
		api.Fail(w, http.StatusBadRequest, "invalid_employee", err.Error(), requestID)
	case errors.Is(err, core.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already in use", requestID)
	case errors.Is(err, core.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
	default:
		h.Log.Error("employee write failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "employee_write_failed", "failed to save employee", requestID)
	}
}
