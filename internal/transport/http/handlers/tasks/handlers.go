package taskshandler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/core"
	"perfeval/internal/domain/scoring"
	"perfeval/internal/domain/tasks"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service   *tasks.Service
	Employees *core.Service
	Perms     middleware.PermissionStore
	Audit     shared.Auditor
	Log       *zap.Logger
}

func NewHandler(service *tasks.Service, employees *core.Service, perms middleware.PermissionStore, auditor shared.Auditor, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Service: service, Employees: employees, Perms: perms, Audit: auditor, Log: log}
}

type createRequest struct {
	EmployeeID  string `json:"employeeId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	Deadline    string `json:"deadline"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type updateRequest struct {
	Percentage  *int     `json:"percentage"`
	Comment     string   `json:"comment"`
	Attachments []string `json:"attachments"`
}

type ratingRequest struct {
	Rating *float64 `json:"rating"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermTasksRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermTasksWrite, h.Perms)).Post("/", h.handleCreate)
		r.Route("/{taskID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermTasksRead, h.Perms)).Get("/", h.handleGet)
			r.With(middleware.RequirePermission(auth.PermTasksWrite, h.Perms)).Delete("/", h.handleDelete)
			r.With(middleware.RequirePermission(auth.PermTasksUpdate, h.Perms)).Put("/status", h.handleStatus)
			r.With(middleware.RequirePermission(auth.PermTasksUpdate, h.Perms)).Post("/updates", h.handleProgressUpdate)
			r.With(middleware.RequirePermission(auth.PermTasksRate, h.Perms)).Put("/rating", h.handleRating)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 100, 500)

	filter := tasks.Filter{
		EmployeeID: strings.TrimSpace(r.URL.Query().Get("employeeId")),
		Status:     scoring.Status(strings.TrimSpace(r.URL.Query().Get("status"))),
	}
	if filter.Status != "" && !tasks.ValidStatus(filter.Status) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "status must be pending, in-progress or completed", requestID)
		return
	}
	if !auth.IsPrivileged(user.RoleName) {
		selfID, ok := h.selfEmployeeID(w, r, user)
		if !ok {
			return
		}
		filter.EmployeeID = selfID
	}

	list, err := h.Service.List(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		h.Log.Error("task list failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "task_list_failed", "failed to list tasks", requestID)
		return
	}
	total, err := h.Service.Count(r.Context(), user.TenantID, filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "task_list_failed", "failed to list tasks", requestID)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, list, requestID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload createRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "is required")
	v.Required("title", payload.Title, "is required")
	v.Enum("difficulty", payload.Difficulty, []string{string(scoring.DifficultyLow), string(scoring.DifficultyMedium), string(scoring.DifficultyHigh)}, "must be low, medium or high")
	var deadline *time.Time
	if strings.TrimSpace(payload.Deadline) != "" {
		if parsed, ok := v.Date("deadline", payload.Deadline); ok {
			deadline = &parsed
		}
	}
	if v.Reject(w, requestID) {
		return
	}

	if _, err := h.Employees.Get(r.Context(), user.TenantID, payload.EmployeeID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			api.Fail(w, http.StatusBadRequest, "invalid_employee", "employee not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "task_create_failed", "failed to create task", requestID)
		return
	}

	task, err := h.Service.Create(r.Context(), user.TenantID, user.UserID, tasks.CreateInput{
		EmployeeID:  payload.EmployeeID,
		Title:       payload.Title,
		Description: payload.Description,
		Difficulty:  scoring.Difficulty(strings.ToLower(strings.TrimSpace(payload.Difficulty))),
		Deadline:    deadline,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, h.Log, user, audit.ActionTaskCreate, audit.EntityTask, task.ID, nil, task)
	api.Created(w, task, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	api.Success(w, task, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	taskID := chi.URLParam(r, "taskID")
	if err := h.Service.Delete(r.Context(), user.TenantID, taskID); err != nil {
		h.fail(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, h.Log, user, audit.ActionTaskDelete, audit.EntityTask, taskID, nil, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload statusRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	to := scoring.Status(strings.TrimSpace(payload.Status))
	if !tasks.ValidStatus(to) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "status must be pending, in-progress or completed", requestID)
		return
	}
	if _, ok := h.loadVisible(w, r); !ok {
		return
	}

	before, after, err := h.Service.UpdateStatus(r.Context(), user.TenantID, chi.URLParam(r, "taskID"), to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if before.Status != after.Status {
		shared.RecordAudit(r.Context(), h.Audit, h.Log, user, audit.ActionTaskStatus, audit.EntityTask, after.ID,
			map[string]any{"status": before.Status}, map[string]any{"status": after.Status})
	}
	api.Success(w, after, requestID)
}

func (h *Handler) handleProgressUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload updateRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	if payload.Percentage == nil {
		v.Add("percentage", "is required")
	} else {
		v.IntRange("percentage", *payload.Percentage, 0, tasks.MaxProgress)
	}
	if v.Reject(w, requestID) {
		return
	}

	employeeID, ok := h.selfEmployeeID(w, r, user)
	if !ok {
		return
	}
	task, update, err := h.Service.AddProgressUpdate(r.Context(), user.TenantID, chi.URLParam(r, "taskID"), employeeID, user.UserID, tasks.UpdateInput{
		Percentage:  *payload.Percentage,
		Comment:     payload.Comment,
		Attachments: payload.Attachments,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, h.Log, user, audit.ActionTaskUpdate, audit.EntityTask, task.ID, nil, update)
	api.Created(w, map[string]any{"task": task, "update": update}, requestID)
}

func (h *Handler) handleRating(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload ratingRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	if payload.Rating == nil {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "rating", Reason: "is required"}})
		return
	}

	taskID := chi.URLParam(r, "taskID")
	task, err := h.Service.SetRating(r.Context(), user.TenantID, taskID, *payload.Rating)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, h.Log, user, audit.ActionTaskRate, audit.EntityTask, taskID, nil, map[string]any{"rating": *payload.Rating})
	api.Success(w, task, requestID)
}

// loadVisible fetches the routed task, hiding other employees' tasks from
// non-privileged callers.
func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (tasks.Task, bool) {
	user, _ := middleware.GetUser(r.Context())
	task, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "taskID"))
	if err != nil {
		h.fail(w, r, err)
		return tasks.Task{}, false
	}
	if auth.IsPrivileged(user.RoleName) {
		return task, true
	}
	selfID, ok := h.selfEmployeeID(w, r, user)
	if !ok {
		return tasks.Task{}, false
	}
	if task.EmployeeID != selfID {
		api.Fail(w, http.StatusNotFound, "not_found", "task not found", middleware.GetRequestID(r.Context()))
		return tasks.Task{}, false
	}
	return task, true
}

func (h *Handler) selfEmployeeID(w http.ResponseWriter, r *http.Request, user auth.UserContext) (string, bool) {
	emp, err := h.Employees.GetByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			api.Fail(w, http.StatusForbidden, "forbidden", "no employee record for this user", middleware.GetRequestID(r.Context()))
			return "", false
		}
		h.Log.Error("employee lookup failed", zap.String("userId", user.UserID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "employee_lookup_failed", "failed to resolve employee", middleware.GetRequestID(r.Context()))
		return "", false
	}
	return emp.ID, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, tasks.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "task not found", requestID)
	case errors.Is(err, tasks.ErrInvalid):
		api.Fail(w, http.StatusBadRequest, "invalid_task", err.Error(), requestID)
	case errors.Is(err, tasks.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, tasks.ErrTaskClosed):
		api.Fail(w, http.StatusConflict, "task_closed", "task is completed", requestID)
	case errors.Is(err, tasks.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "only the assignee may update this task", requestID)
	default:
		h.Log.Error("task request failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "task_request_failed", "task request failed", requestID)
	}
}
