package evaluationshandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/core"
	"perfeval/internal/domain/evaluation"
	"perfeval/internal/domain/scoring"
	"perfeval/internal/platform/jobs"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

const generateEndpoint = "evaluations.generate"

type JobRunner interface {
	RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error)
}

type IdempotencyStore interface {
	Check(ctx context.Context, tenantID, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error)
	Save(ctx context.Context, tenantID, userID, endpoint, key, requestHash string, response json.RawMessage) error
}

type Handler struct {
	Service     *evaluation.Service
	Employees   *core.Service
	Jobs        JobRunner
	Idempotency IdempotencyStore
	Perms       middleware.PermissionStore
	Audit       shared.Auditor
	Log         *zap.Logger
}

func NewHandler(service *evaluation.Service, employees *core.Service, jobRunner JobRunner, idem IdempotencyStore, perms middleware.PermissionStore, auditor shared.Auditor, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Service:     service,
		Employees:   employees,
		Jobs:        jobRunner,
		Idempotency: idem,
		Perms:       perms,
		Audit:       auditor,
		Log:         log,
	}
}

type generateRequest struct {
	Month   int    `json:"month"`
	Year    int    `json:"year"`
	Profile string `json:"profile,omitempty"`
}

type manualRequest struct {
	EmployeeID string `json:"employeeId"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	Score      *int   `json:"score"`
	Comments   string `json:"comments"`
}

type previewRequest struct {
	Profile string               `json:"profile,omitempty"`
	AsOf    string               `json:"asOf,omitempty"`
	Tasks   []scoring.TaskRecord `json:"tasks"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/evaluations", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermEvaluationsWrite, h.Perms)).Post("/", h.handleCreateManual)
		r.With(middleware.RequirePermission(auth.PermEvaluationsGenerate, h.Perms)).Post("/generate-automated", h.handleGenerate)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/dashboard", h.handleDashboard)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/profiles", h.handleProfiles)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Post("/preview", h.handlePreview)
		r.Route("/{evaluationID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/", h.handleGet)
			r.With(middleware.RequirePermission(auth.PermEvaluationsWrite, h.Perms)).Delete("/", h.handleDelete)
			r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/report", h.handleReport)
		})
	})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	var payload generateRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.IntRange("month", payload.Month, 1, 12)
	v.IntRange("year", payload.Year, evaluation.MinYear, evaluation.MaxYear)
	if v.Reject(w, requestID) {
		return
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	requestHash := middleware.RequestHash(body)
	if idempotencyKey != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.TenantID, user.UserID, generateEndpoint, idempotencyKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different payload", requestID)
			return
		}
		if err != nil {
			h.Log.Warn("idempotency check failed", zap.Error(err))
		}
		if found {
			api.Success(w, stored, requestID)
			return
		}
	}

	details, err := h.Jobs.RunNow(r.Context(), jobs.JobGenerateEvaluations, user.TenantID, func(ctx context.Context) (any, error) {
		return h.Service.GenerateAutomated(ctx, user.TenantID, user.UserID, payload.Month, payload.Year, payload.Profile)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, _ := details.(evaluation.BatchResult)
	shared.RecordAudit(r.Context(), h.Audit, h.Log, user, audit.ActionEvaluationGenerate, audit.EntityEvaluationBatch, result.BatchID, nil, result)

	if idempotencyKey != "" && h.Idempotency != nil {
		stored, err := json.Marshal(result)
		if err != nil {
			h.Log.Warn("generate response marshal failed", zap.Error(err))
		} else if err := h.Idempotency.Save(r.Context(), user.TenantID, user.UserID, generateEndpoint, idempotencyKey, requestHash, stored); err != nil {
			h.Log.Warn("idempotency save failed", zap.Error(err))
		}
	}
	api.Success(w, result, requestID)
}

func (h *Handler) handleCreateManual(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload manualRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "is required")
	v.IntRange("month", payload.Month, 1, 12)
	v.IntRange("year", payload.Year, evaluation.MinYear, evaluation.MaxYear)
	if payload.Score == nil {
		v.Add("score", "is required")
	} else {
		v.IntRange("score", *payload.Score, 0, 100)
	}
	if v.Reject(w, requestID) {
		return
	}

	ev, err := h.Service.CreateManual(r.Context(), user.TenantID, user.UserID, evaluation.ManualInput{
		EmployeeID: payload.EmployeeID,
		Month:      payload.Month,
		Year:       payload.Year,
		Score:      *payload.Score,
		Comments:   payload.Comments,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, h.Log, user, audit.ActionEvaluationCreate, audit.EntityEvaluation, ev.ID, nil, ev)
	api.Created(w, ev, requestID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 100, 500)

	month, err := shared.QueryInt(r, "month", 0)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_month", err.Error(), requestID)
		return
	}
	year, err := shared.QueryInt(r, "year", 0)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_year", err.Error(), requestID)
		return
	}
	filter := evaluation.Filter{
		EmployeeID: strings.TrimSpace(r.URL.Query().Get("employeeId")),
		Month:      month,
		Year:       year,
		Type:       evaluation.Type(strings.TrimSpace(r.URL.Query().Get("type"))),
	}
	if filter.Type != "" && !evaluation.ValidType(filter.Type) {
		api.Fail(w, http.StatusBadRequest, "invalid_type", "type must be automated or manual", requestID)
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
		h.fail(w, r, err)
		return
	}
	total, err := h.Service.Count(r.Context(), user.TenantID, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, list, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	api.Success(w, ev, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	ev, err := h.Service.Delete(r.Context(), user.TenantID, chi.URLParam(r, "evaluationID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, h.Log, user, audit.ActionEvaluationDelete, audit.EntityEvaluation, ev.ID, ev, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if _, ok := h.loadVisible(w, r); !ok {
		return
	}
	data, ev, err := h.Service.ExportReport(r.Context(), user.TenantID, chi.URLParam(r, "evaluationID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, h.Log, user, audit.ActionEvaluationExport, audit.EntityEvaluation, ev.ID, nil, nil)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"evaluation-"+ev.ID+".pdf\"")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.Log.Warn("report write failed", zap.String("evaluationId", ev.ID), zap.Error(err))
	}
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	days, err := shared.QueryInt(r, "days", 0)
	if err != nil || days < 0 || days > 366 {
		api.Fail(w, http.StatusBadRequest, "invalid_days", "days must be between 1 and 366", requestID)
		return
	}
	employeeID := strings.TrimSpace(r.URL.Query().Get("employeeId"))
	if employeeID == "" || !auth.IsPrivileged(user.RoleName) {
		selfID, ok := h.selfEmployeeID(w, r, user)
		if !ok {
			return
		}
		employeeID = selfID
	}

	dashboard, err := h.Service.Dashboard(r.Context(), user.TenantID, employeeID, time.Time{}, days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, dashboard, requestID)
}

func (h *Handler) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, defaultName := h.Service.Profiles()
	api.Success(w, map[string]any{
		"default":  defaultName,
		"profiles": profiles,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload previewRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	var asOf time.Time
	if strings.TrimSpace(payload.AsOf) != "" {
		asOf, _ = v.Date("asOf", payload.AsOf)
	}
	for i, rec := range payload.Tasks {
		if !validStatus(rec.Status) {
			v.Add("tasks["+strconv.Itoa(i)+"].status", "must be pending, in-progress or completed")
		}
	}
	if v.Reject(w, requestID) {
		return
	}

	result, err := h.Service.Preview(payload.Tasks, payload.Profile, asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, result, requestID)
}

func validStatus(s scoring.Status) bool {
	return s == scoring.StatusPending || s == scoring.StatusInProgress || s == scoring.StatusCompleted
}

func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (evaluation.Evaluation, bool) {
	user, _ := middleware.GetUser(r.Context())
	ev, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "evaluationID"))
	if err != nil {
		h.fail(w, r, err)
		return evaluation.Evaluation{}, false
	}
	if auth.IsPrivileged(user.RoleName) {
		return ev, true
	}
	selfID, ok := h.selfEmployeeID(w, r, user)
	if !ok {
		return evaluation.Evaluation{}, false
	}
	if ev.EmployeeID != selfID {
		api.Fail(w, http.StatusNotFound, "not_found", "evaluation not found", middleware.GetRequestID(r.Context()))
		return evaluation.Evaluation{}, false
	}
	return ev, true
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
	case errors.Is(err, evaluation.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "evaluation not found", requestID)
	case errors.Is(err, core.ErrNotFound):
		api.Fail(w, http.StatusBadRequest, "invalid_employee", "employee not found", requestID)
	case errors.Is(err, evaluation.ErrInvalidPeriod):
		api.Fail(w, http.StatusBadRequest, "invalid_period", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrInvalidScore), errors.Is(err, evaluation.ErrInvalid):
		api.Fail(w, http.StatusBadRequest, "invalid_evaluation", err.Error(), requestID)
	case errors.Is(err, scoring.ErrUnknownProfile):
		api.Fail(w, http.StatusBadRequest, "unknown_profile", err.Error(), requestID)
	default:
		h.Log.Error("evaluation request failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "evaluation_request_failed", "evaluation request failed", requestID)
	}
}
