package reportshandler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/reports"
	"perfeval/internal/platform/jobs"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *reports.Service
	Perms   middleware.PermissionStore
	Log     *zap.Logger
	now     func() time.Time
}

func NewHandler(service *reports.Service, perms middleware.PermissionStore, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Service: service, Perms: perms, Log: log, now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermReportsRead, h.Perms))
		r.Get("/overview", h.handleOverview)
		r.Get("/trend/{employeeID}", h.handleTrend)
		r.Get("/jobs", h.handleListJobRuns)
		r.Get("/jobs/{runID}", h.handleGetJobRun)
	})
}

// handleOverview defaults to the previous calendar month, the one the
// scheduled evaluation job covers.
func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	defMonth, defYear := jobs.PreviousMonth(h.now())
	month, monthErr := shared.QueryInt(r, "month", defMonth)
	year, yearErr := shared.QueryInt(r, "year", defYear)
	v := shared.NewValidator()
	if monthErr != nil {
		v.Add("month", monthErr.Error())
	} else {
		v.IntRange("month", month, 1, 12)
	}
	if yearErr != nil {
		v.Add("year", yearErr.Error())
	} else {
		v.IntRange("year", year, 2000, 2100)
	}
	if v.Reject(w, requestID) {
		return
	}

	overview, err := h.Service.Overview(r.Context(), user.TenantID, month, year)
	if err != nil {
		h.Log.Error("overview failed", zap.Int("month", month), zap.Int("year", year), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "overview_failed", "failed to build overview", requestID)
		return
	}
	api.Success(w, overview, requestID)
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	months, err := shared.QueryInt(r, "months", reports.DefaultTrendMonths)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_months", err.Error(), requestID)
		return
	}
	points, err := h.Service.ScoreTrend(r.Context(), user.TenantID, chi.URLParam(r, "employeeID"), months)
	if err != nil {
		h.Log.Error("score trend failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "trend_failed", "failed to load score trend", requestID)
		return
	}
	api.Success(w, points, requestID)
}

func (h *Handler) handleListJobRuns(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 50, 200)

	filter := reports.JobRunFilter{
		JobType: strings.TrimSpace(r.URL.Query().Get("jobType")),
		Status:  strings.TrimSpace(r.URL.Query().Get("status")),
	}
	v := shared.NewValidator()
	v.Enum("status", filter.Status, []string{jobs.StatusRunning, jobs.StatusCompleted, jobs.StatusFailed}, "must be running, completed or failed")
	if raw := strings.TrimSpace(r.URL.Query().Get("startedFrom")); raw != "" {
		if from, ok := v.Date("startedFrom", raw); ok {
			filter.StartedFrom = &from
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("startedTo")); raw != "" {
		if to, ok := v.Date("startedTo", raw); ok {
			end := to.Add(24*time.Hour - time.Nanosecond)
			filter.StartedTo = &end
		}
	}
	if filter.StartedFrom != nil && filter.StartedTo != nil {
		v.DateOrder("startedFrom", *filter.StartedFrom, "startedTo", *filter.StartedTo)
	}
	if v.Reject(w, requestID) {
		return
	}

	runs, total, err := h.Service.JobRuns(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		h.Log.Error("job run list failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", requestID)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, runs, requestID)
}

func (h *Handler) handleGetJobRun(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	run, err := h.Service.JobRun(r.Context(), user.TenantID, chi.URLParam(r, "runID"))
	if err != nil {
		if errors.Is(err, reports.ErrJobRunNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "job run not found", requestID)
			return
		}
		h.Log.Error("job run lookup failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "job_run_failed", "failed to load job run", requestID)
		return
	}
	api.Success(w, run, requestID)
}
