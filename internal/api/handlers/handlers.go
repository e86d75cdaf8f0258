package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/zwickfi/zwickfi/internal/api/middleware"
	"github.com/zwickfi/zwickfi/internal/jobs"
	"github.com/zwickfi/zwickfi/internal/logger"
	"github.com/zwickfi/zwickfi/internal/pipeline"
)

// TaskExecuted is the plain-text body of a successful synchronous run.
const TaskExecuted = "Task executed"

// Runner executes one sync synchronously. *pipeline.Service satisfies it.
type Runner interface {
	Run(ctx context.Context, trigger jobs.Trigger) (*jobs.SyncJob, error)
}

// SyncHandler triggers pipeline runs.
type SyncHandler struct {
	runner    Runner
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewSyncHandler creates a new sync handler. publisher may be nil, which
// disables POST /api/runs.
func NewSyncHandler(runner Runner, publisher jobs.Publisher, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		runner:    runner,
		publisher: publisher,
		log:       log,
	}
}

// RunNow handles GET /: it runs the whole pipeline and answers once it is done.
func (h *SyncHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	job, err := h.runner.Run(ctx, jobs.TriggerHTTP)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		middleware.WriteError(w, http.StatusConflict, "A sync is already in progress")
		return
	}
	if err != nil {
		ev := log.Error().Err(err)
		if job != nil {
			ev = ev.Str("run_id", job.JobID)
		}
		ev.Msg("Sync failed")
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Run-ID", job.JobID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(TaskExecuted))
}

// Enqueue handles POST /api/runs by queueing a background sync.
func (h *SyncHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Background runs are disabled")
		return
	}

	maxRetries := 0
	if v := r.URL.Query().Get("max_retries"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "max_retries must be a non-negative integer")
			return
		}
		maxRetries = n
	}

	job := &jobs.SyncJob{Trigger: jobs.TriggerQueue, MaxRetries: maxRetries}
	if err := h.publisher.PublishSync(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue sync")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue sync")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.JobID,
		"status": job.Status,
	})
}

// RunsHandler exposes run history.
type RunsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(store jobs.JobStore, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		store: store,
		log:   log,
	}
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request, runID string) {
	job, err := h.store.GetJob(r.Context(), runID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Trigger: jobs.Trigger(query.Get("trigger")),
		Status:  jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	runs, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// Health handles GET /health
func Health(running func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}
		if running != nil {
			body["sync_running"] = running()
		}
		middleware.WriteJSON(w, http.StatusOK, body)
	}
}
