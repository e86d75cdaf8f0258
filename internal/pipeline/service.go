package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zwickfi/zwickfi/internal/jobs"
	"github.com/zwickfi/zwickfi/internal/logger"
	"github.com/zwickfi/zwickfi/internal/metrics"
)

// ErrRunInProgress is returned when a sync is requested while another one is
// still running in this process.
var ErrRunInProgress = errors.New("a sync is already in progress")

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Connect      Connector
	History      HistoryReader
	Orchestrator *Orchestrator
	Options      Options

	// Store is optional; runs are not recorded without it.
	Store   jobs.JobStore
	Metrics *metrics.Metrics
}

// Service runs syncs one at a time and records them.
type Service struct {
	connect Connector
	history HistoryReader
	orch    *Orchestrator
	opts    Options
	store   jobs.JobStore
	metrics *metrics.Metrics
	now     func() time.Time

	running atomic.Bool
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	opts := cfg.Options.withDefaults()
	return &Service{
		connect: cfg.Connect,
		history: cfg.History,
		orch:    cfg.Orchestrator,
		opts:    opts,
		store:   cfg.Store,
		metrics: cfg.Metrics,
		now:     opts.Now,
	}
}

// Running reports whether a sync is in progress.
func (s *Service) Running() bool {
	return s.running.Load()
}

// Run creates a job for trigger and executes it synchronously. The returned
// job reflects the final state even when err is non-nil, except for
// ErrRunInProgress where no job is created.
func (s *Service) Run(ctx context.Context, trigger jobs.Trigger) (*jobs.SyncJob, error) {
	if s.Running() {
		return nil, ErrRunInProgress
	}
	now := s.now()
	job := &jobs.SyncJob{
		JobID:     uuid.New().String(),
		Trigger:   trigger,
		Status:    jobs.JobStatusPending,
		CreatedAt: now,
		RunDate:   now,
	}
	err := s.Execute(ctx, job)
	if errors.Is(err, ErrRunInProgress) {
		return nil, err
	}
	return job, err
}

// Execute runs the pipeline for job, updating it in place. It satisfies
// jobs.JobHandler so a queue can drive it.
func (s *Service) Execute(ctx context.Context, job *jobs.SyncJob) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	defer s.running.Store(false)

	log := logger.FromContext(ctx).With().Str("run_id", job.JobID).Logger()
	ctx = logger.WithContext(ctx, log)

	started := s.now()
	if job.RunDate.IsZero() {
		job.RunDate = started
	}
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &started
	job.CompletedAt = nil
	job.Error = ""
	job.Loads = nil
	s.save(ctx, job)

	log.Info().Str("trigger", string(job.Trigger)).Msg("Starting sync")
	err := s.run(ctx, job)

	finished := s.now()
	job.CompletedAt = &finished
	if err != nil {
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
		log.Error().Err(err).Dur("duration", finished.Sub(started)).Msg("Sync failed")
	} else {
		job.Status = jobs.JobStatusCompleted
		log.Info().Dur("duration", finished.Sub(started)).Int("tables", len(job.Loads)).Msg("Sync finished")
	}
	s.metrics.ObserveRun(err, started, finished)
	s.save(ctx, job)
	return err
}

func (s *Service) run(ctx context.Context, job *jobs.SyncJob) error {
	src, err := s.connect(ctx)
	if err != nil {
		return fmt.Errorf("Service.Execute: connecting: %w", err)
	}

	state := &PipelineState{RunID: job.JobID, RunDate: job.RunDate}
	p := NewSyncPipeline(src, s.history, s.orch, s.opts)
	err = p.Execute(ctx, state)
	job.Loads = state.Loads
	return err
}

func (s *Service) save(ctx context.Context, job *jobs.SyncJob) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to record run")
	}
}
