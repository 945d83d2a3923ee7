package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eventprosnz/eventpros-backend/pkg/logger"
	"github.com/eventprosnz/eventpros-backend/pkg/metrics"
)

const (
	defaultInterval  = time.Hour
	defaultJobBudget = 10 * time.Minute
)

// ServiceParams configure the cron service. JobTimeout caps a single job
// run; zero uses the default budget.
type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service runs every registered job once per interval while holding the
// cluster-wide lock. A failing job never stops the rest of the cycle.
type Service struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	budget   time.Duration
}

// CycleReport summarizes one locked cycle.
type CycleReport struct {
	Skipped bool
	Ran     []string
	Failed  map[string]error
}

// Err joins job failures, or returns nil when every job succeeded.
func (r CycleReport) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, name := range r.Ran {
		if err, ok := r.Failed[name]; ok {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	var jobs []Job
	if params.Registry != nil {
		jobs = params.Registry.Jobs()
	}
	s := &Service{
		logg:     params.Logger,
		jobs:     jobs,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
		budget:   params.JobTimeout,
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.budget <= 0 {
		s.budget = defaultJobBudget
	}
	return s, nil
}

// RunOnce executes a single locked cycle.
func (s *Service) RunOnce(ctx context.Context) (CycleReport, error) {
	return s.runCycle(ctx)
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if report, err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle aborted", err)
		} else if jobErr := report.Err(); jobErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "failed_jobs", len(report.Failed)), "cron cycle finished with failures")
		}

		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) runCycle(ctx context.Context) (report CycleReport, err error) {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("lock acquire: %w", err)
	}
	if !held {
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		report.Skipped = true
		return report, nil
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	started := time.Now()
	report.Failed = map[string]error{}
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			break
		}
		report.Ran = append(report.Ran, job.Name())
		if jobErr := s.runJob(ctx, job); jobErr != nil {
			report.Failed[job.Name()] = jobErr
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":        len(report.Ran),
		"failed":      len(report.Failed),
		"duration_ms": time.Since(started).Milliseconds(),
	}), "cron cycle complete")
	return report, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	runCtx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	start := time.Now()
	err := job.Run(runCtx)
	took := time.Since(start)
	s.metrics.ObserveRun(job.Name(), took, err)

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "job failed", err)
		return err
	}
	s.logg.Info(ctx, "job completed")
	return nil
}
