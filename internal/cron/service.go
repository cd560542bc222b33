package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/bairdservice/baird-backend/pkg/logger"
	"github.com/bairdservice/baird-backend/pkg/metrics"
)

const defaultInterval = 10 * time.Minute

// ServiceParams configure the cron service. JobTimeout defaults to Interval.
type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service runs every registered job once per interval, on at most one worker
// at a time.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	s := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if s.registry == nil {
		s.registry = &Registry{}
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = s.interval
	}
	return s, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle finished with failures", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs each job under the shared lock. A failing job does not stop the
// ones after it; all failures come back combined. Losing the lock to another
// worker is not an error.
func (s *Service) RunOnce(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "release cron lock", err)
		}
	}()

	var failures error
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			return multierr.Append(failures, ctx.Err())
		}
		if err := s.runJob(ctx, job); err != nil {
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	return failures
}

func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	ctx = s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	runCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
		elapsed := time.Since(start)
		s.metrics.Observe(job.Name(), elapsed, err)
		logCtx := s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())
		if err != nil {
			s.logg.Error(logCtx, "job failed", err)
			return
		}
		s.logg.Info(logCtx, "job completed")
	}()
	return job.Run(runCtx)
}
