package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/bairdservice/baird-backend/pkg/logger"
)

const (
	defaultReconcileGrace = 2 * time.Minute
	defaultReconcileBatch = 500
	maxReconcileBatches   = 20
)

type TokenReconcileJobParams struct {
	Logger     *logger.Logger
	Repository tokenReconcileRepo
	Grace      time.Duration
	BatchSize  int
}

type tokenReconcileRepo interface {
	InvalidateStaleForAssigned(ctx context.Context, cutoff time.Time, limit int, now time.Time) (int64, error)
	InvalidateForCancelled(ctx context.Context, limit int, now time.Time) (int64, error)
}

// NewTokenReconcileJob closes offers that stayed open after their request was
// assigned or cancelled.
func NewTokenReconcileJob(params TokenReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notification token repository required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultReconcileGrace
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &tokenReconcileJob{
		logg:  params.Logger,
		repo:  params.Repository,
		grace: grace,
		batch: batch,
		now:   time.Now,
	}, nil
}

type tokenReconcileJob struct {
	logg  *logger.Logger
	repo  tokenReconcileRepo
	grace time.Duration
	batch int
	now   func() time.Time
}

func (j *tokenReconcileJob) Name() string { return "token-reconcile" }

func (j *tokenReconcileJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.grace)

	assigned, assignedErr := j.sweep(ctx, func() (int64, error) {
		return j.repo.InvalidateStaleForAssigned(ctx, cutoff, j.batch, now)
	})
	cancelled, cancelledErr := j.sweep(ctx, func() (int64, error) {
		return j.repo.InvalidateForCancelled(ctx, j.batch, now)
	})

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":                cutoff,
		"assigned_invalidated":  assigned,
		"cancelled_invalidated": cancelled,
	})
	if err := multierr.Combine(
		wrapSweep("assigned", assignedErr),
		wrapSweep("cancelled", cancelledErr),
	); err != nil {
		return fmt.Errorf("token reconcile: %w", err)
	}
	j.logg.Info(logCtx, "token reconcile complete")
	return nil
}

// sweep repeats a batch update until a short batch or the batch cap.
func (j *tokenReconcileJob) sweep(ctx context.Context, batch func() (int64, error)) (int64, error) {
	var total int64
	for i := 0; i < maxReconcileBatches; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		rows, err := batch()
		if err != nil {
			return total, err
		}
		total += rows
		if rows < int64(j.batch) {
			break
		}
	}
	return total, nil
}

func wrapSweep(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s sweep: %w", name, err)
}
