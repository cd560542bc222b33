package servicerequests

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bairdservice/baird-backend/internal/repo"
	"github.com/bairdservice/baird-backend/pkg/db/models"
	"github.com/bairdservice/baird-backend/pkg/enums"
)

// ErrNotFound is returned when a service request lookup misses.
var ErrNotFound = errors.New("service request not found")

// Repository persists service request state transitions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
	MarkNotified(ctx context.Context, id uuid.UUID, now time.Time) error
	ClaimAssignment(ctx context.Context, requestID, technicianID uuid.UUID, now time.Time) (bool, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a service request repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	return &repositoryImpl{Base: r.Bind(tx)}
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error) {
	return repo.First[models.ServiceRequest](r.DB(ctx).Where("id = ?", id), ErrNotFound)
}

// MarkNotified stamps notified_at and moves a pending request to notified.
// Requests that already left the dispatchable states are left untouched.
func (r *repositoryImpl) MarkNotified(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.DB(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ? AND status IN ?", id, enums.DispatchableStatuses).
		Updates(map[string]any{
			"status":      enums.ServiceRequestStatusNotified,
			"notified_at": now,
			"updated_at":  now,
		}).Error
}

// ClaimAssignment sets the technician only while the request is unassigned and
// still dispatchable. It reports false when another claim already won or the
// request was closed.
func (r *repositoryImpl) ClaimAssignment(ctx context.Context, requestID, technicianID uuid.UUID, now time.Time) (bool, error) {
	result := r.DB(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ? AND technician_id IS NULL AND status IN ?", requestID, enums.DispatchableStatuses).
		Updates(map[string]any{
			"technician_id": technicianID,
			"status":        enums.ServiceRequestStatusAssigned,
			"assigned_at":   now,
			"updated_at":    now,
		})
	n, err := repo.Affected(result)
	return n == 1, err
}
