package notifications

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

// ErrNotFound is returned when no token matches the lookup.
var ErrNotFound = errors.New("notification token not found")

// Repository persists notification tokens and their one-way status transitions.
// Every transition only applies to tokens still in the sent state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, token *models.NotificationToken) error
	FindByToken(ctx context.Context, value string) (*models.NotificationToken, error)
	OfferedTechnicianIDs(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error)
	MarkError(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	MarkAccepted(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	MarkInvalidated(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	InvalidateSiblings(ctx context.Context, requestID, exceptID uuid.UUID, now time.Time) (int64, error)
	InvalidateStaleForAssigned(ctx context.Context, cutoff time.Time, limit int, now time.Time) (int64, error)
	InvalidateForCancelled(ctx context.Context, limit int, now time.Time) (int64, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a notification token repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	return &repositoryImpl{Base: r.Bind(tx)}
}

func (r *repositoryImpl) Create(ctx context.Context, token *models.NotificationToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.Status == "" {
		token.Status = enums.NotificationTokenStatusSent
	}
	return r.DB(ctx).Create(token).Error
}

func (r *repositoryImpl) FindByToken(ctx context.Context, value string) (*models.NotificationToken, error) {
	return repo.First[models.NotificationToken](r.DB(ctx).Where("token = ?", value), ErrNotFound)
}

// OfferedTechnicianIDs lists technicians that already hold a token for the
// request, whatever its status.
func (r *repositoryImpl) OfferedTechnicianIDs(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).
		Model(&models.NotificationToken{}).
		Where("service_request_id = ?", requestID).
		Distinct().
		Pluck("technician_id", &ids).Error
	return ids, err
}

func (r *repositoryImpl) MarkError(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return r.transition(ctx, id, enums.NotificationTokenStatusError, now)
}

func (r *repositoryImpl) MarkAccepted(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return r.transition(ctx, id, enums.NotificationTokenStatusAccepted, now)
}

func (r *repositoryImpl) MarkInvalidated(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return r.transition(ctx, id, enums.NotificationTokenStatusInvalidated, now)
}

func (r *repositoryImpl) transition(ctx context.Context, id uuid.UUID, to enums.NotificationTokenStatus, now time.Time) (bool, error) {
	result := r.DB(ctx).
		Model(&models.NotificationToken{}).
		Where("id = ? AND status = ?", id, enums.NotificationTokenStatusSent).
		Updates(map[string]any{
			"status":       to,
			"responded_at": now,
		})
	n, err := repo.Affected(result)
	return n > 0, err
}

// InvalidateSiblings closes every other still-open offer for the request.
func (r *repositoryImpl) InvalidateSiblings(ctx context.Context, requestID, exceptID uuid.UUID, now time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.NotificationToken{}).
		Where("service_request_id = ? AND id <> ? AND status = ?", requestID, exceptID, enums.NotificationTokenStatusSent).
		Updates(map[string]any{
			"status":       enums.NotificationTokenStatusInvalidated,
			"responded_at": now,
		})
	return repo.Affected(result)
}

// InvalidateStaleForAssigned sweeps up to limit open tokens sent before
// cutoff whose request already has a technician.
func (r *repositoryImpl) InvalidateStaleForAssigned(ctx context.Context, cutoff time.Time, limit int, now time.Time) (int64, error) {
	stale := r.DB(ctx).
		Table("notification_tokens AS nt").
		Select("nt.id").
		Joins("JOIN service_requests sr ON sr.id = nt.service_request_id").
		Where("nt.status = ? AND nt.sent_at < ?", enums.NotificationTokenStatusSent, cutoff).
		Where("sr.technician_id IS NOT NULL")
	return r.invalidateBatch(ctx, stale, limit, now)
}

// InvalidateForCancelled sweeps up to limit open tokens of cancelled requests.
func (r *repositoryImpl) InvalidateForCancelled(ctx context.Context, limit int, now time.Time) (int64, error) {
	open := r.DB(ctx).
		Table("notification_tokens AS nt").
		Select("nt.id").
		Joins("JOIN service_requests sr ON sr.id = nt.service_request_id").
		Where("nt.status = ? AND sr.status = ?", enums.NotificationTokenStatusSent, enums.ServiceRequestStatusCancelled)
	return r.invalidateBatch(ctx, open, limit, now)
}

func (r *repositoryImpl) invalidateBatch(ctx context.Context, ids *gorm.DB, limit int, now time.Time) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}
	result := r.DB(ctx).
		Model(&models.NotificationToken{}).
		Where("id IN (?) AND status = ?", ids.Order("nt.sent_at ASC").Limit(limit), enums.NotificationTokenStatusSent).
		Updates(map[string]any{
			"status":       enums.NotificationTokenStatusInvalidated,
			"responded_at": now,
		})
	return repo.Affected(result)
}
