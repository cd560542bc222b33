package technicians

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bairdservice/baird-backend/internal/repo"
	"github.com/bairdservice/baird-backend/pkg/db/models"
	"github.com/bairdservice/baird-backend/pkg/enums"
)

// ErrNotFound is returned when a technician lookup misses.
var ErrNotFound = errors.New("technician not found")

// Repository exposes technician reads used by dispatch and acceptance.
type Repository interface {
	FindEligible(ctx context.Context, specialty enums.EquipmentType, city string) ([]models.Technician, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Technician, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a technician repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

// FindEligible returns verified technicians holding the specialty whose city
// contains the requested city, in storage order. City containment folds case
// with Unicode rules in Go so "BOGOTÁ" matches "Bogotá D.C." on every
// database collation.
func (r *repository) FindEligible(ctx context.Context, specialty enums.EquipmentType, city string) ([]models.Technician, error) {
	needle := strings.ToLower(strings.TrimSpace(city))

	var candidates []models.Technician
	err := r.DB(ctx).
		Model(&models.Technician{}).
		Where("verification_status = ?", enums.VerificationStatusVerified).
		Where("EXISTS (SELECT 1 FROM technician_specialties ts WHERE ts.technician_id = technicians.id AND ts.specialty = ?)", specialty).
		Order("created_at ASC, id ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	technicians := make([]models.Technician, 0, len(candidates))
	for _, technician := range candidates {
		if strings.Contains(strings.ToLower(technician.City), needle) {
			technicians = append(technicians, technician)
		}
	}
	return technicians, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Technician, error) {
	return repo.First[models.Technician](r.DB(ctx).Preload("Specialties").Where("id = ?", id), ErrNotFound)
}
