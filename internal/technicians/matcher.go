package technicians

import (
	"context"
	"fmt"
	"strings"

	"github.com/bairdservice/baird-backend/pkg/db/models"
	"github.com/bairdservice/baird-backend/pkg/enums"
	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
)

// Matcher selects the technicians eligible to receive an offer.
type Matcher struct {
	repo Repository
}

// NewMatcher builds a matcher over the technician repository.
func NewMatcher(repo Repository) (*Matcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("technician repository required")
	}
	return &Matcher{repo: repo}, nil
}

// FindEligible returns verified technicians with the request's equipment type
// as a specialty and a city containing the request's city. An empty result is
// not an error, and neither is an equipment type outside the vocabulary.
func (m *Matcher) FindEligible(ctx context.Context, request *models.ServiceRequest) ([]models.Technician, error) {
	if request == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service request required")
	}
	if strings.TrimSpace(string(request.EquipmentType)) == "" || strings.TrimSpace(request.City) == "" {
		return []models.Technician{}, nil
	}
	specialty, err := enums.ParseEquipmentType(string(request.EquipmentType))
	if err != nil {
		return []models.Technician{}, nil
	}
	technicians, err := m.repo.FindEligible(ctx, specialty, request.City)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find eligible technicians")
	}
	return technicians, nil
}
