package acceptance

import (
	"context"
	"errors"
	"strings"

	"github.com/bairdservice/baird-backend/internal/notifications"
	"github.com/bairdservice/baird-backend/pkg/enums"
	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
	"github.com/bairdservice/baird-backend/pkg/money"
	"github.com/bairdservice/baird-backend/pkg/security"
	"github.com/bairdservice/baird-backend/pkg/textutil"
)

const defaultTechnicianName = "Técnico"

// OfferView is what the acceptance page shows before the technician decides.
type OfferView struct {
	Token          string
	TechnicianName string
	Equipment      string
	Brand          string
	ProblemPreview string
	Address        string
	Zone           string
	City           string
	VisitWindow1   string
	VisitWindow2   string
	Payout         string
	Available      bool
	Accepted       bool
}

// Offer resolves a token into the request details shown on the acceptance page.
func (s *Service) Offer(ctx context.Context, value string) (*OfferView, error) {
	value = strings.TrimSpace(value)
	if !security.IsAcceptanceToken(value) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
	}
	token, err := s.tokens.FindByToken(ctx, value)
	if err != nil {
		if errors.Is(err, notifications.ErrNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification token")
	}
	request, err := s.requests.FindByID(ctx, token.ServiceRequestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "offer not found")
	}

	name := defaultTechnicianName
	if technician, err := s.technicians.FindByID(ctx, token.TechnicianID); err == nil && technician.Name != "" {
		name = technician.Name
	}

	available := !request.Assigned() &&
		request.Status.Dispatchable() &&
		token.Status == enums.NotificationTokenStatusSent

	return &OfferView{
		Token:          token.Token,
		TechnicianName: name,
		Equipment:      request.EquipmentType.String(),
		Brand:          request.Brand,
		ProblemPreview: textutil.Preview(request.ProblemDescription, s.previews.PagePreviewChars),
		Address:        request.Address,
		Zone:           request.Zone,
		City:           request.City,
		VisitWindow1:   request.VisitWindow1,
		VisitWindow2:   request.VisitWindow2,
		Payout:         money.FormatCOP(request.TechnicianPayout),
		Available:      available,
		Accepted:       token.Status == enums.NotificationTokenStatusAccepted,
	}, nil
}
