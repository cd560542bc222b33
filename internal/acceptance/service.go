package acceptance

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bairdservice/baird-backend/internal/notifications"
	"github.com/bairdservice/baird-backend/internal/servicerequests"
	"github.com/bairdservice/baird-backend/pkg/config"
	"github.com/bairdservice/baird-backend/pkg/db"
	"github.com/bairdservice/baird-backend/pkg/db/models"
	"github.com/bairdservice/baird-backend/pkg/enums"
	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
	"github.com/bairdservice/baird-backend/pkg/logger"
	"github.com/bairdservice/baird-backend/pkg/metrics"
	"github.com/bairdservice/baird-backend/pkg/security"
)

// Outcome classifies an acceptance attempt. Losing a race is an outcome, not an error.
type Outcome string

const (
	OutcomeInvalidToken    Outcome = "invalid_token"
	OutcomeAlreadyAccepted Outcome = "already_accepted"
	OutcomeUnavailable     Outcome = "unavailable"
	OutcomeTaken           Outcome = "taken"
	OutcomeWon             Outcome = "won"
)

var outcomeMessages = map[Outcome]string{
	OutcomeInvalidToken:    "Token inválido o expirado",
	OutcomeAlreadyAccepted: "¡Ya aceptaste este servicio!",
	OutcomeUnavailable:     "Este servicio ya no está disponible",
	OutcomeTaken:           "Este servicio ya fue tomado por otro técnico",
	OutcomeWon:             "¡Servicio asignado exitosamente!",
}

// Result is what the technician sees after pressing accept.
type Result struct {
	Won     bool    `json:"won"`
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message"`
}

func newResult(outcome Outcome) *Result {
	return &Result{
		Won:     outcome == OutcomeWon,
		Outcome: outcome,
		Message: outcomeMessages[outcome],
	}
}

var errTokenClosed = errors.New("notification token no longer open")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type technicianLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Technician, error)
}

type messenger interface {
	SendText(ctx context.Context, recipientPhone, body string) error
	SendImage(ctx context.Context, recipientPhone, imageURL, caption string) error
}

type ServiceParams struct {
	TransactionRunner txRunner
	Requests          servicerequests.Repository
	Tokens            notifications.Repository
	Technicians       technicianLoader
	Messenger         messenger
	WhatsApp          config.WhatsAppConfig
	Dispatch          config.DispatchConfig
	Metrics           *metrics.AcceptanceMetrics
	Logger            *logger.Logger
	Now               func() time.Time
}

// Service resolves acceptance tokens into exactly one assignment per request.
type Service struct {
	tx          txRunner
	requests    servicerequests.Repository
	tokens      notifications.Repository
	technicians technicianLoader
	messenger   messenger
	countryCode string
	previews    config.DispatchConfig
	metrics     *metrics.AcceptanceMetrics
	logg        *logger.Logger
	now         func() time.Time

	pending sync.WaitGroup
}

func NewService(params ServiceParams) (*Service, error) {
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Requests == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "service request repository required")
	}
	if params.Tokens == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notification token repository required")
	}
	if params.Technicians == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "technician repository required")
	}
	if params.Messenger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "messenger required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		tx:          params.TransactionRunner,
		requests:    params.Requests,
		tokens:      params.Tokens,
		technicians: params.Technicians,
		messenger:   params.Messenger,
		countryCode: params.WhatsApp.CountryCode,
		previews:    params.Dispatch,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// Accept claims the token's service request for its technician. Only the
// first claim on a request wins; later claims observe OutcomeTaken.
func (s *Service) Accept(ctx context.Context, value string) (*Result, error) {
	result, err := s.accept(ctx, strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}
	s.metrics.IncOutcome(string(result.Outcome))
	return result, nil
}

func (s *Service) accept(ctx context.Context, value string) (*Result, error) {
	if !security.IsAcceptanceToken(value) {
		return newResult(OutcomeInvalidToken), nil
	}

	token, err := s.tokens.FindByToken(ctx, value)
	if err != nil {
		if errors.Is(err, notifications.ErrNotFound) {
			return newResult(OutcomeInvalidToken), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification token")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"service_request_id": token.ServiceRequestID.String(),
		"technician_id":      token.TechnicianID.String(),
		"token_status":       token.Status,
	})

	if token.Status.Terminal() {
		if token.Status == enums.NotificationTokenStatusAccepted {
			return newResult(OutcomeAlreadyAccepted), nil
		}
		return newResult(OutcomeUnavailable), nil
	}

	now := s.now()
	won := false
	var invalidated int64
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		claimed, err := s.requests.WithTx(tx).ClaimAssignment(ctx, token.ServiceRequestID, token.TechnicianID, now)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}
		tokens := s.tokens.WithTx(tx)
		accepted, err := tokens.MarkAccepted(ctx, token.ID, now)
		if err != nil {
			return err
		}
		if !accepted {
			return errTokenClosed
		}
		invalidated, err = tokens.InvalidateSiblings(ctx, token.ServiceRequestID, token.ID, now)
		if err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		if errors.Is(err, errTokenClosed) {
			return newResult(OutcomeUnavailable), nil
		}
		if db.IsUniqueViolation(err, db.ConstraintOneAcceptedToken) {
			return s.lose(ctx, token, now)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim service request")
	}

	if !won {
		return s.lose(ctx, token, now)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"outcome":              OutcomeWon,
		"invalidated_siblings": invalidated,
	}), "service request assigned")
	s.notifyAssignment(context.WithoutCancel(ctx), token)
	return newResult(OutcomeWon), nil
}

func (s *Service) lose(ctx context.Context, token *models.NotificationToken, now time.Time) (*Result, error) {
	request, err := s.requests.FindByID(ctx, token.ServiceRequestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service request")
	}
	if request.TechnicianID != nil && *request.TechnicianID == token.TechnicianID {
		return newResult(OutcomeAlreadyAccepted), nil
	}
	if request.TechnicianID == nil {
		// Unassigned but not claimable: the request left the dispatchable states.
		if _, err := s.tokens.MarkInvalidated(ctx, token.ID, now); err != nil {
			s.logg.Error(ctx, "failed to invalidate token for closed request", err)
		}
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"outcome":        OutcomeUnavailable,
			"request_status": request.Status,
		}), "acceptance on closed request")
		return newResult(OutcomeUnavailable), nil
	}

	if _, err := s.tokens.MarkInvalidated(ctx, token.ID, now); err != nil {
		s.logg.Error(ctx, "failed to invalidate losing token", err)
	}
	s.logg.Info(s.logg.WithField(ctx, "outcome", OutcomeTaken), "acceptance lost race")

	s.notifyLoser(ctx, token.TechnicianID)
	return newResult(OutcomeTaken), nil
}

// notifyLoser tells the late technician in the background; Wait drains it.
func (s *Service) notifyLoser(ctx context.Context, technicianID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		technician, err := s.technicians.FindByID(ctx, technicianID)
		if err != nil {
			s.logg.Error(ctx, "failed to load losing technician", err)
			return
		}
		if technician.WhatsAppPhone == "" {
			return
		}
		if err := s.messenger.SendText(ctx, technician.WhatsAppPhone, loserMessage); err != nil {
			s.logg.Error(ctx, "failed to notify losing technician", err)
		}
	}()
}

// Wait blocks until background loser notifications finish.
func (s *Service) Wait() {
	s.pending.Wait()
}

// notifyAssignment sends the winner and client messages. Each send is
// independent; failures are logged and never undo the assignment. ctx must
// not carry the caller's cancellation once the claim has committed.
func (s *Service) notifyAssignment(ctx context.Context, token *models.NotificationToken) {
	request, err := s.requests.FindByID(ctx, token.ServiceRequestID)
	if err != nil {
		s.logg.Error(ctx, "failed to reload assigned service request", err)
		return
	}
	technician, err := s.technicians.FindByID(ctx, token.TechnicianID)
	if err != nil {
		s.logg.Error(ctx, "failed to load winning technician", err)
		technician = nil
	}

	var errs error
	send := func(step string, fn func() error) {
		if err := fn(); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "step", step), "assignment notification failed", err)
			errs = multierr.Append(errs, err)
		}
	}

	if technician != nil {
		send("winner", func() error {
			return s.messenger.SendText(ctx, technician.WhatsAppPhone, WinnerMessage(technician, request, s.previews.WinnerPreviewChars))
		})
	}
	send("client", func() error {
		return s.messenger.SendText(ctx, request.ClientPhone, ClientMessage(technician, request, s.countryCode))
	})
	if technician != nil && technician.ProfilePhotoURL != nil && *technician.ProfilePhotoURL != "" {
		send("profile_photo", func() error {
			return s.messenger.SendImage(ctx, request.ClientPhone, *technician.ProfilePhotoURL, profilePhotoCaption(technician.Name))
		})
	}
	if technician != nil && technician.DocumentPhotoURL != nil && *technician.DocumentPhotoURL != "" {
		send("document_photo", func() error {
			return s.messenger.SendImage(ctx, request.ClientPhone, *technician.DocumentPhotoURL, documentPhotoCaption)
		})
	}

	if errs != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"failed_notifications": len(multierr.Errors(errs)),
			"error":                errs.Error(),
		}), "assignment completed with notification failures")
	}
}
