package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

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

const (
	defaultConcurrency = 8
	tokenAttempts      = 2
)

type requestRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
	MarkNotified(ctx context.Context, id uuid.UUID, now time.Time) error
}

type technicianMatcher interface {
	FindEligible(ctx context.Context, request *models.ServiceRequest) ([]models.Technician, error)
}

type tokenRepository interface {
	OfferedTechnicianIDs(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error)
	Create(ctx context.Context, token *models.NotificationToken) error
	MarkError(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type messenger interface {
	SendText(ctx context.Context, recipientPhone, body string) error
}

type ServiceParams struct {
	Requests  requestRepository
	Matcher   technicianMatcher
	Tokens    tokenRepository
	Messenger messenger
	App       config.AppConfig
	Dispatch  config.DispatchConfig
	Metrics   *metrics.DispatchMetrics
	Logger    *logger.Logger
	Now       func() time.Time
	NewToken  func() (string, error)
}

// Service fans a service request out to every eligible technician.
type Service struct {
	requests  requestRepository
	matcher   technicianMatcher
	tokens    tokenRepository
	messenger messenger
	app       config.AppConfig
	cfg       config.DispatchConfig
	metrics   *metrics.DispatchMetrics
	logg      *logger.Logger
	now       func() time.Time
	newToken  func() (string, error)
}

// Result reports how many matched technicians were actually reached.
type Result struct {
	NotifiedCount int
	MatchedCount  int
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Requests == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "service request repository required")
	}
	if params.Matcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "technician matcher required")
	}
	if params.Tokens == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notification token repository required")
	}
	if params.Messenger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "messenger required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	cfg := params.Dispatch
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newToken := params.NewToken
	if newToken == nil {
		newToken = security.NewAcceptanceToken
	}
	return &Service{
		requests:  params.Requests,
		matcher:   params.Matcher,
		tokens:    params.Tokens,
		messenger: params.Messenger,
		app:       params.App,
		cfg:       cfg,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       now,
		newToken:  newToken,
	}, nil
}

// Dispatch offers the request to each eligible technician with a unique
// acceptance link. One failed recipient never blocks the others. Technicians
// already holding a token for the request, including a failed one, are not
// offered it again.
func (s *Service) Dispatch(ctx context.Context, requestID uuid.UUID) (*Result, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	ctx = s.logg.WithServiceRequestID(ctx, requestID.String())

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, servicerequests.ErrNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "service request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service request")
	}
	if request.Assigned() || !request.Status.Dispatchable() {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "service request is %s", request.Status).
			WithDetails(map[string]any{"status": request.Status})
	}

	technicians, err := s.matcher.FindEligible(ctx, request)
	if err != nil {
		return nil, err
	}
	result := &Result{MatchedCount: len(technicians)}
	if len(technicians) == 0 {
		s.logg.Info(ctx, "no eligible technicians")
		return result, nil
	}
	technicians, err = s.withoutOffered(ctx, request.ID, technicians)
	if err != nil {
		return nil, err
	}
	if len(technicians) == 0 {
		s.logg.Info(ctx, "every eligible technician already offered")
		return result, nil
	}
	s.metrics.IncRun()

	var notified atomic.Int64
	var group errgroup.Group
	group.SetLimit(s.cfg.Concurrency)
	for i := range technicians {
		technician := technicians[i]
		group.Go(func() error {
			if s.offer(ctx, request, &technician) {
				notified.Add(1)
			}
			return nil
		})
	}
	_ = group.Wait()

	result.NotifiedCount = int(notified.Load())
	if result.NotifiedCount > 0 {
		if err := s.requests.MarkNotified(ctx, request.ID, s.now()); err != nil {
			s.logg.Error(ctx, "failed to mark service request notified", err)
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"matched":  result.MatchedCount,
		"notified": result.NotifiedCount,
	}), "dispatch completed")
	return result, nil
}

func (s *Service) withoutOffered(ctx context.Context, requestID uuid.UUID, technicians []models.Technician) ([]models.Technician, error) {
	offered, err := s.tokens.OfferedTechnicianIDs(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offered technicians")
	}
	if len(offered) == 0 {
		return technicians, nil
	}
	seen := make(map[uuid.UUID]struct{}, len(offered))
	for _, id := range offered {
		seen[id] = struct{}{}
	}
	fresh := make([]models.Technician, 0, len(technicians))
	for _, technician := range technicians {
		if _, ok := seen[technician.ID]; ok {
			s.metrics.IncDelivery("skipped")
			continue
		}
		fresh = append(fresh, technician)
	}
	return fresh, nil
}

func (s *Service) offer(ctx context.Context, request *models.ServiceRequest, technician *models.Technician) bool {
	ctx = s.logg.WithTechnicianID(ctx, technician.ID.String())

	token, err := s.recordToken(ctx, request, technician)
	if err != nil {
		s.logg.Error(ctx, "failed to record notification token", err)
		s.metrics.IncDelivery("skipped")
		return false
	}
	value := token.Token

	body := OfferMessage(request, s.app.AcceptanceURL(value), s.cfg.OfferPreviewChars)
	if err := s.messenger.SendText(ctx, technician.WhatsAppPhone, body); err != nil {
		s.logg.Error(ctx, "failed to deliver technician offer", err)
		s.metrics.IncDelivery("failed")
		if _, markErr := s.tokens.MarkError(ctx, token.ID, s.now()); markErr != nil {
			s.logg.Error(ctx, "failed to mark notification token as error", markErr)
		}
		return false
	}

	s.metrics.IncDelivery("sent")
	return true
}

// recordToken persists a fresh sent token, regenerating once if the random
// value collides with an existing one.
func (s *Service) recordToken(ctx context.Context, request *models.ServiceRequest, technician *models.Technician) (*models.NotificationToken, error) {
	var err error
	for attempt := 0; attempt < tokenAttempts; attempt++ {
		var value string
		value, err = s.newToken()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate acceptance token")
		}
		token := &models.NotificationToken{
			ID:               uuid.New(),
			Token:            value,
			ServiceRequestID: request.ID,
			TechnicianID:     technician.ID,
			Status:           enums.NotificationTokenStatusSent,
			SentAt:           s.now(),
		}
		err = s.tokens.Create(ctx, token)
		if err == nil {
			return token, nil
		}
		if !db.IsUniqueViolation(err, "") {
			break
		}
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification token")
}
