package whatsappwebhook

import (
	"context"
	"encoding/json"

	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
	"github.com/bairdservice/baird-backend/pkg/logger"
)

const businessAccountObject = "whatsapp_business_account"

// Ack statuses returned to the Cloud API.
const (
	StatusOK          = "ok"
	StatusIgnored     = "ignored"
	StatusErrorLogged = "error_logged"
)

type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []InboundMessage `json:"messages"`
	Statuses         []DeliveryStatus `json:"statuses"`
}

type InboundMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type DeliveryStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
	Timestamp   string `json:"timestamp"`
}

type guard interface {
	CheckAndMark(ctx context.Context, id string) (bool, error)
}

// Summary describes what one webhook delivery contained.
type Summary struct {
	Status     string
	Messages   int
	Statuses   int
	Duplicates int
}

// Service records inbound WhatsApp events. It performs no business actions.
type Service struct {
	guard guard
	logg  *logger.Logger
}

// NewService builds the event logger; a nil guard disables duplicate suppression.
func NewService(g *IdempotencyGuard, logg *logger.Logger) (*Service, error) {
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	svc := &Service{logg: logg}
	if g != nil {
		svc.guard = g
	}
	return svc, nil
}

// HandleEvent decodes and logs a verified webhook body.
func (s *Service) HandleEvent(ctx context.Context, rawBody []byte) (*Summary, error) {
	var envelope Envelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook body")
	}
	if envelope.Object != businessAccountObject {
		return &Summary{Status: StatusIgnored}, nil
	}

	summary := &Summary{Status: StatusOK}
	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.ID != "" && s.seen(ctx, "message:"+msg.ID) {
					summary.Duplicates++
					continue
				}
				summary.Messages++
				s.logg.Info(s.logg.WithFields(ctx, map[string]any{
					"message_id": msg.ID,
					"from":       msg.From,
					"type":       msg.Type,
				}), "inbound whatsapp message")
			}
			for _, status := range change.Value.Statuses {
				if status.ID != "" && s.seen(ctx, "status:"+status.ID+":"+status.Status) {
					summary.Duplicates++
					continue
				}
				summary.Statuses++
				s.logg.Info(s.logg.WithFields(ctx, map[string]any{
					"message_id":   status.ID,
					"status":       status.Status,
					"recipient_id": status.RecipientID,
				}), "whatsapp delivery status")
			}
		}
	}
	return summary, nil
}

func (s *Service) seen(ctx context.Context, id string) bool {
	if s.guard == nil {
		return false
	}
	already, err := s.guard.CheckAndMark(ctx, id)
	if err != nil {
		s.logg.Error(ctx, "webhook idempotency check failed", err)
		return false
	}
	return already
}
