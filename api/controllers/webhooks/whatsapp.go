package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/bairdservice/baird-backend/api/responses"
	whatsappwebhook "github.com/bairdservice/baird-backend/internal/webhooks/whatsapp"
	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
	"github.com/bairdservice/baird-backend/pkg/logger"
)

const maxWebhookBodyBytes = 1 << 20

type WhatsAppWebhookService interface {
	HandleEvent(ctx context.Context, rawBody []byte) (*whatsappwebhook.Summary, error)
}

type signatureVerifier interface {
	Verify(rawBody []byte, header string) bool
	VerifyHandshake(mode, token, challenge string) (string, bool)
}

type webhookAck struct {
	Status string `json:"status"`
}

// WhatsAppWebhook authenticates and records Cloud API events. Once the
// signature checks out the provider always gets a 200 so it stops retrying.
func WhatsAppWebhook(svc WhatsAppWebhookService, verifier signatureVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		if !verifier.Verify(payload, r.Header.Get(whatsappwebhook.SignatureHeader)) {
			if logg != nil {
				logg.Warn(ctx, "whatsapp webhook signature rejected")
			}
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature"))
			return
		}

		summary, err := svc.HandleEvent(ctx, payload)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "whatsapp webhook processing failed", err)
			}
			responses.WriteJSON(w, http.StatusOK, webhookAck{Status: whatsappwebhook.StatusErrorLogged})
			return
		}

		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"messages":   summary.Messages,
				"statuses":   summary.Statuses,
				"duplicates": summary.Duplicates,
				"status":     summary.Status,
			}), "whatsapp webhook processed")
		}
		responses.WriteJSON(w, http.StatusOK, webhookAck{Status: summary.Status})
	}
}

// WhatsAppWebhookHandshake answers the subscription verification request.
func WhatsAppWebhookHandshake(verifier signatureVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook verifier unavailable"))
			return
		}

		q := r.URL.Query()
		challenge, ok := verifier.VerifyHandshake(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"))
		if !ok {
			if logg != nil {
				logg.Warn(ctx, "whatsapp webhook handshake rejected")
			}
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeForbidden, "verification failed"))
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, challenge)
	}
}
