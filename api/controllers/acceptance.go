package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bairdservice/baird-backend/api/responses"
	"github.com/bairdservice/baird-backend/api/validators"
	"github.com/bairdservice/baird-backend/api/views"
	"github.com/bairdservice/baird-backend/internal/acceptance"
	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
	"github.com/bairdservice/baird-backend/pkg/logger"
)

const maxTokenParamLen = 64

type acceptanceService interface {
	Accept(ctx context.Context, token string) (*acceptance.Result, error)
	Offer(ctx context.Context, token string) (*acceptance.OfferView, error)
}

type acceptRequest struct {
	Token string `json:"token" validate:"required,acceptance_token"`
}

// AcceptOffer resolves a technician's acceptance token. Losing the race is a
// normal 200 response carrying the outcome.
func AcceptOffer(svc acceptanceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "acceptance service unavailable"))
			return
		}

		var req acceptRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Accept(ctx, req.Token)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, result)
	}
}

// AcceptancePage renders the offer details and the single accept button.
func AcceptancePage(svc acceptanceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "acceptance service unavailable"))
			return
		}

		token := validators.SanitizeString(chi.URLParam(r, "token"), maxTokenParamLen)
		offer, err := svc.Offer(ctx, token)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				renderPage(ctx, logg, w, http.StatusNotFound, views.NotFoundPage, nil)
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		renderPage(ctx, logg, w, http.StatusOK, views.OfferPage, offer)
	}
}

// AcceptancePageSubmit handles the page's accept button and renders the outcome.
func AcceptancePageSubmit(svc acceptanceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "acceptance service unavailable"))
			return
		}

		token := validators.SanitizeString(chi.URLParam(r, "token"), maxTokenParamLen)
		result, err := svc.Accept(ctx, token)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result.Outcome == acceptance.OutcomeInvalidToken {
			renderPage(ctx, logg, w, http.StatusNotFound, views.NotFoundPage, nil)
			return
		}
		renderPage(ctx, logg, w, http.StatusOK, views.ResultPage, resultView(result))
	}
}

func resultView(result *acceptance.Result) views.ResultView {
	switch result.Outcome {
	case acceptance.OutcomeWon:
		return views.ResultView{
			Won:     true,
			Title:   "¡Servicio asignado!",
			Message: "Recibirás los datos completos del cliente por WhatsApp ahora mismo.",
		}
	case acceptance.OutcomeAlreadyAccepted:
		return views.ResultView{
			Won:     true,
			Title:   result.Message,
			Message: "Revisa tu WhatsApp para ver los datos del cliente.",
		}
	default:
		return views.ResultView{
			Title:   "Ya fue tomado",
			Message: "Otro técnico aceptó este servicio primero. ¡Sigue atento a nuevas solicitudes!",
		}
	}
}

func renderPage(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, status int, page string, data any) {
	if err := views.Render(w, status, page, data); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render page"))
	}
}
