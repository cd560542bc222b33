package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/bairdservice/baird-backend/api/responses"
	"github.com/bairdservice/baird-backend/api/validators"
	"github.com/bairdservice/baird-backend/internal/dispatch"
	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
	"github.com/bairdservice/baird-backend/pkg/logger"
)

type dispatchService interface {
	Dispatch(ctx context.Context, requestID uuid.UUID) (*dispatch.Result, error)
}

type notifyRequest struct {
	RequestID string `json:"request_id" validate:"required,uuid"`
}

type notifyResponse struct {
	Success       bool   `json:"success"`
	NotifiedCount int    `json:"notified_count"`
	Message       string `json:"message"`
}

// NotifyTechnicians offers a pending service request to every matching technician.
func NotifyTechnicians(svc dispatchService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}

		var req notifyRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		requestID, err := uuid.Parse(req.RequestID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request_id"))
			return
		}

		result, err := svc.Dispatch(ctx, requestID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, notifyResponse{
			Success:       true,
			NotifiedCount: result.NotifiedCount,
			Message:       dispatch.SummaryMessage(result.NotifiedCount),
		})
	}
}
