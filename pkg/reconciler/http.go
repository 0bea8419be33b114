package reconciler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/eccentricexit/cipay-backend/pkg/app/errors"
	apphttp "github.com/eccentricexit/cipay-backend/pkg/app/http"
	"github.com/eccentricexit/cipay-backend/pkg/starkbank"
)

// HTTP exposes the provider webhook endpoint.
type HTTP struct {
	reconciler *Reconciler
	logger     *zap.Logger
}

// RegisterRoutes registers the webhook endpoint on the given chi router
func RegisterRoutes(r chi.Router, rec *Reconciler, logger *zap.Logger) {
	h := &HTTP{reconciler: rec, logger: logger}
	r.Post("/starkbank-webhook", apphttp.HandleError(h.webhook))
}

// webhook acknowledges every well-formed delivery with 200 so the provider
// does not retry events this service chose to ignore. Only a local store
// failure surfaces as 500, which does trigger a redelivery.
func (h *HTTP) webhook(w http.ResponseWriter, r *http.Request) error {
	// TODO: verify the Digital-Signature header against the provider's
	// published public key before trusting the payload.
	if sig := r.Header.Get("Digital-Signature"); sig != "" {
		h.logger.Debug("Webhook signature received", zap.String("digital_signature", sig))
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	var event starkbank.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}

	paymentID := event.Event.Log.Payment.ID
	status := event.Event.Log.Payment.Status
	if paymentID == "" {
		return apperrors.BadRequestError(nil, "event carries no payment id")
	}

	if err := h.reconciler.Apply(r.Context(), paymentID, status); err != nil {
		return apperrors.GeneralError(err)
	}

	return apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
