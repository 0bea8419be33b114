// Package reconciler applies banking provider webhook events to the local
// payment request lifecycle.
package reconciler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eccentricexit/cipay-backend/internal/metrics"
	"github.com/eccentricexit/cipay-backend/pkg/payment"
)

// Reconciler folds provider payout status updates into the store.
type Reconciler struct {
	store  payment.Store
	logger *zap.Logger
}

// NewReconciler creates a webhook reconciler.
func NewReconciler(store payment.Store, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Apply records one provider status update. Events for payments this service
// never created are logged and discarded: the provider account may carry
// payouts from other systems. Only a terminal "success" moves the local
// lifecycle; every other provider status is recorded verbatim without a
// local transition.
func (r *Reconciler) Apply(ctx context.Context, providerPaymentID, providerStatus string) error {
	req, err := r.store.GetByProviderPaymentID(ctx, providerPaymentID)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			metrics.WebhookCallbacks.WithLabelValues("unknown").Inc()
			r.logger.Info("Webhook for unknown provider payment, discarding",
				zap.String("provider_payment_id", providerPaymentID),
				zap.String("provider_status", providerStatus))
			return nil
		}
		metrics.WebhookCallbacks.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to look up payment by provider id: %w", err)
	}

	if providerStatus == "success" {
		if err := r.store.MarkSuccess(ctx, req.Brcode, providerStatus); err != nil {
			metrics.WebhookCallbacks.WithLabelValues("error").Inc()
			return fmt.Errorf("failed to mark payment success: %w", err)
		}
		metrics.WebhookCallbacks.WithLabelValues("success").Inc()
		r.logger.Info("Payout settled",
			zap.String("brcode", req.Brcode),
			zap.String("provider_payment_id", providerPaymentID))
		return nil
	}

	if err := r.store.UpdateProviderStatus(ctx, req.Brcode, providerStatus); err != nil {
		metrics.WebhookCallbacks.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to record provider status: %w", err)
	}
	metrics.WebhookCallbacks.WithLabelValues("recorded").Inc()
	r.logger.Info("Provider status recorded",
		zap.String("brcode", req.Brcode),
		zap.String("provider_status", providerStatus))
	return nil
}
