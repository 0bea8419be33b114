// Package quote resolves a brcode into a payable fiat quote, enforcing the
// payability gates in a fixed order.
package quote

import (
	"context"

	apperrors "github.com/eccentricexit/cipay-backend/pkg/app/errors"
	"github.com/eccentricexit/cipay-backend/pkg/config"
	"github.com/eccentricexit/cipay-backend/pkg/starkbank"
)

// Provider is the slice of the banking client the resolver needs.
type Provider interface {
	QueryPreview(ctx context.Context, brcode string) (*starkbank.BrcodePreview, error)
	Balance(ctx context.Context) (int64, error)
}

// Quote is an accepted brcode preview.
type Quote struct {
	Brcode      string
	Amount      int64
	ReceiverTax string
	Description string
	Status      string
}

// Resolver checks whether a brcode can be paid out right now.
type Resolver struct {
	provider Provider
	limit    int64
}

// NewResolver builds a resolver enforcing the configured payout ceiling.
func NewResolver(provider Provider, cfg config.PaymentsConfig) *Resolver {
	return &Resolver{provider: provider, limit: cfg.PaymentLimitCents}
}

// Resolve fetches the preview for brcode and runs the payability gates in
// order: existence, positive amount, active status, explicitly locked amount,
// payout ceiling, operator balance. The first failing gate wins; its error
// carries the client-facing code and HTTP status.
func (r *Resolver) Resolve(ctx context.Context, brcode string) (*Quote, error) {
	preview, err := r.provider.QueryPreview(ctx, brcode)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	if preview == nil {
		return nil, apperrors.BrcodeNotFound(brcode)
	}
	if preview.Amount <= 0 {
		return nil, apperrors.AmountTooSmallOrInvalid(preview.Amount)
	}
	if preview.Status != "active" {
		return nil, apperrors.InvalidPaymentStatus(preview.Status)
	}
	// The amount is only trustworthy when the preview says, explicitly, that
	// it cannot change. A missing allowChange field fails the gate.
	if preview.AllowChange == nil || *preview.AllowChange {
		return nil, apperrors.AllowChangeForbidden()
	}
	if preview.Amount > r.limit {
		return nil, apperrors.AmountTooLarge(preview.Amount, r.limit)
	}

	balance, err := r.provider.Balance(ctx)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	if balance < preview.Amount {
		return nil, apperrors.OutOfFunds(balance, preview.Amount)
	}

	return &Quote{
		Brcode:      brcode,
		Amount:      preview.Amount,
		ReceiverTax: preview.TaxID,
		Description: preview.Description,
		Status:      preview.Status,
	}, nil
}
