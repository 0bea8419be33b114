package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eccentricexit/cipay-backend/internal/metrics"
	"github.com/eccentricexit/cipay-backend/pkg/ethereum"
	"github.com/eccentricexit/cipay-backend/pkg/payment"
	"github.com/eccentricexit/cipay-backend/pkg/starkbank"
)

// PayoutProvider is the slice of the banking client the matcher needs.
type PayoutProvider interface {
	CreateBrcodePayment(ctx context.Context, p starkbank.BrcodePayment) (*starkbank.BrcodePayment, error)
}

// Matcher ties observed transfer events back to pending payment requests and
// creates the fiat payout for each confirmed one.
type Matcher struct {
	store       payment.Store
	provider    PayoutProvider
	description string
	logger      *zap.Logger
}

// NewMatcher creates an event matcher. description is attached to payouts
// whose quote carried none.
func NewMatcher(store payment.Store, provider PayoutProvider, description string, logger *zap.Logger) *Matcher {
	return &Matcher{
		store:       store,
		provider:    provider,
		description: description,
		logger:      logger,
	}
}

// HandleTransfer processes one transfer into the custodial wallet. Transfers
// with no matching request are ignored: the wallet may legitimately receive
// tokens outside the payment flow. Requests past submitted are ignored too,
// which makes redelivery of the same event a no-op.
func (m *Matcher) HandleTransfer(ctx context.Context, ev ethereum.TransferEvent) error {
	txHash := ev.TxHash.Hex()

	req, err := m.store.GetByTxHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up payment request: %w", err)
	}

	if req.Status != payment.StatusSubmitted {
		m.logger.Debug("Ignoring transfer for request not awaiting confirmation",
			zap.String("brcode", req.Brcode),
			zap.String("status", req.Status.String()))
		return nil
	}

	// The conditional update is the real idempotency barrier: of two
	// scanners racing on the same event, only one wins this transition.
	won, err := m.store.Transition(ctx, req.Brcode, payment.StatusSubmitted, payment.StatusConfirmed)
	if err != nil {
		return fmt.Errorf("failed to confirm payment request: %w", err)
	}
	if !won {
		return nil
	}

	// Checksummed so the label value lines up with the scanner's, whatever
	// casing the row was stored with.
	metrics.EventsMatched.WithLabelValues(common.HexToAddress(req.Coin).Hex()).Inc()
	m.logger.Info("Transfer confirmed, creating payout",
		zap.String("brcode", req.Brcode),
		zap.String("tx_hash", txHash),
		zap.Int64("fiat_amount", req.FiatAmount))

	description := req.Description
	if description == "" {
		description = m.description
	}

	created, err := m.provider.CreateBrcodePayment(ctx, starkbank.BrcodePayment{
		Brcode:      req.Brcode,
		TaxID:       req.ReceiverTaxID,
		Description: description,
		Amount:      req.FiatAmount,
		ExternalID:  uuid.NewString(),
	})
	if err != nil {
		// The request stays confirmed with no payout. There is no automatic
		// retry; the metric is the operator's signal to intervene.
		metrics.PaymentRequestsStuck.Inc()
		return fmt.Errorf("failed to create payout for %s: %w", req.Brcode, err)
	}

	if err := m.store.MarkProcessing(ctx, req.Brcode, created.ID, created.Status); err != nil {
		metrics.PaymentRequestsStuck.Inc()
		return fmt.Errorf("failed to record payout %s for %s: %w", created.ID, req.Brcode, err)
	}

	metrics.PayoutsCreated.Inc()
	m.logger.Info("Payout created",
		zap.String("brcode", req.Brcode),
		zap.String("provider_payment_id", created.ID))
	return nil
}
