// Package payment defines the payment request domain model and the
// persistence contracts the reconciliation engine is built on.
package payment

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no payment request matches the lookup key.
	ErrNotFound = errors.New("payment request not found")
	// ErrDuplicate is returned when a unique constraint (brcode, tx hash or
	// provider payment id) rejects an insert or update.
	ErrDuplicate = errors.New("duplicate payment request")
)

// Request is one reconciliation attempt: a brcode the user asked to have
// paid with tokens, tracked from quote to fiat settlement.
type Request struct {
	// Brcode is the Pix brcode to be paid. Unique per request.
	Brcode string
	// PayerAddress is the EVM address recovered from the meta-tx signature.
	PayerAddress string
	// Coin is the token contract the payer settled in.
	Coin string
	// Rate is the fiat/token rate agreed at creation, fiat minor units per
	// whole token at 18 decimals, serialized as a decimal string.
	Rate string
	// TxHash is the token transfer transaction hash. Empty until the relay
	// transaction is submitted; unique once set.
	TxHash string
	// ReceiverTaxID is the tax id (CPF/CNPJ) of the brcode receiver.
	ReceiverTaxID string
	// Description is the payment description from the brcode preview.
	Description string
	// FiatAmount is the brcode amount in fiat minor units (cents).
	FiatAmount int64
	// ProviderPaymentID is the banking provider's payment id, set once the
	// fiat payout is created. Unique once set.
	ProviderPaymentID string
	// ProviderStatus is the last raw status reported by the provider webhook.
	ProviderStatus string
	// Status drives the lifecycle state machine.
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Checkpoint records the last block fully scanned for one watched contract.
type Checkpoint struct {
	// ID is the composite key, e.g. "syncblock-0xToken".
	ID string
	// LastBlock is the highest block safe to resume from. Monotonically
	// non-decreasing.
	LastBlock uint64

	UpdatedAt time.Time
}

// Store is the durable record of payment requests. Implementations must
// back Transition with an atomic conditional write: concurrent scanners may
// observe the same transfer event and only one may win the transition.
type Store interface {
	Create(ctx context.Context, req *Request) error
	GetByBrcode(ctx context.Context, brcode string) (*Request, error)
	GetByTxHash(ctx context.Context, txHash string) (*Request, error)
	GetByProviderPaymentID(ctx context.Context, id string) (*Request, error)

	// MarkSubmitted sets the tx hash and moves the request to submitted.
	MarkSubmitted(ctx context.Context, brcode, txHash string) error
	// Transition moves a request from one status to another only if it is
	// currently in the expected status. Returns false when the guard failed.
	Transition(ctx context.Context, brcode string, from, to Status) (bool, error)
	// MarkProcessing records the created payout and moves to processing.
	MarkProcessing(ctx context.Context, brcode, providerPaymentID, providerStatus string) error
	// MarkSuccess moves the request to its terminal success state.
	MarkSuccess(ctx context.Context, brcode, providerStatus string) error
	// UpdateProviderStatus records an informational provider status without
	// touching the local lifecycle.
	UpdateProviderStatus(ctx context.Context, brcode, providerStatus string) error
}

// CheckpointStore persists scan progress per watched contract.
type CheckpointStore interface {
	// Checkpoint returns the stored checkpoint or nil when none exists yet.
	Checkpoint(ctx context.Context, id string) (*Checkpoint, error)
	// SaveCheckpoint upserts the checkpoint for id.
	SaveCheckpoint(ctx context.Context, id string, lastBlock uint64) error
}
