// Package paymentstore is the PostgreSQL implementation of the payment
// request and sync checkpoint stores.
package paymentstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/eccentricexit/cipay-backend/pkg/payment"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors.
const pgUniqueViolation = "23505"

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the payment stores.
// The returned store satisfies both payment.Store and payment.CheckpointStore.
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

// mapErr translates driver-level unique violations into the domain error.
func mapErr(err error) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation {
		return payment.ErrDuplicate
	}
	return err
}

func (s *pgStore) Create(ctx context.Context, req *payment.Request) error {
	dao := toRequestDao(req)

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, payment.ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("failed to create payment request: %w", err)
	}

	return nil
}

func (s *pgStore) GetByBrcode(ctx context.Context, brcode string) (*payment.Request, error) {
	return s.getWhere(ctx, "brcode = ?", brcode)
}

func (s *pgStore) GetByTxHash(ctx context.Context, txHash string) (*payment.Request, error) {
	return s.getWhere(ctx, "tx_hash = ?", txHash)
}

func (s *pgStore) GetByProviderPaymentID(ctx context.Context, id string) (*payment.Request, error) {
	return s.getWhere(ctx, "provider_payment_id = ?", id)
}

func (s *pgStore) getWhere(ctx context.Context, cond string, arg any) (*payment.Request, error) {
	dao := new(PaymentRequestDao)
	err := s.db.NewSelect().
		Model(dao).
		Where(cond, arg).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment request: %w", err)
	}
	return toRequest(dao)
}

func (s *pgStore) MarkSubmitted(ctx context.Context, brcode, txHash string) error {
	res, err := s.db.NewUpdate().
		Model((*PaymentRequestDao)(nil)).
		Set("tx_hash = ?", txHash).
		Set("status = ?", payment.StatusSubmitted.String()).
		Set("updated_at = NOW()").
		Where("brcode = ?", brcode).
		Where("status = ?", payment.StatusCreated.String()).
		Exec(ctx)
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, payment.ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("failed to mark payment request submitted: %w", err)
	}
	return requireOneRow(res, brcode)
}

// Transition is the engine's compare-and-set: the row moves from one status
// to another only if it still holds the expected one. Concurrent scanners
// racing on the same transfer resolve here; the loser sees false.
func (s *pgStore) Transition(ctx context.Context, brcode string, from, to payment.Status) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*PaymentRequestDao)(nil)).
		Set("status = ?", to.String()).
		Set("updated_at = NOW()").
		Where("brcode = ?", brcode).
		Where("status = ?", from.String()).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to transition payment request: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}

func (s *pgStore) MarkProcessing(ctx context.Context, brcode, providerPaymentID, providerStatus string) error {
	res, err := s.db.NewUpdate().
		Model((*PaymentRequestDao)(nil)).
		Set("provider_payment_id = ?", providerPaymentID).
		Set("provider_status = ?", providerStatus).
		Set("status = ?", payment.StatusProcessing.String()).
		Set("updated_at = NOW()").
		Where("brcode = ?", brcode).
		Where("status = ?", payment.StatusConfirmed.String()).
		Exec(ctx)
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, payment.ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("failed to mark payment request processing: %w", err)
	}
	return requireOneRow(res, brcode)
}

func (s *pgStore) MarkSuccess(ctx context.Context, brcode, providerStatus string) error {
	res, err := s.db.NewUpdate().
		Model((*PaymentRequestDao)(nil)).
		Set("provider_status = ?", providerStatus).
		Set("status = ?", payment.StatusSuccess.String()).
		Set("updated_at = NOW()").
		Where("brcode = ?", brcode).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark payment request success: %w", err)
	}
	return requireOneRow(res, brcode)
}

func (s *pgStore) UpdateProviderStatus(ctx context.Context, brcode, providerStatus string) error {
	res, err := s.db.NewUpdate().
		Model((*PaymentRequestDao)(nil)).
		Set("provider_status = ?", providerStatus).
		Set("updated_at = NOW()").
		Where("brcode = ?", brcode).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update provider status: %w", err)
	}
	return requireOneRow(res, brcode)
}

func requireOneRow(res sql.Result, brcode string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("payment request %s: %w", brcode, payment.ErrNotFound)
	}
	return nil
}

func (s *pgStore) Checkpoint(ctx context.Context, id string) (*payment.Checkpoint, error) {
	dao := new(SyncBlockDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sync checkpoint: %w", err)
	}

	cp := &payment.Checkpoint{
		ID:        dao.ID,
		LastBlock: uint64(dao.LastBlock),
	}
	if dao.UpdatedAt != nil {
		cp.UpdatedAt = *dao.UpdatedAt
	}
	return cp, nil
}

// SaveCheckpoint upserts the scan progress for id. GREATEST keeps the stored
// value monotonic even if a stale writer shows up late.
func (s *pgStore) SaveCheckpoint(ctx context.Context, id string, lastBlock uint64) error {
	dao := &SyncBlockDao{
		ID:        id,
		LastBlock: int64(lastBlock),
	}

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (id) DO UPDATE").
		Set("last_block = GREATEST(sb.last_block, EXCLUDED.last_block)").
		Set("updated_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save sync checkpoint: %w", err)
	}
	return nil
}
