package paymentstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/eccentricexit/cipay-backend/pkg/payment"
)

// PaymentRequestDao is a data access object that maps directly to the
// 'payment_requests' table in PostgreSQL.
type PaymentRequestDao struct {
	bun.BaseModel     `bun:"table:payment_requests,alias:pr"`
	ID                int64      `bun:"id,pk,autoincrement"`
	Brcode            string     `bun:"brcode,unique,notnull,type:varchar(512)"`
	PayerAddress      string     `bun:"payer_address,notnull,type:varchar(42)"`
	Coin              string     `bun:"coin,notnull,type:varchar(42)"`
	Rate              string     `bun:"rate,notnull,type:varchar(80)"`
	TxHash            *string    `bun:"tx_hash,type:varchar(66)"`
	ReceiverTaxID     string     `bun:"receiver_tax_id,type:varchar(32)"`
	Description       string     `bun:"description,type:varchar(500)"`
	FiatAmount        int64      `bun:"fiat_amount,notnull"`
	ProviderPaymentID *string    `bun:"provider_payment_id,type:varchar(64)"`
	ProviderStatus    *string    `bun:"provider_status,type:varchar(32)"`
	Status            string     `bun:"status,notnull,type:varchar(16)"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt         *time.Time `bun:"updated_at"`
}

// SyncBlockDao maps to the 'sync_blocks' table, one row per watched token.
type SyncBlockDao struct {
	bun.BaseModel `bun:"table:sync_blocks,alias:sb"`
	ID            string     `bun:"id,pk,type:varchar(64)"`
	LastBlock     int64      `bun:"last_block,notnull"`
	UpdatedAt     *time.Time `bun:"updated_at"`
}

// toRequestDao converts a payment.Request to PaymentRequestDao.
func toRequestDao(req *payment.Request) *PaymentRequestDao {
	dao := &PaymentRequestDao{
		Brcode:        req.Brcode,
		PayerAddress:  req.PayerAddress,
		Coin:          req.Coin,
		Rate:          req.Rate,
		ReceiverTaxID: req.ReceiverTaxID,
		Description:   req.Description,
		FiatAmount:    req.FiatAmount,
		Status:        req.Status.String(),
	}

	if req.TxHash != "" {
		dao.TxHash = &req.TxHash
	}
	if req.ProviderPaymentID != "" {
		dao.ProviderPaymentID = &req.ProviderPaymentID
	}
	if req.ProviderStatus != "" {
		dao.ProviderStatus = &req.ProviderStatus
	}

	return dao
}

// toRequest converts a PaymentRequestDao to payment.Request. Rows carrying a
// status outside the lifecycle enum are rejected, not coerced.
func toRequest(dao *PaymentRequestDao) (*payment.Request, error) {
	status, err := payment.ParseStatus(dao.Status)
	if err != nil {
		return nil, fmt.Errorf("payment request %s: %w", dao.Brcode, err)
	}

	req := &payment.Request{
		Brcode:        dao.Brcode,
		PayerAddress:  dao.PayerAddress,
		Coin:          dao.Coin,
		Rate:          dao.Rate,
		ReceiverTaxID: dao.ReceiverTaxID,
		Description:   dao.Description,
		FiatAmount:    dao.FiatAmount,
		Status:        status,
		CreatedAt:     dao.CreatedAt,
	}

	if dao.TxHash != nil {
		req.TxHash = *dao.TxHash
	}
	if dao.ProviderPaymentID != nil {
		req.ProviderPaymentID = *dao.ProviderPaymentID
	}
	if dao.ProviderStatus != nil {
		req.ProviderStatus = *dao.ProviderStatus
	}
	if dao.UpdatedAt != nil {
		req.UpdatedAt = *dao.UpdatedAt
	}

	return req, nil
}
