package paymentdb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/eccentricexit/cipay-backend/pkg/paymentstore"
	mghelper "github.com/eccentricexit/cipay-backend/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating payment_requests table...")
		if err := mghelper.CreateSchema(ctx, db, &paymentstore.PaymentRequestDao{}); err != nil {
			return err
		}
		// tx_hash and provider_payment_id are unique once set; brcode is
		// unique via its column constraint.
		if err := mghelper.CreateModelUniqueIndexes(ctx, db, &paymentstore.PaymentRequestDao{}, "tx_hash", "provider_payment_id"); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &paymentstore.PaymentRequestDao{}, "status", "payer_address")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping payment_requests table...")
		return mghelper.DropTables(ctx, db, &paymentstore.PaymentRequestDao{})
	})
}
