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
		log.Println("creating sync_blocks table...")
		return mghelper.CreateSchema(ctx, db, &paymentstore.SyncBlockDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping sync_blocks table...")
		return mghelper.DropTables(ctx, db, &paymentstore.SyncBlockDao{})
	})
}
