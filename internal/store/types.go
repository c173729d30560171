package store

import (
	"context"
	"time"

	"github.com/habitvault/habitvault-backend/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Ledger is the read-side of the record contract.
	Ledger interface {
		ListRecordIDs(ctx context.Context) ([]string, error)
		GetRecord(ctx context.Context, id string) (model.Record, error)
	}

	// Metrics records metrics for store reloads.
	Metrics interface {
		ObserveReload(err error, records, skipped int, started time.Time)
	}
)
