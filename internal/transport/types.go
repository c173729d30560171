package transport

import (
	"context"

	"github.com/habitvault/habitvault-backend/internal/coordinator"
	"github.com/habitvault/habitvault-backend/internal/model"
	"github.com/habitvault/habitvault-backend/internal/status"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Records serves the in-memory record snapshot.
	Records interface {
		List(filter model.Filter) []model.Record
		Stats() model.Stats
		Reload(ctx context.Context) error
	}

	// Submitter creates records on the ledger.
	Submitter interface {
		Submit(ctx context.Context, p coordinator.SubmitParams) (string, error)
	}

	// Verifier runs the decrypt-and-attest flow for a record.
	Verifier interface {
		Verify(ctx context.Context, recordID string) (*uint64, error)
	}

	// History serves and appends to the operation log.
	History interface {
		List() []model.Operation
		Record(ctx context.Context, description string)
	}

	// Status serves the current transaction banner and raises transient
	// banners for handler-initiated operations.
	Status interface {
		Current() (status.Status, bool)
		Succeed(message string)
		Fail(message string)
	}

	// Health probes the ledger contract.
	Health interface {
		IsAvailable(ctx context.Context) (bool, error)
	}
)
