package coordinator

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/habitvault/habitvault-backend/internal/fhe"
	"github.com/habitvault/habitvault-backend/internal/ledger"
	"github.com/habitvault/habitvault-backend/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// LedgerReader reads records directly from the chain, bypassing any
	// in-memory snapshot.
	LedgerReader interface {
		GetRecord(ctx context.Context, id string) (model.Record, error)
		GetCiphertextHandle(ctx context.Context, id string) (common.Hash, error)
	}

	// LedgerWriter submits signed transactions to the record contract.
	LedgerWriter interface {
		Connected() bool
		Signer() common.Address
		CreateRecord(ctx context.Context, p ledger.CreateRecordParams) error
		VerifyDecryption(ctx context.Context, id string, clearValues, proof []byte) error
	}

	// Encryptor turns a plaintext value into a bound ciphertext handle.
	Encryptor interface {
		EncryptUint64(ctx context.Context, contract, user common.Address, value uint64) (fhe.EncryptedInput, error)
	}

	// Decryptor publicly decrypts ciphertext handles with an attestation.
	Decryptor interface {
		PublicDecrypt(ctx context.Context, handles []common.Hash, contract common.Address) (fhe.DecryptionResult, error)
	}

	// Reloader refreshes the record snapshot after a successful write.
	Reloader interface {
		Reload(ctx context.Context) error
	}

	// StatusReporter drives the user-visible transaction banner.
	StatusReporter interface {
		Pending(message string)
		Succeed(message string)
		Fail(message string)
		Dismiss()
	}

	// HistoryRecorder appends to the operation history log.
	HistoryRecorder interface {
		Record(ctx context.Context, description string)
	}

	// Metrics records metrics for coordinator operations.
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)
