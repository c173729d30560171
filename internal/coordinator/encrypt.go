// Package coordinator implements the write-side flows of the habit ledger:
// encrypting values, submitting records, and verifying decryptions. Each
// coordinator owns its concurrency discipline; the ledger and relayer clients
// stay oblivious.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/habitvault/habitvault-backend/internal/fhe"
)

// EncryptionCoordinator serializes relayer encryptions: at most one runs at a
// time, matching the relayer's per-user proof session.
type EncryptionCoordinator struct {
	logger    *zap.Logger
	contract  common.Address
	encryptor Encryptor
	metrics   Metrics

	busy atomic.Bool
}

// NewEncryptionCoordinator wires the single-flight encryption front.
func NewEncryptionCoordinator(
	logger *zap.Logger,
	contract common.Address,
	encryptor Encryptor,
	metrics Metrics,
) (*EncryptionCoordinator, error) {
	if logger == nil {
		return nil, errors.New("coordinator: logger is required")
	}
	if encryptor == nil {
		return nil, errors.New("coordinator: encryptor is required")
	}
	if metrics == nil {
		return nil, errors.New("coordinator: metrics is required")
	}
	return &EncryptionCoordinator{
		logger:    logger.Named("encryption_coordinator"),
		contract:  contract,
		encryptor: encryptor,
		metrics:   metrics,
	}, nil
}

// Encrypt encrypts value bound to (contract, user). A call arriving while
// another encryption is running fails fast with ErrEncryptionBusy.
func (c *EncryptionCoordinator) Encrypt(ctx context.Context, user common.Address, value uint64) (input fhe.EncryptedInput, err error) {
	if !c.busy.CompareAndSwap(false, true) {
		return fhe.EncryptedInput{}, ErrEncryptionBusy
	}
	defer c.busy.Store(false)

	started := time.Now()
	defer func() {
		c.metrics.Observe("encrypt", err, started)
	}()

	input, err = c.encryptor.EncryptUint64(ctx, c.contract, user, value)
	if err != nil {
		c.logger.Error("encryption failed", zap.Error(err))
		return fhe.EncryptedInput{}, fmt.Errorf("%w: %s", ErrEncryptionFailed, err)
	}

	c.logger.Debug("value encrypted", zap.Stringer("handle", input.Handle))
	return input, nil
}
