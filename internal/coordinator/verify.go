package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/habitvault/habitvault-backend/internal/ledger"
)

// VerificationCoordinator runs the public-decrypt-and-attest flow for one
// record at a time per record id. Verification is idempotent: verifying an
// already verified record is a no-op.
type VerificationCoordinator struct {
	logger    *zap.Logger
	contract  common.Address
	reader    LedgerReader
	writer    LedgerWriter
	decryptor Decryptor
	reloader  Reloader
	status    StatusReporter
	history   HistoryRecorder
	metrics   Metrics

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewVerificationCoordinator wires the verification flow.
func NewVerificationCoordinator(
	logger *zap.Logger,
	contract common.Address,
	reader LedgerReader,
	writer LedgerWriter,
	decryptor Decryptor,
	reloader Reloader,
	status StatusReporter,
	history HistoryRecorder,
	metrics Metrics,
) (*VerificationCoordinator, error) {
	if logger == nil {
		return nil, errors.New("coordinator: logger is required")
	}
	if reader == nil || writer == nil {
		return nil, errors.New("coordinator: reader and writer are required")
	}
	if decryptor == nil {
		return nil, errors.New("coordinator: decryptor is required")
	}
	if reloader == nil || status == nil || history == nil || metrics == nil {
		return nil, errors.New("coordinator: reloader, status, history and metrics are required")
	}
	return &VerificationCoordinator{
		logger:    logger.Named("verification_coordinator"),
		contract:  contract,
		reader:    reader,
		writer:    writer,
		decryptor: decryptor,
		reloader:  reloader,
		status:    status,
		history:   history,
		metrics:   metrics,
		inflight:  make(map[string]struct{}),
	}, nil
}

// Verify decrypts the record's protected value and attests it on the ledger.
// The returned pointer is nil when the attestation raced another verifier and
// lost; the record is verified either way. The decision is always made
// against a fresh ledger read, never the snapshot.
func (c *VerificationCoordinator) Verify(ctx context.Context, recordID string) (clear *uint64, err error) {
	if !c.acquire(recordID) {
		return nil, ErrVerificationInFlight
	}
	defer c.release(recordID)

	started := time.Now()
	defer func() {
		c.metrics.Observe("verify", err, started)
	}()

	logger := c.logger.With(zap.String("record_id", recordID))

	record, err := c.reader.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("%w: read record: %s", ErrVerificationFailed, err)
	}
	if record.Verified {
		logger.Debug("record already verified, skipping")
		return &record.ClearValue, nil
	}

	if !c.writer.Connected() {
		return nil, ledger.ErrNotConnected
	}

	handle, err := c.reader.GetCiphertextHandle(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("%w: read ciphertext handle: %s", ErrVerificationFailed, err)
	}

	c.status.Pending("正在解密数据...")

	result, err := c.decryptor.PublicDecrypt(ctx, []common.Hash{handle}, c.contract)
	if err != nil {
		logger.Error("public decrypt failed", zap.Error(err))
		c.status.Fail("解密失败")
		c.history.Record(ctx, fmt.Sprintf("验证记录失败: %s", recordID))
		return nil, fmt.Errorf("%w: %s", ErrVerificationFailed, err)
	}

	value, ok := result.ClearValues[handle]
	if !ok {
		c.status.Fail("解密失败")
		return nil, fmt.Errorf("%w: relayer returned no value for handle %s", ErrVerificationFailed, handle)
	}

	c.status.Pending("正在提交验证...")

	err = c.writer.VerifyDecryption(ctx, recordID, result.ABIEncoded, result.Proof)
	switch {
	case errors.Is(err, ledger.ErrAlreadyVerified):
		// Someone attested first. The record is in the state we wanted,
		// so this is not a failure.
		logger.Info("record verified by another party")
		err = nil
		c.status.Succeed("记录已验证")
		c.refresh(ctx, logger)
		return nil, nil

	case errors.Is(err, ledger.ErrUserRejected):
		logger.Info("verification rejected by user")
		c.status.Dismiss()
		return nil, err

	case err != nil:
		// An attestation estimated before the winner mined reverts without
		// the contract's revert reason. Reconcile against the ledger before
		// declaring failure.
		if errors.Is(err, ledger.ErrTxFailed) {
			if fresh, readErr := c.reader.GetRecord(ctx, recordID); readErr == nil && fresh.Verified {
				logger.Info("record verified by another party")
				err = nil
				c.status.Succeed("记录已验证")
				c.refresh(ctx, logger)
				return nil, nil
			}
		}
		logger.Error("verification failed", zap.Error(err))
		c.status.Fail("验证提交失败")
		c.history.Record(ctx, fmt.Sprintf("验证记录失败: %s", recordID))
		return nil, fmt.Errorf("%w: %s", ErrVerificationFailed, err)
	}

	logger.Info("record verified", zap.Uint64("clear_value", value))
	c.status.Succeed("验证成功")
	c.history.Record(ctx, fmt.Sprintf("验证记录: %s", recordID))
	c.refresh(ctx, logger)

	return &value, nil
}

func (c *VerificationCoordinator) refresh(ctx context.Context, logger *zap.Logger) {
	if err := c.reloader.Reload(ctx); err != nil {
		logger.Warn("snapshot not refreshed after verify", zap.Error(err))
	}
}

func (c *VerificationCoordinator) acquire(recordID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inflight[recordID]; busy {
		return false
	}
	c.inflight[recordID] = struct{}{}
	return true
}

func (c *VerificationCoordinator) release(recordID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.inflight, recordID)
}
