package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/habitvault/habitvault-backend/internal/ledger"
	"github.com/habitvault/habitvault-backend/internal/model"
	"github.com/habitvault/habitvault-backend/pkg/safe"
)

// SubmitParams is one record submission as entered by the user.
type SubmitParams struct {
	Name     string
	Category string
	Value    int64
}

// SubmissionCoordinator runs the create-record flow end to end: encrypt,
// submit, report status, log history, refresh the snapshot.
type SubmissionCoordinator struct {
	logger    *zap.Logger
	encryptor *EncryptionCoordinator
	writer    LedgerWriter
	reloader  Reloader
	status    StatusReporter
	history   HistoryRecorder
	metrics   Metrics

	now func() time.Time
}

// NewSubmissionCoordinator wires the submission flow.
func NewSubmissionCoordinator(
	logger *zap.Logger,
	encryptor *EncryptionCoordinator,
	writer LedgerWriter,
	reloader Reloader,
	status StatusReporter,
	history HistoryRecorder,
	metrics Metrics,
) (*SubmissionCoordinator, error) {
	if logger == nil {
		return nil, errors.New("coordinator: logger is required")
	}
	if encryptor == nil {
		return nil, errors.New("coordinator: encryptor is required")
	}
	if writer == nil {
		return nil, errors.New("coordinator: writer is required")
	}
	if reloader == nil {
		return nil, errors.New("coordinator: reloader is required")
	}
	if status == nil || history == nil || metrics == nil {
		return nil, errors.New("coordinator: status, history and metrics are required")
	}
	return &SubmissionCoordinator{
		logger:    logger.Named("submission_coordinator"),
		encryptor: encryptor,
		writer:    writer,
		reloader:  reloader,
		status:    status,
		history:   history,
		metrics:   metrics,
		now:       time.Now,
	}, nil
}

// Submit creates a record on the ledger and returns its id. A user rejection
// dismisses the banner silently and surfaces ledger.ErrUserRejected; every
// other failure shows an error banner.
func (c *SubmissionCoordinator) Submit(ctx context.Context, p SubmitParams) (recordID string, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("submit", err, started)
	}()

	if !c.writer.Connected() {
		return "", ledger.ErrNotConnected
	}
	if p.Name == "" {
		return "", fmt.Errorf("%w: name is required", ErrSubmissionFailed)
	}

	value, err := safe.Uint64(p.Value)
	if err != nil {
		return "", fmt.Errorf("%w: %d", ErrNegativeValue, p.Value)
	}

	recordID = fmt.Sprintf("habit-%d", c.now().UnixMilli())
	logger := c.logger.With(zap.String("record_id", recordID))

	c.status.Pending("正在加密数据...")

	input, err := c.encryptor.Encrypt(ctx, c.writer.Signer(), value)
	if err != nil {
		if errors.Is(err, ErrEncryptionBusy) {
			c.status.Dismiss()
			return "", err
		}
		c.status.Fail("数据加密失败")
		c.history.Record(ctx, fmt.Sprintf("创建记录失败: %s", p.Name))
		return "", err
	}

	c.status.Pending("正在提交交易...")

	err = c.writer.CreateRecord(ctx, ledger.CreateRecordParams{
		ID:               recordID,
		Name:             p.Name,
		CiphertextHandle: input.Handle,
		InputProof:       input.Proof,
		PublicMetric1:    value,
		CategoryIndex:    model.CategoryIndex(p.Category),
		CategoryLabel:    p.Category,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrUserRejected) {
			logger.Info("submission rejected by user")
			c.status.Dismiss()
			return "", err
		}
		logger.Error("submission failed", zap.Error(err))
		c.status.Fail("交易提交失败")
		c.history.Record(ctx, fmt.Sprintf("创建记录失败: %s", p.Name))
		return "", fmt.Errorf("%w: %s", ErrSubmissionFailed, err)
	}

	logger.Info("record created", zap.String("name", p.Name))
	c.status.Succeed("记录创建成功")
	c.history.Record(ctx, fmt.Sprintf("创建记录: %s", p.Name))

	if reloadErr := c.reloader.Reload(ctx); reloadErr != nil {
		logger.Warn("snapshot not refreshed after submit", zap.Error(reloadErr))
	}

	return recordID, nil
}
