package ledger

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/habitvault/habitvault-backend/internal/model"
)

type (
	// Metrics records metrics for contract calls.
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

// ObservedClient wraps the contract gateway with metrics instrumentation.
type ObservedClient struct {
	client  *Client
	metrics Metrics
}

// NewObservedClient constructs an instrumented gateway.
func NewObservedClient(client *Client, metrics Metrics) *ObservedClient {
	return &ObservedClient{
		client:  client,
		metrics: metrics,
	}
}

// Address returns the bound contract address.
func (o *ObservedClient) Address() common.Address {
	return o.client.Address()
}

// Connected reports whether the client can sign writes.
func (o *ObservedClient) Connected() bool {
	return o.client.Connected()
}

// Signer returns the signing account, or the zero address when read-only.
func (o *ObservedClient) Signer() common.Address {
	return o.client.Signer()
}

// ListRecordIDs returns all record ids known to the contract.
func (o *ObservedClient) ListRecordIDs(ctx context.Context) (ids []string, err error) {
	started := time.Now()
	defer func() {
		o.metrics.Observe("list_record_ids", err, started)
	}()
	return o.client.ListRecordIDs(ctx)
}

// GetRecord fetches a record's public and encrypted metadata.
func (o *ObservedClient) GetRecord(ctx context.Context, id string) (record model.Record, err error) {
	started := time.Now()
	defer func() {
		o.metrics.Observe("get_record", err, started)
	}()
	return o.client.GetRecord(ctx, id)
}

// GetCiphertextHandle returns the handle of the record's protected value.
func (o *ObservedClient) GetCiphertextHandle(ctx context.Context, id string) (handle common.Hash, err error) {
	started := time.Now()
	defer func() {
		o.metrics.Observe("get_ciphertext_handle", err, started)
	}()
	return o.client.GetCiphertextHandle(ctx, id)
}

// IsAvailable probes the contract's availability view.
func (o *ObservedClient) IsAvailable(ctx context.Context) (available bool, err error) {
	started := time.Now()
	defer func() {
		o.metrics.Observe("is_available", err, started)
	}()
	return o.client.IsAvailable(ctx)
}

// CreateRecord submits a createRecord write and waits for confirmation.
func (o *ObservedClient) CreateRecord(ctx context.Context, p CreateRecordParams) (err error) {
	started := time.Now()
	defer func() {
		o.metrics.Observe("create_record", err, started)
	}()
	return o.client.CreateRecord(ctx, p)
}

// VerifyDecryption submits the decryption proof for a record and waits for
// confirmation.
func (o *ObservedClient) VerifyDecryption(ctx context.Context, id string, clearValues, proof []byte) (err error) {
	started := time.Now()
	defer func() {
		o.metrics.Observe("verify_decryption", err, started)
	}()
	return o.client.VerifyDecryption(ctx, id, clearValues, proof)
}
