// Package ledger provides read and signed-write access to the habit record
// contract. It is the only component that talks to the chain; everything
// above it consumes plain domain models.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/habitvault/habitvault-backend/internal/model"
	"github.com/habitvault/habitvault-backend/pkg/safe"
)

// recordLedgerABI is the client-facing surface of the habit record contract.
// The protected value is referenced by a bytes32 ciphertext handle; the
// clearValue output is meaningful only once verified is true.
const recordLedgerABI = `[
	{"type":"function","name":"getAllRecordIds","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string[]"}]},
	{"type":"function","name":"getRecord","stateMutability":"view","inputs":[{"name":"id","type":"string"}],"outputs":[
		{"name":"name","type":"string"},
		{"name":"description","type":"string"},
		{"name":"publicMetric1","type":"uint64"},
		{"name":"publicMetric2","type":"uint64"},
		{"name":"createdAt","type":"uint256"},
		{"name":"creator","type":"address"},
		{"name":"verified","type":"bool"},
		{"name":"clearValue","type":"uint64"}]},
	{"type":"function","name":"getCiphertextHandle","stateMutability":"view","inputs":[{"name":"id","type":"string"}],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"isAvailable","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"createRecord","stateMutability":"nonpayable","inputs":[
		{"name":"id","type":"string"},
		{"name":"name","type":"string"},
		{"name":"ciphertextHandle","type":"bytes32"},
		{"name":"inputProof","type":"bytes"},
		{"name":"publicMetric1","type":"uint64"},
		{"name":"categoryIndex","type":"uint32"},
		{"name":"categoryLabel","type":"string"}],"outputs":[]},
	{"type":"function","name":"verifyDecryption","stateMutability":"nonpayable","inputs":[
		{"name":"id","type":"string"},
		{"name":"clearValues","type":"bytes"},
		{"name":"decryptionProof","type":"bytes"}],"outputs":[]}
]`

// Backend is the subset of an Ethereum client the ledger gateway needs:
// contract calls, transaction submission, and receipt lookups for the
// confirmation wait. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// CreateRecordParams carries one createRecord write. PublicMetric1 is the
// public convenience copy of the protected value; the confidential copy
// travels only inside CiphertextHandle/InputProof.
type CreateRecordParams struct {
	ID               string
	Name             string
	CiphertextHandle common.Hash
	InputProof       []byte
	PublicMetric1    uint64
	CategoryIndex    uint32
	CategoryLabel    string
}

// Client is the contract gateway. Reads work without a signer; writes require
// one and block until the transaction is mined.
type Client struct {
	address  common.Address
	contract *bind.BoundContract
	backend  Backend
	signer   *bind.TransactOpts
}

// NewClient builds a gateway for the record contract at address. A nil signer
// yields a read-only client whose writes fail with ErrNotConnected.
func NewClient(address common.Address, backend Backend, signer *bind.TransactOpts) (*Client, error) {
	if backend == nil {
		return nil, fmt.Errorf("ledger: backend is required")
	}

	parsed, err := abi.JSON(strings.NewReader(recordLedgerABI))
	if err != nil {
		return nil, fmt.Errorf("parse record ledger abi: %w", err)
	}

	return &Client{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		backend:  backend,
		signer:   signer,
	}, nil
}

// Address returns the bound contract address.
func (c *Client) Address() common.Address {
	return c.address
}

// Connected reports whether the client can sign writes.
func (c *Client) Connected() bool {
	return c.signer != nil
}

// Signer returns the signing account, or the zero address when read-only.
func (c *Client) Signer() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.From
}

// ListRecordIDs returns all record ids known to the contract.
func (c *Client) ListRecordIDs(ctx context.Context) ([]string, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getAllRecordIds"); err != nil {
		return nil, fmt.Errorf("getAllRecordIds: %w", err)
	}
	ids, ok := out[0].([]string)
	if !ok {
		return nil, fmt.Errorf("getAllRecordIds: unexpected output type %T", out[0])
	}
	return ids, nil
}

// GetRecord fetches a record's public and encrypted metadata.
func (c *Client) GetRecord(ctx context.Context, id string) (model.Record, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getRecord", id); err != nil {
		return model.Record{}, fmt.Errorf("getRecord %s: %w", id, err)
	}
	record, err := decodeRecord(id, out)
	if err != nil {
		return model.Record{}, fmt.Errorf("getRecord %s: %w", id, err)
	}
	return record, nil
}

// GetCiphertextHandle returns the handle of the record's protected value.
func (c *Client) GetCiphertextHandle(ctx context.Context, id string) (common.Hash, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCiphertextHandle", id); err != nil {
		return common.Hash{}, fmt.Errorf("getCiphertextHandle %s: %w", id, err)
	}
	raw, ok := out[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("getCiphertextHandle %s: unexpected output type %T", id, out[0])
	}
	return common.Hash(raw), nil
}

// IsAvailable probes the contract's availability view.
func (c *Client) IsAvailable(ctx context.Context) (bool, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "isAvailable"); err != nil {
		return false, fmt.Errorf("isAvailable: %w", err)
	}
	available, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("isAvailable: unexpected output type %T", out[0])
	}
	return available, nil
}

// CreateRecord submits a createRecord write and waits for confirmation.
func (c *Client) CreateRecord(ctx context.Context, p CreateRecordParams) error {
	return c.transact(ctx, "createRecord",
		p.ID, p.Name, [32]byte(p.CiphertextHandle), p.InputProof,
		p.PublicMetric1, p.CategoryIndex, p.CategoryLabel)
}

// VerifyDecryption submits the decryption proof for a record and waits for
// confirmation. The contract accepts at most one successful verification per
// record; losing the race surfaces as ErrAlreadyVerified.
func (c *Client) VerifyDecryption(ctx context.Context, id string, clearValues, proof []byte) error {
	return c.transact(ctx, "verifyDecryption", id, clearValues, proof)
}

func (c *Client) transact(ctx context.Context, method string, args ...interface{}) error {
	if c.signer == nil {
		return ErrNotConnected
	}

	opts := *c.signer
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, method, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", method, classifyWriteError(err))
	}

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return fmt.Errorf("%s: wait mined %s: %w", method, tx.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%s: tx %s: %w", method, tx.Hash(), ErrTxFailed)
	}
	return nil
}

func decodeRecord(id string, out []interface{}) (model.Record, error) {
	if len(out) != 8 {
		return model.Record{}, fmt.Errorf("expected 8 outputs, got %d", len(out))
	}

	name, ok := out[0].(string)
	if !ok {
		return model.Record{}, fmt.Errorf("name: unexpected type %T", out[0])
	}
	pm1, ok := out[2].(uint64)
	if !ok {
		return model.Record{}, fmt.Errorf("publicMetric1: unexpected type %T", out[2])
	}
	pm2, ok := out[3].(uint64)
	if !ok {
		return model.Record{}, fmt.Errorf("publicMetric2: unexpected type %T", out[3])
	}
	createdAt, err := decodeTimestamp(out[4])
	if err != nil {
		return model.Record{}, err
	}
	creator, ok := out[5].(common.Address)
	if !ok {
		return model.Record{}, fmt.Errorf("creator: unexpected type %T", out[5])
	}
	verified, ok := out[6].(bool)
	if !ok {
		return model.Record{}, fmt.Errorf("verified: unexpected type %T", out[6])
	}
	clearValue, ok := out[7].(uint64)
	if !ok {
		return model.Record{}, fmt.Errorf("clearValue: unexpected type %T", out[7])
	}

	categoryIndex, err := safe.Uint32(pm2)
	if err != nil {
		return model.Record{}, fmt.Errorf("categoryIndex: %w", err)
	}

	return model.Record{
		ID:            id,
		Name:          name,
		Category:      model.CategoryLabel(categoryIndex),
		CategoryIndex: categoryIndex,
		CreatedAt:     createdAt,
		Creator:       creator,
		PublicMetric1: pm1,
		PublicMetric2: pm2,
		Verified:      verified,
		ClearValue:    clearValue,
	}, nil
}

func decodeTimestamp(v interface{}) (time.Time, error) {
	raw, ok := v.(*big.Int)
	if !ok {
		return time.Time{}, fmt.Errorf("createdAt: unexpected type %T", v)
	}
	sec, err := safe.Int64FromBig(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("createdAt: %w", err)
	}
	return time.Unix(sec, 0).UTC(), nil
}
