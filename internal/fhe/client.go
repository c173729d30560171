// Package fhe is the boundary to the FHE relayer service. The relayer owns
// the cryptography; this client only shuttles handles, proofs, and clear
// values over its REST API.
package fhe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	encryptPath       = "/v1/input-proof"
	publicDecryptPath = "/v1/public-decrypt"

	defaultTimeout = 60 * time.Second
)

// ErrRelayer marks failures reported by the relayer itself, as opposed to
// transport errors.
var ErrRelayer = errors.New("fhe: relayer rejected the request")

type (
	// Metrics records metrics for relayer calls.
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

// EncryptedInput is a ciphertext handle bound to a (contract, user) pair plus
// the submission proof the contract checks on createRecord.
type EncryptedInput struct {
	Handle common.Hash
	Proof  []byte
}

// DecryptionResult carries the outcome of a public decrypt: per-handle clear
// values, their ABI encoding, and the decryption proof. The caller performs
// the verifyDecryption ledger write itself.
type DecryptionResult struct {
	ClearValues map[common.Hash]uint64
	ABIEncoded  []byte
	Proof       []byte
}

// Client talks to the FHE relayer over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	metrics Metrics
}

// NewClient constructs a relayer client for the given base URL.
func NewClient(baseURL string, metrics Metrics) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("fhe: relayer url is required")
	}
	if metrics == nil {
		return nil, errors.New("fhe: metrics is required")
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		metrics: metrics,
	}, nil
}

type encryptRequest struct {
	ContractAddress common.Address `json:"contractAddress"`
	UserAddress     common.Address `json:"userAddress"`
	Values          []uint64       `json:"values"`
}

type encryptResponse struct {
	Handles    []common.Hash `json:"handles"`
	InputProof hexutil.Bytes `json:"inputProof"`
}

// EncryptUint64 encrypts a single integer bound to (contract, user) and
// returns the ciphertext handle plus submission proof.
func (c *Client) EncryptUint64(ctx context.Context, contract, user common.Address, value uint64) (input EncryptedInput, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("encrypt", err, started)
	}()

	var resp encryptResponse
	err = c.post(ctx, encryptPath, encryptRequest{
		ContractAddress: contract,
		UserAddress:     user,
		Values:          []uint64{value},
	}, &resp)
	if err != nil {
		return EncryptedInput{}, err
	}
	if len(resp.Handles) != 1 {
		return EncryptedInput{}, fmt.Errorf("fhe: expected one handle, got %d", len(resp.Handles))
	}

	return EncryptedInput{Handle: resp.Handles[0], Proof: resp.InputProof}, nil
}

type decryptRequest struct {
	ContractAddress common.Address `json:"contractAddress"`
	Handles         []common.Hash  `json:"handles"`
}

type decryptResponse struct {
	ClearValues     map[common.Hash]string `json:"clearValues"`
	ABIEncoded      hexutil.Bytes          `json:"abiEncodedClearValues"`
	DecryptionProof hexutil.Bytes          `json:"decryptionProof"`
}

// PublicDecrypt asks the relayer to decrypt the handles and attest the result.
// Decimal-string clear values keep the wire format safe for >53-bit integers.
func (c *Client) PublicDecrypt(ctx context.Context, handles []common.Hash, contract common.Address) (result DecryptionResult, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("public_decrypt", err, started)
	}()

	if len(handles) == 0 {
		return DecryptionResult{}, errors.New("fhe: no handles to decrypt")
	}

	var resp decryptResponse
	err = c.post(ctx, publicDecryptPath, decryptRequest{
		ContractAddress: contract,
		Handles:         handles,
	}, &resp)
	if err != nil {
		return DecryptionResult{}, err
	}

	values := make(map[common.Hash]uint64, len(handles))
	for _, handle := range handles {
		raw, ok := resp.ClearValues[handle]
		if !ok {
			return DecryptionResult{}, fmt.Errorf("fhe: missing clear value for handle %s", handle)
		}
		value, parseErr := strconv.ParseUint(raw, 10, 64)
		if parseErr != nil {
			return DecryptionResult{}, fmt.Errorf("fhe: clear value for %s: %w", handle, parseErr)
		}
		values[handle] = value
	}

	return DecryptionResult{
		ClearValues: values,
		ABIEncoded:  resp.ABIEncoded,
		Proof:       resp.DecryptionProof,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("fhe: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("fhe: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fhe: %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("fhe: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %d: %s", ErrRelayer, path, resp.StatusCode, bytes.TrimSpace(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("fhe: decode response: %w", err)
	}
	return nil
}
