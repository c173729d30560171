package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConnected is returned by write operations when the client was
	// built without a signing identity.
	ErrNotConnected = errors.New("ledger: no signing identity configured")
	// ErrAlreadyVerified marks the benign first-writer-wins conflict on
	// verifyDecryption: another caller's proof landed first.
	ErrAlreadyVerified = errors.New("ledger: record already verified")
	// ErrUserRejected marks a signer-side refusal (external signer denied
	// the request). Benign, resolvable by retrying.
	ErrUserRejected = errors.New("ledger: signer rejected the request")
	// ErrTxFailed marks a transaction that was mined but reverted.
	ErrTxFailed = errors.New("ledger: transaction reverted")
)

// classifyWriteError maps raw send/estimate errors onto the ledger error
// taxonomy. The contract reverts verifyDecryption on an already-verified
// record with a reason containing "already verified"; external signers report
// refusals with "denied" or "user rejected" phrasing.
func classifyWriteError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already verified"):
		return fmt.Errorf("%w: %s", ErrAlreadyVerified, err)
	case strings.Contains(msg, "user rejected"),
		strings.Contains(msg, "request denied"),
		strings.Contains(msg, "user denied"):
		return fmt.Errorf("%w: %s", ErrUserRejected, err)
	default:
		return err
	}
}
