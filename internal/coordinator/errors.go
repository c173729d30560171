package coordinator

import "errors"

var (
	// ErrEncryptionBusy rejects a second encryption while one is running.
	ErrEncryptionBusy = errors.New("coordinator: encryption already in progress")

	// ErrVerificationInFlight rejects a concurrent verification of the
	// same record.
	ErrVerificationInFlight = errors.New("coordinator: verification already in progress")

	// ErrNegativeValue rejects plaintext values below zero before they
	// reach the relayer.
	ErrNegativeValue = errors.New("coordinator: value must not be negative")

	// ErrEncryptionFailed wraps relayer encryption failures.
	ErrEncryptionFailed = errors.New("coordinator: encryption failed")

	// ErrSubmissionFailed wraps createRecord failures other than a user
	// rejection.
	ErrSubmissionFailed = errors.New("coordinator: submission failed")

	// ErrVerificationFailed wraps decrypt and verifyDecryption failures
	// other than a user rejection or an already-verified record.
	ErrVerificationFailed = errors.New("coordinator: verification failed")
)
