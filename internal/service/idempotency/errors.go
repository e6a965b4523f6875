package idempotency

import "errors"

// Sentinel errors for the idempotency service layer.
var (
	// ErrDuplicateKey is returned by Store.Put when a response is already
	// saved for the composite key.
	ErrDuplicateKey = errors.New("idempotency: response already saved for key")

	// ErrInFlight is returned by Guard.Execute when another request holds the
	// lock for the same key.
	ErrInFlight = errors.New("idempotency: request with the same key is in progress")

	// ErrLockLost cancels a running command whose in-flight lock expired or
	// was taken over before the command finished.
	ErrLockLost = errors.New("idempotency: in-flight lock lost")
)
