package subscription

import "errors"

// Sentinel errors for the subscription service layer.
var (
	ErrUnknownToken = errors.New("subscription token not found")
)
