package domain

import (
	"time"
	"unicode/utf8"
)

// MaxIdempotencyKeyLength bounds the key, counted in characters.
const MaxIdempotencyKeyLength = 50

// IdempotencyKey is a client-supplied token that identifies one logical submission.
type IdempotencyKey string

// ParseIdempotencyKey rejects empty keys and keys longer than MaxIdempotencyKeyLength.
func ParseIdempotencyKey(raw string) (IdempotencyKey, error) {
	if raw == "" {
		return "", invalid("idempotency_key", "", "cannot be empty")
	}
	if utf8.RuneCountInString(raw) > MaxIdempotencyKeyLength {
		return "", invalid("idempotency_key", "", "must be shorter than 50 characters")
	}
	return IdempotencyKey(raw), nil
}

func (k IdempotencyKey) String() string { return string(k) }

// HeaderPair is one response header. Repeated names are kept as separate pairs
// so that replay reproduces the original order.
type HeaderPair struct {
	Name  string `json:"name"`
	Value []byte `json:"value"`
}

// SavedResponse is the persisted outcome of a completed command. It is
// written once per (caller, key) and never modified.
type SavedResponse struct {
	StatusCode int          `json:"status_code"`
	Headers    []HeaderPair `json:"headers"`
	Body       []byte       `json:"body"`
	CreatedAt  time.Time    `json:"created_at"`
}
