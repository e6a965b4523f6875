package idempotency

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/domain"
)

// Store persists saved responses keyed by (callerID, key).
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the saved response, or nil and no error when none exists.
	Get(ctx context.Context, callerID uuid.UUID, key domain.IdempotencyKey) (*domain.SavedResponse, error)

	// Put saves resp and returns it as stored, with CreatedAt set by the store.
	// Returns ErrDuplicateKey if a response is already saved for the key.
	Put(ctx context.Context, callerID uuid.UUID, key domain.IdempotencyKey, resp domain.SavedResponse) (*domain.SavedResponse, error)
}
