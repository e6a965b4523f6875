package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/domain"
)

// Repository defines the data access contract for subscriptions.
// Implementations must be safe for concurrent use.
type Repository interface {
	// SubscriberIDByToken resolves a confirmation token. Returns
	// ErrUnknownToken if no subscriber owns it.
	SubscriberIDByToken(ctx context.Context, token string) (uuid.UUID, error)

	// ConfirmSubscriber sets the subscriber's status to confirmed regardless
	// of its current status.
	ConfirmSubscriber(ctx context.Context, id uuid.UUID) error

	// CreatePending stores a pending_confirmation subscriber and its token
	// atomically.
	CreatePending(ctx context.Context, p PendingSubscriber) error
}

// PendingSubscriber is a signup ready to be persisted.
type PendingSubscriber struct {
	ID           uuid.UUID
	Email        domain.SubscriberEmail
	Name         domain.SubscriberName
	Token        string
	SubscribedAt time.Time
}
