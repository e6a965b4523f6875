package newsletter

import (
	"context"

	"github.com/ignite/newsletter/internal/domain"
)

// SubscriberSource supplies the delivery snapshot.
type SubscriberSource interface {
	// ConfirmedSubscribers returns every confirmed subscriber in a stable
	// order. Emails are returned as stored and may fail validation.
	ConfirmedSubscribers(ctx context.Context) ([]domain.StoredSubscriber, error)
}

// Archiver keeps a copy of each published issue.
type Archiver interface {
	Archive(ctx context.Context, issue domain.PublishedIssue) error
}
