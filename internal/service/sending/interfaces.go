// Package sending defines the outbound email capability.
//
// Implementations live in ses/ (AWS SES v2) and email/ (HTTP email API).
// cmd/server picks one from configuration.
package sending

import (
	"context"

	"github.com/ignite/newsletter/internal/domain"
)

// EmailSender delivers a single message to a single recipient. Implementations
// must be safe for concurrent use and must not retry on their own.
type EmailSender interface {
	SendEmail(ctx context.Context, to domain.SubscriberEmail, subject, htmlBody, textBody string) error
}
