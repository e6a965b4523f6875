package newsletter

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/service/sending"
)

// SkippedRecipient is a stored subscriber whose email failed validation.
type SkippedRecipient struct {
	SubscriberID uuid.UUID
	Reason       string
}

// Report summarizes a successful delivery.
type Report struct {
	Recipients int
	Delivered  int
	Skipped    []SkippedRecipient
}

// Engine fans an issue out to confirmed subscribers.
type Engine struct {
	source SubscriberSource
	sender sending.EmailSender
	log    *logger.Logger
	tracer trace.Tracer
}

// NewEngine creates a delivery engine. A nil tracer disables tracing.
func NewEngine(source SubscriberSource, sender sending.EmailSender, log *logger.Logger, tracer trace.Tracer) *Engine {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Engine{source: source, sender: sender, log: log, tracer: tracer}
}

// Deliver sends content to every confirmed subscriber with a valid email.
// It stops at the first failed send and returns a *DeliveryError.
func (e *Engine) Deliver(ctx context.Context, content domain.NewsletterContent) (*Report, error) {
	subscribers, err := e.confirmedSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Recipients: len(subscribers)}
	for _, sub := range subscribers {
		email, err := domain.ParseEmail(sub.Email)
		if err != nil {
			e.log.Warn("skipping a confirmed subscriber, their stored contact details are invalid",
				"subscriber_id", sub.ID, "error", err)
			report.Skipped = append(report.Skipped, SkippedRecipient{SubscriberID: sub.ID, Reason: err.Error()})
			continue
		}
		if err := e.sender.SendEmail(ctx, email, content.Title, content.ContentHTML, content.ContentText); err != nil {
			return nil, &DeliveryError{SubscriberID: sub.ID, Recipient: email.String(), Err: err}
		}
		report.Delivered++
	}
	return report, nil
}

func (e *Engine) confirmedSnapshot(ctx context.Context) ([]domain.StoredSubscriber, error) {
	ctx, span := e.tracer.Start(ctx, "retrieve confirmed subscribers")
	defer span.End()

	subscribers, err := e.source.ConfirmedSubscribers(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("retrieve confirmed subscribers: %w", err)
	}
	span.SetAttributes(attribute.Int("subscribers", len(subscribers)))
	return subscribers, nil
}
