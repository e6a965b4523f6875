package newsletter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
)

// Publisher runs a delivery and archives the issue once it succeeds.
type Publisher struct {
	engine   *Engine
	archiver Archiver
	log      *logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewPublisher creates a publisher. archiver may be nil.
func NewPublisher(engine *Engine, archiver Archiver, log *logger.Logger, tracer trace.Tracer) *Publisher {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Publisher{engine: engine, archiver: archiver, log: log, tracer: tracer, now: time.Now}
}

// Publish delivers content on behalf of callerID. Archive failures are logged
// and never fail the publish.
func (p *Publisher) Publish(ctx context.Context, callerID uuid.UUID, content domain.NewsletterContent) (*Report, error) {
	ctx, span := p.tracer.Start(ctx, "publish newsletter",
		trace.WithAttributes(attribute.String("caller_id", callerID.String())))
	defer span.End()

	report, err := p.engine.Deliver(ctx, content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		return nil, err
	}
	p.log.Info("newsletter issue delivered",
		"caller_id", callerID,
		"recipients", report.Recipients,
		"delivered", report.Delivered,
		"skipped", len(report.Skipped))

	if p.archiver != nil {
		issue := domain.PublishedIssue{
			ID:          uuid.New(),
			PublishedBy: callerID,
			Content:     content,
			Recipients:  report.Recipients,
			Delivered:   report.Delivered,
			Skipped:     len(report.Skipped),
			PublishedAt: p.now().UTC(),
		}
		if err := p.archiver.Archive(ctx, issue); err != nil {
			p.log.Warn("failed to archive newsletter issue", "issue_id", issue.ID, "error", err)
		}
	}
	return report, nil
}
