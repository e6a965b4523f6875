package subscription

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/service/sending"
)

// Service implements the confirmation state machine. All public methods are
// safe for concurrent use if the repository and sender are.
type Service struct {
	repo    Repository
	sender  sending.EmailSender
	baseURL string
	tmpl    *confirmationTemplates
	log     *logger.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewService creates a subscription service. baseURL is the public address
// used to build confirmation links.
func NewService(repo Repository, sender sending.EmailSender, baseURL string, log *logger.Logger, tracer trace.Tracer) (*Service, error) {
	tmpl, err := parseConfirmationTemplates()
	if err != nil {
		return nil, err
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Service{
		repo:    repo,
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
		tmpl:    tmpl,
		log:     log,
		tracer:  tracer,
		now:     time.Now,
	}, nil
}

// Resolve returns the subscriber that owns token, or ErrUnknownToken.
func (s *Service) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	id, err := s.repo.SubscriberIDByToken(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// ConfirmSubscriber marks the subscriber confirmed. Confirming twice is not an error.
func (s *Service) ConfirmSubscriber(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "confirm subscriber",
		trace.WithAttributes(attribute.String("subscriber_id", id.String())))
	defer span.End()

	if err := s.repo.ConfirmSubscriber(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "confirm failed")
		return fmt.Errorf("confirm subscriber %s: %w", id, err)
	}
	return nil
}

// Confirm resolves token and confirms its subscriber.
func (s *Service) Confirm(ctx context.Context, token string) error {
	id, err := s.Resolve(ctx, token)
	if err != nil {
		return err
	}
	if err := s.ConfirmSubscriber(ctx, id); err != nil {
		return err
	}
	s.log.Info("subscriber confirmed", "subscriber_id", id)
	return nil
}

// SignupInput is the raw signup form.
type SignupInput struct {
	Name  string
	Email string
}

// Subscribe validates the signup, stores a pending subscriber with a fresh
// token and emails the confirmation link. Invalid input fails with a
// *domain.ValidationError before anything is stored.
func (s *Service) Subscribe(ctx context.Context, in SignupInput) (*domain.Subscriber, error) {
	name, err := domain.ParseName(in.Name)
	if err != nil {
		return nil, err
	}
	email, err := domain.ParseEmail(in.Email)
	if err != nil {
		return nil, err
	}

	token, err := NewToken()
	if err != nil {
		return nil, fmt.Errorf("generate subscription token: %w", err)
	}

	pending := PendingSubscriber{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		Token:        token,
		SubscribedAt: s.now().UTC(),
	}
	if err := s.repo.CreatePending(ctx, pending); err != nil {
		return nil, fmt.Errorf("store pending subscriber: %w", err)
	}

	if err := s.sendConfirmation(ctx, email, name, token); err != nil {
		return nil, err
	}

	s.log.Info("subscriber pending confirmation", "subscriber_id", pending.ID, "email", email.String())
	return &domain.Subscriber{
		ID:     pending.ID,
		Email:  email,
		Name:   name,
		Status: domain.SubscriberPendingConfirmation,
	}, nil
}

// ConfirmationLink builds the link mailed to a new subscriber.
func (s *Service) ConfirmationLink(token string) string {
	return s.baseURL + "/subscriptions/confirm?subscription_token=" + url.QueryEscape(token)
}

func (s *Service) sendConfirmation(ctx context.Context, to domain.SubscriberEmail, name domain.SubscriberName, token string) error {
	html, text, err := s.tmpl.render(name.String(), s.ConfirmationLink(token))
	if err != nil {
		return err
	}
	if err := s.sender.SendEmail(ctx, to, confirmationSubject, html, text); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	return nil
}
