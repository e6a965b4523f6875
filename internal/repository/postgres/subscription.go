package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/service/subscription"
)

// SubscriptionRepo implements subscription.Repository and
// newsletter.SubscriberSource against PostgreSQL.
type SubscriptionRepo struct{ db *sql.DB }

// NewSubscriptionRepo creates a Postgres-backed subscription repository.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

func (r *SubscriptionRepo) SubscriberIDByToken(ctx context.Context, token string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx,
		`SELECT subscriber_id FROM subscription_tokens WHERE subscription_token = $1`,
		token,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, subscription.ErrUnknownToken
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("get subscriber id from token: %w", err)
	}
	return id, nil
}

func (r *SubscriptionRepo) ConfirmSubscriber(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = $1 WHERE id = $2`,
		string(domain.SubscriberConfirmed), id,
	)
	if err != nil {
		return fmt.Errorf("mark subscriber confirmed: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) CreatePending(ctx context.Context, p subscription.PendingSubscriber) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin signup transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.Email.String(), p.Name.String(), p.SubscribedAt, string(domain.SubscriberPendingConfirmation)); err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO subscription_tokens (subscription_token, subscriber_id)
		VALUES ($1, $2)
	`, p.Token, p.ID); err != nil {
		return fmt.Errorf("store subscription token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit signup transaction: %w", err)
	}
	return nil
}

// ConfirmedSubscribers returns confirmed rows ordered by signup time.
func (r *SubscriptionRepo) ConfirmedSubscribers(ctx context.Context) ([]domain.StoredSubscriber, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, name
		FROM subscriptions
		WHERE status = $1
		ORDER BY subscribed_at, id
	`, string(domain.SubscriberConfirmed))
	if err != nil {
		return nil, fmt.Errorf("list confirmed subscribers: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredSubscriber
	for rows.Next() {
		var s domain.StoredSubscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.Name); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return out, nil
}
