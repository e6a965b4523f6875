package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/service/idempotency"
)

const uniqueViolation = "23505"

// IdempotencyRepo implements idempotency.Store against PostgreSQL.
// Headers are stored as a JSONB array of {name, value} with base64 values
// so that order and repeated names survive the round trip.
type IdempotencyRepo struct{ db *sql.DB }

// NewIdempotencyRepo creates a Postgres-backed saved-response store.
func NewIdempotencyRepo(db *sql.DB) *IdempotencyRepo { return &IdempotencyRepo{db: db} }

func (r *IdempotencyRepo) Get(ctx context.Context, callerID uuid.UUID, key domain.IdempotencyKey) (*domain.SavedResponse, error) {
	var (
		resp    domain.SavedResponse
		headers []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT response_status_code, response_headers, response_body, created_at
		FROM idempotency
		WHERE user_id = $1 AND idempotency_key = $2
	`, callerID, string(key)).Scan(&resp.StatusCode, &headers, &resp.Body, &resp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get saved response: %w", err)
	}
	if err := json.Unmarshal(headers, &resp.Headers); err != nil {
		return nil, fmt.Errorf("decode saved response headers: %w", err)
	}
	return &resp, nil
}

func (r *IdempotencyRepo) Put(ctx context.Context, callerID uuid.UUID, key domain.IdempotencyKey, resp domain.SavedResponse) (*domain.SavedResponse, error) {
	if resp.Headers == nil {
		resp.Headers = []domain.HeaderPair{}
	}
	headers, err := json.Marshal(resp.Headers)
	if err != nil {
		return nil, fmt.Errorf("encode response headers: %w", err)
	}
	if resp.Body == nil {
		resp.Body = []byte{}
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO idempotency (
			user_id, idempotency_key, response_status_code,
			response_headers, response_body, created_at
		)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`, callerID, string(key), resp.StatusCode, string(headers), resp.Body).Scan(&resp.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, idempotency.ErrDuplicateKey
		}
		return nil, fmt.Errorf("save response: %w", err)
	}
	return &resp, nil
}
