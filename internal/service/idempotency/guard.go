package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/distlock"
	"github.com/ignite/newsletter/internal/pkg/logger"
)

// Command is the gated operation. It returns the response to save and send.
type Command func(ctx context.Context) (domain.SavedResponse, error)

// Outcome tells whether Execute ran the command or replayed a saved response.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeReplayed  Outcome = "replayed"
)

// Result is what Execute hands back to the transport layer.
type Result struct {
	Response *domain.SavedResponse
	Outcome  Outcome
}

// Options enables stronger behavior than plain check-then-write. Both are off
// by default.
type Options struct {
	// Locker, when set, serializes requests per (caller, key). A request that
	// cannot take the lock fails with ErrInFlight.
	Locker distlock.Factory

	// LockTTL is the lifetime the Locker gives its locks. Locks that
	// implement distlock.Extender are renewed every LockTTL/3 while the
	// command runs.
	LockTTL time.Duration

	// ReplayOnConflict makes a losing Put replay the winner's response
	// instead of failing.
	ReplayOnConflict bool
}

// Guard runs commands at most once per (caller, key) as seen by the store.
type Guard struct {
	store  Store
	log    *logger.Logger
	tracer trace.Tracer
	opts   Options
}

// NewGuard creates a guard over store. A nil tracer disables tracing.
func NewGuard(store Store, log *logger.Logger, tracer trace.Tracer, opts Options) *Guard {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Guard{store: store, log: log, tracer: tracer, opts: opts}
}

// LockKey is the distributed lock name for a composite key.
func LockKey(callerID uuid.UUID, key domain.IdempotencyKey) string {
	return fmt.Sprintf("idempotency:%s:%s", callerID, key)
}

// Execute validates rawKey, then replays the saved response for
// (callerID, key) or runs cmd and saves what it returns. A failed cmd saves
// nothing, so a retry with the same key runs it again.
func (g *Guard) Execute(ctx context.Context, callerID uuid.UUID, rawKey string, cmd Command) (*Result, error) {
	key, err := domain.ParseIdempotencyKey(rawKey)
	if err != nil {
		return nil, err
	}

	if g.opts.Locker != nil {
		lock := g.opts.Locker(LockKey(callerID, key))
		acquired, err := lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire idempotency lock: %w", err)
		}
		if !acquired {
			return nil, ErrInFlight
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				g.log.Warn("failed to release idempotency lock", "caller_id", callerID, "error", err)
			}
		}()

		if ext, ok := lock.(distlock.Extender); ok && g.opts.LockTTL > 0 {
			var stop func()
			ctx, stop = g.keepAlive(ctx, ext, callerID)
			defer stop()
		}
	}

	saved, err := g.lookup(ctx, callerID, key)
	if err != nil {
		return nil, err
	}
	if saved != nil {
		g.log.Info("replaying saved response", "caller_id", callerID, "status", saved.StatusCode)
		return &Result{Response: saved, Outcome: OutcomeReplayed}, nil
	}

	resp, err := cmd(ctx)
	if err != nil {
		if errors.Is(context.Cause(ctx), ErrLockLost) {
			return nil, fmt.Errorf("%w: %w", ErrLockLost, err)
		}
		return nil, err
	}
	if errors.Is(context.Cause(ctx), ErrLockLost) {
		// The command finished anyway; record its response so a retry replays it.
		ctx = context.WithoutCancel(ctx)
	}

	stored, err := g.save(ctx, callerID, key, resp)
	if errors.Is(err, ErrDuplicateKey) && g.opts.ReplayOnConflict {
		winner, lerr := g.lookup(ctx, callerID, key)
		if lerr != nil {
			return nil, lerr
		}
		if winner != nil {
			g.log.Warn("concurrent request saved first, replaying its response", "caller_id", callerID)
			return &Result{Response: winner, Outcome: OutcomeReplayed}, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return &Result{Response: stored, Outcome: OutcomeCompleted}, nil
}

// keepAlive renews the lock until stop is called. If the lock is lost the
// returned context is cancelled with ErrLockLost. stop waits for the renewal
// goroutine, so the lock is never extended after it returns.
func (g *Guard) keepAlive(ctx context.Context, lock distlock.Extender, callerID uuid.UUID) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		ticker := time.NewTicker(max(g.opts.LockTTL/3, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := lock.Extend(ctx, g.opts.LockTTL)
				if errors.Is(err, distlock.ErrNotHeld) {
					g.log.Error("idempotency lock lost while command was running", "caller_id", callerID)
					cancel(ErrLockLost)
					return
				}
				if err != nil {
					g.log.Warn("failed to extend idempotency lock", "caller_id", callerID, "error", err)
				}
			}
		}
	}()

	return ctx, func() {
		close(done)
		<-exited
		cancel(nil)
	}
}

func (g *Guard) lookup(ctx context.Context, callerID uuid.UUID, key domain.IdempotencyKey) (*domain.SavedResponse, error) {
	ctx, span := g.tracer.Start(ctx, "idempotency lookup",
		trace.WithAttributes(attribute.String("caller_id", callerID.String())))
	defer span.End()

	saved, err := g.store.Get(ctx, callerID, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, fmt.Errorf("get saved response: %w", err)
	}
	span.SetAttributes(attribute.Bool("hit", saved != nil))
	return saved, nil
}

func (g *Guard) save(ctx context.Context, callerID uuid.UUID, key domain.IdempotencyKey, resp domain.SavedResponse) (*domain.SavedResponse, error) {
	ctx, span := g.tracer.Start(ctx, "idempotency save",
		trace.WithAttributes(attribute.Int("status", resp.StatusCode)))
	defer span.End()

	stored, err := g.store.Put(ctx, callerID, key, resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return nil, fmt.Errorf("save response: %w", err)
	}
	return stored, nil
}
