package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/httputil"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/service/idempotency"
	"github.com/ignite/newsletter/internal/service/newsletter"
	"github.com/ignite/newsletter/internal/service/subscription"
)

// Publisher delivers a newsletter issue on behalf of a caller.
type Publisher interface {
	Publish(ctx context.Context, callerID uuid.UUID, content domain.NewsletterContent) (*newsletter.Report, error)
}

// Subscriptions is the signup and confirmation workflow.
type Subscriptions interface {
	Subscribe(ctx context.Context, in subscription.SignupInput) (*domain.Subscriber, error)
	Confirm(ctx context.Context, token string) error
}

// Deps are the collaborators the routes need.
type Deps struct {
	Log            *logger.Logger
	Authorizer     auth.Authorizer
	Guard          *idempotency.Guard
	Publisher      Publisher
	Subscriptions  Subscriptions
	Health         *HealthChecker
	AllowedOrigins []string
}

// SetupRoutes configures all routes.
func SetupRoutes(d Deps) (*chi.Mux, error) {
	newsletters, err := newNewsletterHandlers(d.Guard, d.Publisher, d.Log)
	if err != nil {
		return nil, err
	}
	subs := &subscriptionHandlers{svc: d.Subscriptions, log: d.Log}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(middleware.Recoverer)

	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check (no auth required)
	if d.Health != nil {
		r.Get("/health", d.Health.HandleHealth)
		r.Get("/health/live", d.Health.HandleLiveness)
		r.Get("/health/ready", d.Health.HandleReadiness)
	}

	r.Post("/subscriptions", subs.subscribe)
	r.Get("/subscriptions/confirm", subs.confirm)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/newsletters", requireCaller(d.Authorizer, d.Log, newsletters.form))
		r.Post("/newsletters", requireCaller(d.Authorizer, d.Log, newsletters.publish))
	})

	return r, nil
}

// callerHandler is a handler that runs on behalf of an authenticated caller.
type callerHandler func(w http.ResponseWriter, r *http.Request, callerID uuid.UUID)

// requireCaller resolves the caller before invoking next. Anonymous requests
// are sent to the login page.
func requireCaller(authz auth.Authorizer, log *logger.Logger, next callerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, err := authz.Authorize(r)
		if errors.Is(err, auth.ErrUnauthorized) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err != nil {
			httputil.InternalError(w, log, err)
			return
		}
		next(w, r, callerID)
	}
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", int(time.Since(start).Milliseconds()))
		})
	}
}
