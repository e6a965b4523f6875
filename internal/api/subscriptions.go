package api

import (
	"errors"
	"net/http"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/httputil"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/service/subscription"
)

type subscriptionHandlers struct {
	svc Subscriptions
	log *logger.Logger
}

// POST /subscriptions
func (h *subscriptionHandlers) subscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, "invalid form body")
		return
	}
	in := subscription.SignupInput{
		Name:  r.PostForm.Get("name"),
		Email: r.PostForm.Get("email"),
	}

	_, err := h.svc.Subscribe(r.Context(), in)
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.Invalid(w, verr)
	case err != nil:
		httputil.InternalError(w, h.log, err)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// GET /subscriptions/confirm?subscription_token=...
func (h *subscriptionHandlers) confirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("subscription_token")
	if token == "" {
		httputil.BadRequest(w, "subscription_token is required")
		return
	}

	err := h.svc.Confirm(r.Context(), token)
	switch {
	case errors.Is(err, subscription.ErrUnknownToken):
		httputil.Unauthorized(w, "unknown subscription token")
	case err != nil:
		httputil.InternalError(w, h.log, err)
	default:
		w.WriteHeader(http.StatusOK)
	}
}
