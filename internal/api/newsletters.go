package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/osteele/liquid"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/httputil"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/service/idempotency"
)

const flashCookie = "flash"

//go:embed templates/newsletter_form.liquid
var newsletterFormTemplate string

// publishFields are the form fields every publish request must carry.
var publishFields = []string{"title", "content_html", "content_text", "idempotency_key"}

type newsletterHandlers struct {
	guard     *idempotency.Guard
	publisher Publisher
	page      *liquid.Template
	log       *logger.Logger
}

func newNewsletterHandlers(guard *idempotency.Guard, publisher Publisher, log *logger.Logger) (*newsletterHandlers, error) {
	tmpl, err := liquid.NewEngine().ParseString(newsletterFormTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse newsletter form template: %w", err)
	}
	return &newsletterHandlers{guard: guard, publisher: publisher, page: tmpl, log: log}, nil
}

// POST /admin/newsletters
func (h *newsletterHandlers) publish(w http.ResponseWriter, r *http.Request, callerID uuid.UUID) {
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, "invalid form body")
		return
	}
	for _, field := range publishFields {
		if _, ok := r.PostForm[field]; !ok {
			httputil.BadRequest(w, fmt.Sprintf("missing form field %q", field))
			return
		}
	}

	content := domain.NewsletterContent{
		Title:       r.PostForm.Get("title"),
		ContentHTML: r.PostForm.Get("content_html"),
		ContentText: r.PostForm.Get("content_text"),
	}

	result, err := h.guard.Execute(r.Context(), callerID, r.PostForm.Get("idempotency_key"),
		func(ctx context.Context) (domain.SavedResponse, error) {
			if _, err := h.publisher.Publish(ctx, callerID, content); err != nil {
				return domain.SavedResponse{}, err
			}
			return domain.SavedResponse{
				StatusCode: http.StatusSeeOther,
				Headers:    []domain.HeaderPair{{Name: "Location", Value: []byte("/admin/newsletters")}},
			}, nil
		})

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.Invalid(w, verr)
		return
	case errors.Is(err, idempotency.ErrInFlight):
		httputil.Conflict(w, "a request with this idempotency key is still in progress")
		return
	case err != nil:
		httputil.InternalError(w, h.log, err)
		return
	}

	if result.Outcome == idempotency.OutcomeReplayed {
		h.log.Info("newsletter publish replayed", "caller_id", callerID)
	}
	setFlash(w, fmt.Sprintf("Your newsletter '%s' has been published.", content.Title))
	httputil.WriteSaved(w, result.Response)
}

// GET /admin/newsletters
func (h *newsletterHandlers) form(w http.ResponseWriter, r *http.Request, _ uuid.UUID) {
	var messages []string
	if msg, ok := readFlash(r); ok {
		messages = append(messages, msg)
		clearFlash(w)
	}

	body, err := h.page.RenderString(map[string]interface{}{
		"messages":        messages,
		"idempotency_key": uuid.NewString(),
	})
	if err != nil {
		httputil.InternalError(w, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func readFlash(r *http.Request) (string, bool) {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return "", false
	}
	return msg, true
}

func clearFlash(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})
}
