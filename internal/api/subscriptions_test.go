package api

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter/internal/domain"
)

func TestSubscribe_ValidForm(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.postForm("/subscriptions", url.Values{"name": {"le guin"}, "email": {"ursula_le_guin@gmail.com"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, app.db.subscribers, 1)
	assert.Equal(t, "ursula_le_guin@gmail.com", app.db.subscribers[0].email)
	assert.Equal(t, domain.SubscriberPendingConfirmation, app.db.subscribers[0].status)
	assert.Len(t, app.mail.withSubject("Welcome!"), 1)
}

func TestSubscribe_InvalidForm(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"missing name", url.Values{"email": {"ursula_le_guin@gmail.com"}}},
		{"missing email", url.Values{"name": {"le guin"}}},
		{"blank name", url.Values{"name": {"  "}, "email": {"ursula_le_guin@gmail.com"}}},
		{"bad email", url.Values{"name": {"le guin"}, "email": {"definitely-not-an-email"}}},
		{"forbidden characters", url.Values{"name": {"<script>"}, "email": {"ursula_le_guin@gmail.com"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, nil)

			rec := app.postForm("/subscriptions", tt.form)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, app.db.subscribers)
			assert.Empty(t, app.mail.mails)
		})
	}
}

func TestConfirm_MissingTokenIs400(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.get("/subscriptions/confirm")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirm_UnknownTokenIs401(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.get("/subscriptions/confirm?subscription_token=nosuchtoken")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConfirm_LinkConfirmsSubscriber(t *testing.T) {
	app := newTestApp(t, nil)
	link := app.signup(t, "le guin", "ursula_le_guin@gmail.com")

	rec := app.get(link)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.SubscriberConfirmed, app.db.subscribers[0].status)

	// Clicking the link again leaves the subscriber confirmed.
	rec = app.get(link)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.SubscriberConfirmed, app.db.subscribers[0].status)
}
