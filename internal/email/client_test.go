package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter/internal/domain"
)

func mustEmail(t *testing.T, s string) domain.SubscriberEmail {
	t.Helper()
	e, err := domain.ParseEmail(s)
	require.NoError(t, err)
	return e
}

func TestClient_SendsExpectedRequest(t *testing.T) {
	var got sendEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/email", r.URL.Path)
		assert.Equal(t, "secret-token", r.Header.Get("X-Postmark-Server-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", mustEmail(t, "news@example.com"), "secret-token", time.Second)
	err := c.SendEmail(context.Background(), mustEmail(t, "reader@example.com"), "Subject", "<p>html</p>", "text")
	require.NoError(t, err)

	assert.Equal(t, sendEmailRequest{
		From: "news@example.com", To: "reader@example.com",
		Subject: "Subject", HtmlBody: "<p>html</p>", TextBody: "text",
	}, got)
}

func TestClient_ServerErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, mustEmail(t, "news@example.com"), "t", time.Second)
	err := c.SendEmail(context.Background(), mustEmail(t, "reader@example.com"), "s", "h", "t")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_TimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, mustEmail(t, "news@example.com"), "t", 50*time.Millisecond)
	err := c.SendEmail(context.Background(), mustEmail(t, "reader@example.com"), "s", "h", "t")
	require.Error(t, err)
}
