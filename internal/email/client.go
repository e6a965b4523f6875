// Package email is a client for a Postmark-style HTTP email API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ignite/newsletter/internal/domain"
)

// HTTPDoer is the interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements sending.EmailSender by POSTing to <baseURL>/email.
// Each call makes exactly one request.
type Client struct {
	http      HTTPDoer
	baseURL   string
	sender    domain.SubscriberEmail
	authToken string
}

// NewClient creates an email API client. A zero timeout defaults to 10s.
func NewClient(baseURL string, sender domain.SubscriberEmail, authToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewClientWithDoer(&http.Client{Timeout: timeout}, baseURL, sender, authToken)
}

// NewClientWithDoer creates a client around an existing HTTPDoer.
func NewClientWithDoer(doer HTTPDoer, baseURL string, sender domain.SubscriberEmail, authToken string) *Client {
	return &Client{
		http:      doer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		sender:    sender,
		authToken: authToken,
	}
}

type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("email api returned status %d: %s", e.StatusCode, e.Body)
}

// SendEmail sends one message.
func (c *Client) SendEmail(ctx context.Context, to domain.SubscriberEmail, subject, htmlBody, textBody string) error {
	payload, err := json.Marshal(sendEmailRequest{
		From:     c.sender.String(),
		To:       to.String(),
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return fmt.Errorf("encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("email api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
