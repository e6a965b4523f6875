package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/service/idempotency"
	"github.com/ignite/newsletter/internal/service/newsletter"
	"github.com/ignite/newsletter/internal/service/subscription"
)

// memDB backs subscriptions, delivery and saved responses in memory.
type memDB struct {
	mu          sync.Mutex
	subscribers []memSubscriber
	tokens      map[string]uuid.UUID
	saved       map[string]domain.SavedResponse
}

type memSubscriber struct {
	id     uuid.UUID
	email  string
	name   string
	status domain.SubscriberStatus
}

func newMemDB() *memDB {
	return &memDB{tokens: make(map[string]uuid.UUID), saved: make(map[string]domain.SavedResponse)}
}

func (m *memDB) SubscriberIDByToken(_ context.Context, token string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[token]
	if !ok {
		return uuid.Nil, subscription.ErrUnknownToken
	}
	return id, nil
}

func (m *memDB) ConfirmSubscriber(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.subscribers {
		if m.subscribers[i].id == id {
			m.subscribers[i].status = domain.SubscriberConfirmed
		}
	}
	return nil
}

func (m *memDB) CreatePending(_ context.Context, p subscription.PendingSubscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, memSubscriber{
		id: p.ID, email: p.Email.String(), name: p.Name.String(), status: domain.SubscriberPendingConfirmation,
	})
	m.tokens[p.Token] = p.ID
	return nil
}

// insert stores a row without validation, as a legacy import might have.
func (m *memDB) insert(email string, status domain.SubscriberStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, memSubscriber{id: uuid.New(), email: email, name: "legacy", status: status})
}

func (m *memDB) ConfirmedSubscribers(context.Context) ([]domain.StoredSubscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StoredSubscriber
	for _, s := range m.subscribers {
		if s.status == domain.SubscriberConfirmed {
			out = append(out, domain.StoredSubscriber{ID: s.id, Email: s.email, Name: s.name})
		}
	}
	return out, nil
}

func (m *memDB) Get(_ context.Context, callerID uuid.UUID, key domain.IdempotencyKey) (*domain.SavedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp, ok := m.saved[callerID.String()+"/"+key.String()]
	if !ok {
		return nil, nil
	}
	return &resp, nil
}

func (m *memDB) Put(_ context.Context, callerID uuid.UUID, key domain.IdempotencyKey, resp domain.SavedResponse) (*domain.SavedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := callerID.String() + "/" + key.String()
	if _, ok := m.saved[k]; ok {
		return nil, idempotency.ErrDuplicateKey
	}
	resp.CreatedAt = time.Now().UTC()
	m.saved[k] = resp
	return &resp, nil
}

type mail struct {
	to, subject, html, text string
}

type mailbox struct {
	mu     sync.Mutex
	mails  []mail
	failTo string
}

func (b *mailbox) SendEmail(_ context.Context, to domain.SubscriberEmail, subject, html, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if to.String() == b.failTo {
		return errors.New("provider returned 500")
	}
	b.mails = append(b.mails, mail{to: to.String(), subject: subject, html: html, text: text})
	return nil
}

func (b *mailbox) withSubject(subject string) []mail {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []mail
	for _, m := range b.mails {
		if m.subject == subject {
			out = append(out, m)
		}
	}
	return out
}

type fixedAuthorizer struct {
	id  uuid.UUID
	err error
}

func (a fixedAuthorizer) Authorize(*http.Request) (uuid.UUID, error) {
	return a.id, a.err
}

type testApp struct {
	router http.Handler
	db     *memDB
	mail   *mailbox
	caller uuid.UUID
}

func newTestApp(t *testing.T, authz auth.Authorizer) *testApp {
	t.Helper()
	db := newMemDB()
	box := &mailbox{}
	log := logger.Nop()

	subs, err := subscription.NewService(db, box, "http://127.0.0.1:8000", log, nil)
	require.NoError(t, err)
	engine := newsletter.NewEngine(db, box, log, nil)
	publisher := newsletter.NewPublisher(engine, nil, log, nil)
	guard := idempotency.NewGuard(db, log, nil, idempotency.Options{})

	caller := uuid.New()
	if authz == nil {
		authz = fixedAuthorizer{id: caller}
	}
	router, err := SetupRoutes(Deps{
		Log:           log,
		Authorizer:    authz,
		Guard:         guard,
		Publisher:     publisher,
		Subscriptions: subs,
	})
	require.NoError(t, err)
	return &testApp{router: router, db: db, mail: box, caller: caller}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

func (a *testApp) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return a.do(req)
}

var confirmationLinkRe = regexp.MustCompile(`Visit (\S+) to confirm`)

// signup subscribes email and returns the path of its confirmation link.
func (a *testApp) signup(t *testing.T, name, email string) string {
	t.Helper()
	rec := a.postForm("/subscriptions", url.Values{"name": {name}, "email": {email}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var text string
	for _, m := range a.mail.withSubject("Welcome!") {
		if m.to == email {
			text = m.text
		}
	}
	match := confirmationLinkRe.FindStringSubmatch(text)
	require.Len(t, match, 2, "no confirmation link in %q", text)
	link, err := url.Parse(match[1])
	require.NoError(t, err)
	return link.RequestURI()
}

func (a *testApp) confirmedSubscriber(t *testing.T, email string) {
	t.Helper()
	rec := a.get(a.signup(t, "ursula", email))
	require.Equal(t, http.StatusOK, rec.Code)
}

func issueForm(key string) url.Values {
	return url.Values{
		"title":           {"Newsletter title"},
		"content_text":    {"Newsletter body as plain text"},
		"content_html":    {"<p>Newsletter body as HTML</p>"},
		"idempotency_key": {key},
	}
}

func flashFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie {
			return c
		}
	}
	return nil
}
