// Package oauth implements the authorization-code flow for providers that
// require delegated user authorization: CSRF-safe state nonces, the code
// exchange, and token-expiry management across concurrent sessions.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/finbridge/finbridge/internal/errors"
	"github.com/finbridge/finbridge/internal/executor"
	"github.com/finbridge/finbridge/internal/logging"
	"github.com/finbridge/finbridge/internal/metrics"
)

// Config holds the static OAuth client settings for one provider.
type Config struct {
	Provider     string
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// APIVersion and ProtocolVersion are provider-required headers sent
	// on every authenticated resource call.
	APIVersion      string
	ProtocolVersion string
}

// Manager owns the OAuth sessions for one provider. All state transitions
// are atomic per session: the state check-then-clear and the expiry
// check-then-purge each happen in a single critical section.
type Manager struct {
	cfg     Config
	exec    *executor.Executor
	logger  *logging.Logger
	metrics *metrics.Metrics
	audit   *logging.AuditStore
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithAudit attaches a security audit trail.
func WithAudit(store *logging.AuditStore) Option {
	return func(m *Manager) { m.audit = store }
}

// WithMetrics attaches gateway metrics.
func WithMetrics(mm *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mm }
}

// NewManager creates a session manager for one delegated-auth provider.
func NewManager(cfg Config, exec *executor.Executor, logger *logging.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewLogger()
	}
	m := &Manager{
		cfg:      cfg,
		exec:     exec,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configured reports whether a usable OAuth client is configured. When
// false, the adapter runs in fallback mode.
func (m *Manager) Configured() bool {
	return m.cfg.ClientID != "" && m.cfg.ClientSecret != ""
}

// AuthorizationURL generates a fresh CSRF state nonce, stores it in the
// session, and returns the provider redirect URL.
func (m *Manager) AuthorizationURL(sessionID string, scopes []string) (string, error) {
	if !m.Configured() {
		return "", &errors.ErrAuth{Provider: m.cfg.Provider, Reason: "oauth client not configured"}
	}

	state, err := newStateNonce()
	if err != nil {
		return "", fmt.Errorf("generate state nonce: %w", err)
	}

	m.mu.Lock()
	sess := m.sessions[sessionID]
	if sess == nil {
		sess = &Session{}
		m.sessions[sessionID] = sess
	}
	sess.State = state
	m.mu.Unlock()

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", m.cfg.ClientID)
	q.Set("redirect_uri", m.cfg.RedirectURI)
	q.Set("state", state)
	if len(scopes) > 0 {
		q.Set("scope", strings.Join(scopes, " "))
	}

	m.metrics.RecordOAuthEvent(m.cfg.Provider, "authorize")
	m.audit.Record(logging.NewAuditEvent(logging.OAuthAuthorize, "authorization url issued", logging.StatusSuccess).
		WithProvider(m.cfg.Provider).
		WithSession(sessionID))

	return m.cfg.AuthURL + "?" + q.Encode(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Exchange validates the returned state and exchanges the authorization
// code for an access token. The state comparison happens before any
// network call and the nonce is cleared on first use, so a replayed
// callback can never be exchanged twice.
func (m *Manager) Exchange(ctx context.Context, sessionID, code, state string) error {
	if !m.Configured() {
		return &errors.ErrAuth{Provider: m.cfg.Provider, Reason: "oauth client not configured"}
	}

	m.mu.Lock()
	sess := m.sessions[sessionID]
	expected := ""
	if sess != nil {
		expected = sess.State
		sess.State = ""
	}
	m.mu.Unlock()

	if expected == "" || state != expected {
		m.metrics.RecordOAuthEvent(m.cfg.Provider, "state_mismatch")
		m.audit.Record(logging.NewAuditEvent(logging.OAuthStateMismatch, "callback state rejected", logging.StatusFailure).
			WithProvider(m.cfg.Provider).
			WithSession(sessionID).
			WithSeverity(logging.SeverityCritical))
		m.logger.WarnWithContext(ctx, "oauth state mismatch",
			"provider", m.cfg.Provider,
			"session_id", sessionID,
		)
		return &errors.ErrInvalidState{Provider: m.cfg.Provider}
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", m.cfg.RedirectURI)
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", m.cfg.ClientSecret)

	resp, err := m.exec.Execute(ctx, executor.Request{
		Method:   http.MethodPost,
		Endpoint: m.cfg.TokenURL,
		FormBody: form,
	}, nil)
	if err != nil {
		m.metrics.RecordOAuthEvent(m.cfg.Provider, "exchange_failure")
		m.audit.Record(logging.NewAuditEvent(logging.OAuthExchange, "token exchange", logging.StatusFailure).
			WithProvider(m.cfg.Provider).
			WithSession(sessionID).
			WithError(err.Error()))
		var status *errors.ErrHTTPStatus
		if stderrors.As(err, &status) {
			return &errors.ErrTokenExchange{Provider: m.cfg.Provider, Body: status.Body, Err: err}
		}
		return &errors.ErrTokenExchange{Provider: m.cfg.Provider, Err: err}
	}

	var parsed tokenResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return &errors.ErrTokenExchange{Provider: m.cfg.Provider, Err: err}
	}
	if parsed.AccessToken == "" {
		return &errors.ErrTokenExchange{Provider: m.cfg.Provider, Body: string(resp.Body)}
	}

	expiresAt := m.now().Add(time.Duration(parsed.ExpiresIn) * time.Second)

	m.mu.Lock()
	sess = m.sessions[sessionID]
	if sess == nil {
		sess = &Session{}
		m.sessions[sessionID] = sess
	}
	sess.AccessToken = parsed.AccessToken
	sess.ExpiresAt = expiresAt
	m.mu.Unlock()

	m.metrics.RecordOAuthEvent(m.cfg.Provider, "exchange_success")
	m.audit.Record(logging.NewAuditEvent(logging.OAuthExchange, "token exchange", logging.StatusSuccess).
		WithProvider(m.cfg.Provider).
		WithSession(sessionID))
	m.logger.InfoWithContext(ctx, "oauth token acquired",
		"provider", m.cfg.Provider,
		"session_id", sessionID,
		"expires_at", expiresAt.UTC().Format(time.RFC3339),
	)
	return nil
}

// Token returns the session's current access token. An absent or expired
// token fails with ErrAuth; expired tokens are purged on read so they are
// never attached to an outgoing request.
func (m *Manager) Token(sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.sessions[sessionID]
	if sess == nil || sess.AccessToken == "" {
		return "", &errors.ErrAuth{Provider: m.cfg.Provider, Reason: "not authenticated"}
	}
	if !m.now().Before(sess.ExpiresAt) {
		sess.AccessToken = ""
		sess.ExpiresAt = time.Time{}
		m.metrics.RecordOAuthEvent(m.cfg.Provider, "token_expired")
		return "", &errors.ErrAuth{Provider: m.cfg.Provider, Reason: "token expired"}
	}
	return sess.AccessToken, nil
}

// TokenSource returns an executor.TokenSource bound to one session.
func (m *Manager) TokenSource(sessionID string) executor.TokenSource {
	return executor.TokenFunc(func() (string, error) {
		return m.Token(sessionID)
	})
}

// Authenticated reports whether the session currently holds a usable token.
func (m *Manager) Authenticated(sessionID string) bool {
	_, err := m.Token(sessionID)
	return err == nil
}

// Request performs an authenticated resource call with the provider's
// required bearer and version headers. Any non-2xx response surfaces as an
// error carrying the raw provider body.
func (m *Manager) Request(ctx context.Context, sessionID, method, endpoint string, query url.Values, body interface{}) (*executor.Response, error) {
	header := http.Header{}
	if m.cfg.APIVersion != "" {
		header.Set("X-Api-Version", m.cfg.APIVersion)
	}
	if m.cfg.ProtocolVersion != "" {
		header.Set("X-Restli-Protocol-Version", m.cfg.ProtocolVersion)
	}

	return m.exec.Execute(ctx, executor.Request{
		Method:   method,
		Endpoint: endpoint,
		Query:    query,
		JSONBody: body,
		Header:   header,
	}, executor.Bearer{Source: m.TokenSource(sessionID)})
}

// Logout clears the session's credential state.
func (m *Manager) Logout(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	m.metrics.RecordOAuthEvent(m.cfg.Provider, "logout")
	m.audit.Record(logging.NewAuditEvent(logging.OAuthLogout, "session cleared", logging.StatusSuccess).
		WithProvider(m.cfg.Provider).
		WithSession(sessionID))
}

func newStateNonce() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
