package executor

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/finbridge/finbridge/internal/errors"
	"github.com/finbridge/finbridge/internal/logging"
	"github.com/finbridge/finbridge/internal/metrics"
)

// Response is the raw outcome of a successful provider call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Request describes one provider call. Endpoint is resolved against the
// executor's base URL unless it is already absolute.
type Request struct {
	Method   string
	Endpoint string
	Query    url.Values
	JSONBody interface{}
	FormBody url.Values
	Header   http.Header
}

// Options configures an Executor for a single provider.
type Options struct {
	Provider        string
	BaseURL         string
	Timeout         time.Duration
	MaxRetries      int
	BackoffFactor   time.Duration
	FairAccessDelay time.Duration
	// Header holds static provider-required headers (User-Agent etc.)
	// applied to every request.
	Header  http.Header
	Client  *http.Client
	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// Executor is the single chokepoint for one provider's outbound HTTP.
// It injects auth, enforces the provider's fair-access delay, and retries
// retryable failures with exponential backoff.
type Executor struct {
	provider  string
	baseURL   string
	client    *http.Client
	maxTries  int
	backoff   time.Duration
	fairDelay time.Duration
	header    http.Header
	logger    *logging.Logger
	metrics   *metrics.Metrics

	// pacing state: dispatches within this provider are serialized so
	// consecutive requests are at least fairDelay apart.
	mu           sync.Mutex
	nextDispatch time.Time
}

// New creates an Executor for one provider.
func New(opts Options) *Executor {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffFactor <= 0 {
		opts.BackoffFactor = 500 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Executor{
		provider:  opts.Provider,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		client:    client,
		maxTries:  opts.MaxRetries,
		backoff:   opts.BackoffFactor,
		fairDelay: opts.FairAccessDelay,
		header:    opts.Header,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// Provider returns the provider name this executor serves.
func (e *Executor) Provider() string {
	return e.provider
}

// Execute performs the request with auth injection, fair-access pacing and
// bounded retries. It returns the first 2xx response, or the terminal error.
func (e *Executor) Execute(ctx context.Context, req Request, auth AuthProvider) (*Response, error) {
	endpoint := e.resolveEndpoint(req.Endpoint)

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= e.maxTries; attempt++ {
		if attempt > 1 {
			delay := e.backoff * time.Duration(1<<(attempt-2))
			if err := sleepCtx(ctx, delay); err != nil {
				break
			}
		}

		if err := e.pace(ctx); err != nil {
			lastErr = &errors.ErrTransport{Endpoint: endpoint, Err: err}
			break
		}
		attempts = attempt

		start := time.Now()
		resp, err := e.attempt(ctx, req, endpoint, auth)
		e.metrics.RecordUpstreamLatency(e.provider, req.Endpoint, time.Since(start).Seconds())

		if err == nil {
			e.metrics.RecordUpstreamAttempt(e.provider, req.Endpoint, "success")
			e.logger.InfoWithContext(ctx, "provider request succeeded",
				"provider", e.provider,
				"endpoint", req.Endpoint,
				"status", resp.StatusCode,
				"attempt", attempt,
			)
			return resp, nil
		}

		lastErr = err

		var authErr *errors.ErrAuth
		if stderrors.As(err, &authErr) {
			e.metrics.RecordUpstreamAttempt(e.provider, req.Endpoint, "auth_error")
			e.logger.WarnWithContext(ctx, "provider request aborted: no usable credential",
				"provider", e.provider,
				"endpoint", req.Endpoint,
			)
			return nil, err
		}

		if !errors.IsRetryable(err) {
			e.metrics.RecordUpstreamAttempt(e.provider, req.Endpoint, "terminal")
			e.logger.WarnWithContext(ctx, "provider request failed",
				"provider", e.provider,
				"endpoint", req.Endpoint,
				"attempt", attempt,
				"error", err.Error(),
			)
			return nil, err
		}

		e.metrics.RecordUpstreamAttempt(e.provider, req.Endpoint, "retryable")
		e.logger.WarnWithContext(ctx, "provider request failed, will retry",
			"provider", e.provider,
			"endpoint", req.Endpoint,
			"attempt", attempt,
			"error", err.Error(),
		)
	}

	e.metrics.RecordUpstreamAttempt(e.provider, req.Endpoint, "exhausted")
	e.logger.ErrorWithContext(ctx, "provider request exhausted retries",
		"provider", e.provider,
		"endpoint", req.Endpoint,
		"attempts", attempts,
		"error", errString(lastErr),
	)
	if lastErr == nil {
		lastErr = &errors.ErrTransport{Endpoint: endpoint, Err: ctx.Err()}
	}
	return nil, lastErr
}

func (e *Executor) attempt(ctx context.Context, req Request, endpoint string, auth AuthProvider) (*Response, error) {
	httpReq, err := e.buildRequest(ctx, req, endpoint)
	if err != nil {
		return nil, err
	}

	if auth != nil {
		if err := auth.Apply(httpReq); err != nil {
			return nil, err
		}
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &errors.ErrTransport{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.ErrTransport{Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &errors.ErrHTTPStatus{Endpoint: endpoint, Code: resp.StatusCode, Body: string(body)}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (e *Executor) buildRequest(ctx context.Context, req Request, endpoint string) (*http.Request, error) {
	full := endpoint
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + req.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.FormBody != nil:
		body = strings.NewReader(req.FormBody.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.JSONBody != nil:
		payload, err := json.Marshal(req.JSONBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, full, body)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}

	for k, vals := range e.header {
		for _, v := range vals {
			httpReq.Header.Set(k, v)
		}
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Set(k, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	return httpReq, nil
}

func (e *Executor) resolveEndpoint(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return e.baseURL + endpoint
}

// pace reserves the next dispatch slot so that consecutive requests to this
// provider are at least fairDelay apart. The pause is unconditional, as the
// provider's usage policy demands, not a reaction to failures.
func (e *Executor) pace(ctx context.Context) error {
	if e.fairDelay <= 0 {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	now := time.Now()
	slot := e.nextDispatch
	if slot.Before(now) {
		slot = now
	}
	reserved := slot.Add(e.fairDelay)
	e.nextDispatch = reserved
	e.mu.Unlock()

	if wait := time.Until(slot); wait > 0 {
		if err := sleepCtx(ctx, wait); err != nil {
			// the caller never dispatched; give the slot back so the
			// next request is not delayed by a phantom reservation
			e.mu.Lock()
			if e.nextDispatch.Equal(reserved) {
				e.nextDispatch = slot
			}
			e.mu.Unlock()
			return err
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
