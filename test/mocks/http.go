// Package mocks provides a recording HTTP transport and provider-shaped
// response fixtures for tests.
package mocks

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"
)

// MockTransport is an http.RoundTripper that serves canned responses and
// records every request it sees. Plug it into a client with
// &http.Client{Transport: transport}.
type MockTransport struct {
	Responses map[string]*MockResponse
	// Queue is consumed one response per request, before the URL map is
	// consulted. Useful for fail-then-succeed retry scenarios.
	Queue        []*MockResponse
	Requests     []MockRequest
	RequestDelay time.Duration
	mu           sync.Mutex
}

// MockResponse represents a mocked HTTP response.
type MockResponse struct {
	StatusCode int
	Body       interface{}
	Headers    map[string]string
	// Err simulates a transport failure instead of returning a response.
	Err error
}

// MockRequest represents a recorded HTTP request.
type MockRequest struct {
	Method  string
	URL     string
	Body    string
	Headers map[string]string
	Time    time.Time
}

// NewMockTransport creates an empty transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Responses: make(map[string]*MockResponse),
		Requests:  make([]MockRequest, 0),
	}
}

// Client wraps the transport in a ready-to-use http.Client.
func (m *MockTransport) Client() *http.Client {
	return &http.Client{Transport: m}
}

// SetResponse sets the response for a URL. "*" matches any URL.
func (m *MockTransport) SetResponse(urlPattern string, response *MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[urlPattern] = response
}

// EnqueueResponses appends responses to the consume-once queue.
func (m *MockTransport) EnqueueResponses(responses ...*MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queue = append(m.Queue, responses...)
}

// RoundTrip serves the canned response for the request URL.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()

	recorded := MockRequest{
		Method:  req.Method,
		URL:     req.URL.String(),
		Time:    time.Now(),
		Headers: make(map[string]string),
	}
	for k, v := range req.Header {
		if len(v) > 0 {
			recorded.Headers[k] = v[0]
		}
	}
	if req.Body != nil {
		body, _ := io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(body))
		recorded.Body = string(body)
	}
	m.Requests = append(m.Requests, recorded)

	url := req.URL.String()
	var response *MockResponse
	if len(m.Queue) > 0 {
		response = m.Queue[0]
		m.Queue = m.Queue[1:]
	}
	if response == nil {
		response = m.Responses[url]
	}
	if response == nil {
		for pattern, resp := range m.Responses {
			if matchesPattern(url, pattern) {
				response = resp
				break
			}
		}
	}
	delay := m.RequestDelay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if response == nil {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(bytes.NewBufferString(`{"error": "not found"}`)),
			Header:     http.Header{},
		}, nil
	}
	if response.Err != nil {
		return nil, response.Err
	}

	body, _ := json.Marshal(response.Body)
	header := http.Header{}
	for k, v := range response.Headers {
		header.Set(k, v)
	}
	return &http.Response{
		StatusCode: response.StatusCode,
		Body:       io.NopCloser(bytes.NewBuffer(body)),
		Header:     header,
	}, nil
}

// GetRequests returns all recorded requests.
func (m *MockTransport) GetRequests() []MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockRequest, len(m.Requests))
	copy(out, m.Requests)
	return out
}

// ClearRequests clears the recorded requests.
func (m *MockTransport) ClearRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = m.Requests[:0]
}

// matchesPattern checks if a URL matches a pattern. Patterns are exact
// URLs, "*" for anything, or a "prefix*" form.
func matchesPattern(url, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		prefix := pattern[:n-1]
		return len(url) >= len(prefix) && url[:len(prefix)] == prefix
	}
	return url == pattern
}
