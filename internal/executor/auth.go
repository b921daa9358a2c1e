package executor

import (
	"net/http"

	"github.com/finbridge/finbridge/internal/errors"
)

// AuthProvider injects provider auth into an outgoing request. It fails
// with *errors.ErrAuth when no usable credential exists, before anything
// goes on the wire.
type AuthProvider interface {
	Apply(req *http.Request) error
}

// APIKeyQuery injects a static API key as a query parameter.
type APIKeyQuery struct {
	Provider string
	Param    string
	Key      string
}

func (a APIKeyQuery) Apply(req *http.Request) error {
	if a.Key == "" {
		return &errors.ErrAuth{Provider: a.Provider, Reason: "api key not configured"}
	}
	q := req.URL.Query()
	q.Set(a.Param, a.Key)
	req.URL.RawQuery = q.Encode()
	return nil
}

// APIKeyHeader injects a static API key as a request header.
type APIKeyHeader struct {
	Provider string
	Header   string
	Key      string
}

func (a APIKeyHeader) Apply(req *http.Request) error {
	if a.Key == "" {
		return &errors.ErrAuth{Provider: a.Provider, Reason: "api key not configured"}
	}
	req.Header.Set(a.Header, a.Key)
	return nil
}

// TokenSource supplies a live bearer token, typically backed by an OAuth
// session. It returns *errors.ErrAuth for absent or expired tokens.
type TokenSource interface {
	Token() (string, error)
}

// Bearer injects "Authorization: Bearer <token>" from a TokenSource.
type Bearer struct {
	Source TokenSource
}

func (b Bearer) Apply(req *http.Request) error {
	token, err := b.Source.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func() (string, error)

func (f TokenFunc) Token() (string, error) {
	return f()
}
