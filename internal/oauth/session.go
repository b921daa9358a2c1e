package oauth

import "time"

// Session holds the per-user-session OAuth state. All fields are guarded
// by the owning Manager; callers only ever see copies.
type Session struct {
	// State is the single-use CSRF nonce issued with the last
	// authorization URL. Cleared on validation.
	State string
	// AccessToken is the current bearer token, empty when unauthenticated.
	AccessToken string
	// ExpiresAt is the absolute expiry; the token is usable only while
	// now < ExpiresAt.
	ExpiresAt time.Time
}

// Authenticated reports whether the session holds a token usable at now.
func (s *Session) Authenticated(now time.Time) bool {
	return s != nil && s.AccessToken != "" && now.Before(s.ExpiresAt)
}
