package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionCookie = "fb_session"

// sessionCookieMaxAge keeps the browser session stable across the OAuth
// redirect round trip without persisting it for long.
const sessionCookieMaxAge = 12 * 60 * 60

// sessionID returns the caller's session identifier. Browser clients get a
// cookie on first contact; API clients may pass X-Session-ID instead. The
// OAuth flow binds state nonces and tokens to this identifier.
func sessionID(c *gin.Context) string {
	if id := c.GetHeader("X-Session-ID"); id != "" {
		return id
	}
	if id, err := c.Cookie(sessionCookie); err == nil && id != "" {
		return id
	}
	id := uuid.New().String()
	c.SetCookie(sessionCookie, id, sessionCookieMaxAge, "/", "", false, true)
	return id
}
