package api

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finbridge/finbridge/internal/errors"
	"github.com/finbridge/finbridge/internal/oauth"
)

// defaultScopes are requested when the client does not ask for specific
// ones. They cover the organization read surface the adapters use.
var defaultScopes = []string{"r_organization_profile"}

// handleOAuthLogin serves GET /auth/:provider/login. It issues a fresh
// authorization URL bound to the caller's session and redirects there.
func (s *Server) handleOAuthLogin(c *gin.Context) {
	manager, ok := s.oauthManager(c)
	if !ok {
		return
	}

	authURL, err := manager.AuthorizationURL(sessionID(c), defaultScopes)
	if err != nil {
		var authErr *errors.ErrAuth
		if stderrors.As(err, &authErr) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// handleOAuthCallback serves GET /auth/:provider/callback. A state mismatch
// is rejected before any token-endpoint call is made.
func (s *Server) handleOAuthCallback(c *gin.Context) {
	manager, ok := s.oauthManager(c)
	if !ok {
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":          "authorization denied by provider",
			"provider_error": errParam,
		})
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and state are required"})
		return
	}

	if err := manager.Exchange(c.Request.Context(), sessionID(c), code, state); err != nil {
		var invalidState *errors.ErrInvalidState
		if stderrors.As(err, &invalidState) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		var exchange *errors.ErrTokenExchange
		if stderrors.As(err, &exchange) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "authenticated", "provider": c.Param("provider")})
}

// handleOAuthLogout serves POST /auth/:provider/logout.
func (s *Server) handleOAuthLogout(c *gin.Context) {
	manager, ok := s.oauthManager(c)
	if !ok {
		return
	}

	manager.Logout(sessionID(c))
	c.JSON(http.StatusOK, gin.H{"status": "logged out", "provider": c.Param("provider")})
}

// oauthManager resolves the :provider path segment to its session manager.
// Only the professional-network provider uses delegated authorization.
func (s *Server) oauthManager(c *gin.Context) (*oauth.Manager, bool) {
	if c.Param("provider") != s.linknet.Name() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown oauth provider", "provider": c.Param("provider")})
		return nil, false
	}
	return s.linknet.Auth(), true
}
