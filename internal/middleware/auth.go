package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

const (
	// TokenCookie carries the session token set at login
	TokenCookie     = "token"
	ContextIdentity = "identity"
)

// Verifier resolves a session token to the caller behind it
type Verifier interface {
	Verify(ctx context.Context, token string) (*model.Identity, error)
}

type AuthMiddleware struct {
	verifier Verifier
}

func NewAuthMiddleware(verifier Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate verifies the token from the token cookie or the
// Authorization header and stores the identity in the context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := tokenFromRequest(c)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		identity, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		c.Set(ContextIdentity, identity)
		c.Set("user_id", identity.UserID.String())
		c.Next()
	}
}

// RequireRole rejects verified callers that do not hold role
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
			return
		}
		if identity.Role != role {
			httputil.RespondWithError(c, apperrors.Forbidden(role+" role required"))
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity set by Authenticate
func IdentityFrom(c *gin.Context) (*model.Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*model.Identity)
	return identity, ok && identity != nil
}

func tokenFromRequest(c *gin.Context) (string, error) {
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie, nil
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		return "", apperrors.Unauthorized("missing token", nil)
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", apperrors.Unauthorized("invalid authorization format", nil)
	}
	return strings.TrimSpace(token), nil
}
