package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	svc          auth.AuthService
	cookieSecure bool
	now          func() time.Time
}

// NewHandler builds the auth endpoints. cookieSecure marks the session
// cookie HTTPS-only.
func NewHandler(svc auth.AuthService, cookieSecure bool) *Handler {
	return &Handler{svc: svc, cookieSecure: cookieSecure, now: time.Now}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authenticate, admin gin.HandlerFunc) {
	group := r.Group("/auth")
	{
		group.POST("/login", h.Login)
		group.POST("/logout", authenticate, h.Logout)
		group.GET("/me", authenticate, h.Me)
		group.POST("/users", authenticate, admin, h.Register)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	maxAge := int(resp.ExpiresAt.Sub(h.now()).Seconds())
	h.setCookie(c, resp.Token, maxAge)
	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) Logout(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	if err := h.svc.Logout(c.Request.Context(), identity); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.setCookie(c, "", -1)
	httputil.RespondWithSuccess(c, gin.H{"message": "logged out"})
}

func (h *Handler) Me(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return
	}

	user, err := h.svc.Me(c.Request.Context(), identity)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, user)
}

func (h *Handler) Register(c *gin.Context) {
	var req model.CreateUserRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	user, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, user)
}

func (h *Handler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.TokenCookie, value, maxAge, "/", "", h.cookieSecure, true)
}
