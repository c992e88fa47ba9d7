package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// NoRoute renders unknown paths in the standard error envelope
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		httputil.RespondWithError(c, apperrors.NotFound("route", nil))
	}
}

// NoMethod renders 405 in the standard error envelope
func NoMethod() gin.HandlerFunc {
	return func(c *gin.Context) {
		abortWithStatus(c, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

// abortWithStatus is used for statuses that have no application error kind
func abortWithStatus(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, httputil.Response{
		Success: false,
		Error:   &httputil.Error{Code: code, Message: message},
	})
}
