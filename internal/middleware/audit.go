package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AccessLog records which staff member touched which clinic record.
// Entries go to the structured log under the "audit" channel.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		if status >= http.StatusBadRequest {
			event = log.Warn()
		} else {
			event = log.Info()
		}

		event = event.
			Str("channel", "audit").
			Str("action", actionFor(c.Request.Method)).
			Str("route", c.FullPath()).
			Str("user_id", c.GetString("user_id")).
			Str("request_id", c.GetString(ContextRequestID)).
			Str("client_ip", c.ClientIP()).
			Int("status", status)
		if id := c.Param("id"); id != "" {
			event = event.Str("entity_id", id)
		}
		if regNo := c.Param("regNo"); regNo != "" {
			event = event.Str("reg_no", regNo)
		}
		event.Msg("record access")
	}
}

func actionFor(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
