package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/config"
)

type SecurityConfig struct {
	// HSTS is only meaningful when clients reach the API over TLS
	HSTS           bool
	HSTSMaxAge     time.Duration
	FrameOptions   string
	ReferrerPolicy string
	CSPDirectives  []string
}

// SecurityConfigFor derives the headers from the server settings. A JSON API
// serves no documents, so the CSP denies everything.
func SecurityConfigFor(server config.ServerConfig) SecurityConfig {
	return SecurityConfig{
		HSTS:           server.CookieSecure,
		HSTSMaxAge:     365 * 24 * time.Hour,
		FrameOptions:   "DENY",
		ReferrerPolicy: "no-referrer",
		CSPDirectives:  []string{"default-src 'none'", "frame-ancestors 'none'"},
	}
}

func (s SecurityConfig) headers() [][2]string {
	h := [][2]string{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", s.FrameOptions},
		{"Referrer-Policy", s.ReferrerPolicy},
	}
	if len(s.CSPDirectives) > 0 {
		h = append(h, [2]string{"Content-Security-Policy", strings.Join(s.CSPDirectives, "; ")})
	}
	if s.HSTS {
		h = append(h, [2]string{"Strict-Transport-Security",
			fmt.Sprintf("max-age=%d; includeSubDomains", int(s.HSTSMaxAge.Seconds()))})
	}
	return h
}

func SecurityHeaders(cfg SecurityConfig) gin.HandlerFunc {
	headers := cfg.headers()
	return func(c *gin.Context) {
		for _, h := range headers {
			if h[1] != "" {
				c.Header(h[0], h[1])
			}
		}
		c.Next()
	}
}
