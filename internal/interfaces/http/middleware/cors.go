// internal/interfaces/http/middleware/cors.go
package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-checkout/internal/config"
)

type originMatch int

const (
	originDenied originMatch = iota
	originAny                // "*" entry: no cookies may travel
	originListed
)

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// Credentials are only allowed for explicitly listed origins, since the
// session cookie identifies the browser profile.
func CORS(cfg *config.Config) gin.HandlerFunc {
	methods := strings.Join(cfg.Security.CORSAllowedMethods, ", ")
	headers := strings.Join(cfg.Security.CORSAllowedHeaders, ", ")
	exposed := strings.Join([]string{TabIDHeader, requestIDHeader}, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		c.Writer.Header().Add("Vary", "Origin")

		switch matchOrigin(origin, cfg.Security.CORSAllowedOrigins) {
		case originListed:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		case originAny:
			c.Header("Access-Control-Allow-Origin", "*")
		}

		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Expose-Headers", exposed)
		c.Header("Access-Control-Max-Age", "86400") // 24 hours

		// Handle preflight requests
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// matchOrigin checks the origin against the allowed list. Entries are exact
// origins, "*.example.com" for any subdomain, or "*".
func matchOrigin(origin string, allowedOrigins []string) originMatch {
	if origin == "" {
		return originDenied
	}

	host := ""
	if u, err := url.Parse(origin); err == nil {
		host = strings.ToLower(u.Hostname())
	}

	result := originDenied
	for _, allowed := range allowedOrigins {
		switch {
		case allowed == origin:
			return originListed
		case strings.HasPrefix(allowed, "*."):
			domain := strings.ToLower(strings.TrimPrefix(allowed, "*"))
			if host != "" && strings.HasSuffix(host, domain) {
				return originListed
			}
		case allowed == "*":
			result = originAny
		}
	}
	return result
}
