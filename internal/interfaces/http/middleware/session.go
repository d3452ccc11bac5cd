// internal/interfaces/http/middleware/session.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-checkout/internal/config"
	"github.com/your-org/storefront-checkout/internal/pkg/auth"
)

const profileIDKey = "profile_id"

// Session identifies the browser profile from the session cookie.
// Requests without a valid cookie get a fresh profile and a new cookie.
func Session(cfg *config.Config, jwtManager *auth.JWTManager, log logrus.FieldLogger) gin.HandlerFunc {
	maxAge := int(cfg.Session.Expiry.Seconds())

	return func(c *gin.Context) {
		if token, err := c.Cookie(cfg.Session.CookieName); err == nil && token != "" {
			claims, err := jwtManager.ValidateSessionToken(token)
			if err == nil {
				c.Set(profileIDKey, claims.ProfileID)
				c.Next()
				return
			}
			log.WithError(err).Debug("Discarding invalid session cookie")
		}

		profileID, token, err := jwtManager.NewProfile()
		if err != nil {
			log.WithError(err).Error("Failed to issue session token")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to start session",
			})
			c.Abort()
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.Session.CookieName, token, maxAge, "/", "", cfg.Session.Secure, true)
		c.Set(profileIDKey, profileID)

		c.Next()
	}
}

// GetProfileIDFromContext extracts the profile ID from gin context
func GetProfileIDFromContext(c *gin.Context) (string, bool) {
	profileID, exists := c.Get(profileIDKey)
	if !exists {
		return "", false
	}
	id, ok := profileID.(string)
	return id, ok
}
