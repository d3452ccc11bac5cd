package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-checkout/internal/config"
	"github.com/your-org/storefront-checkout/internal/pkg/auth"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "Storefront Checkout"},
		Session: config.SessionConfig{
			Secret:     "test-secret-that-is-at-least-32-characters",
			Expiry:     time.Hour,
			CookieName: "storefront_session",
		},
		Security: config.SecurityConfig{RateLimitPerMinute: 2},
		Cart:     config.CartConfig{KeyPrefix: "test"},
	}
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/whoami", func(c *gin.Context) {
		profileID, _ := GetProfileIDFromContext(c)
		c.String(http.StatusOK, profileID)
	})
	return r
}

func TestSession(t *testing.T) {
	cfg := testConfig()
	logger, _ := logtest.NewNullLogger()
	jwtManager := auth.NewJWTManager(cfg)
	r := newRouter(Session(cfg, jwtManager, logger))

	// First visit issues a profile
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	profileID := rec.Body.String()
	assert.NotEmpty(t, profileID)

	// The cookie identifies the same profile later
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, profileID, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())

	// A forged cookie is replaced
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "storefront_session", Value: "forged"})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.NotEqual(t, profileID, rec.Body.String())
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	logger, _ := logtest.NewNullLogger()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	r := newRouter(RateLimit(cfg, rdb, logger))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// The budget resets after a minute
	mr.FastForward(time.Minute)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_RedisDown(t *testing.T) {
	cfg := testConfig()
	logger, _ := logtest.NewNullLogger()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })

	r := newRouter(RateLimit(cfg, rdb, logger))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := newRouter(RequestID())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		origin      string
		wantOrigin  string
		credentials bool
	}{
		{"listed origin", []string{"https://shop.example.uz"}, "https://shop.example.uz", "https://shop.example.uz", true},
		{"unlisted origin", []string{"https://shop.example.uz"}, "https://evil.example.com", "", false},
		{"subdomain wildcard", []string{"*.example.uz"}, "https://shop.example.uz", "https://shop.example.uz", true},
		{"subdomain wildcard with port", []string{"*.example.uz"}, "https://shop.example.uz:8443", "https://shop.example.uz:8443", true},
		{"lookalike domain", []string{"*.example.com"}, "https://evilexample.com", "", false},
		{"apex is not a subdomain", []string{"*.example.com"}, "https://example.com", "", false},
		{"suffix in path", []string{"*.example.com"}, "https://evil.net/.example.com", "", false},
		{"any origin without credentials", []string{"*"}, "https://anywhere.test", "*", false},
		{"listed origin wins over any", []string{"*", "https://shop.example.uz"}, "https://shop.example.uz", "https://shop.example.uz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Security.CORSAllowedOrigins = tt.allowed
			cfg.Security.CORSAllowedHeaders = []string{"Content-Type", TabIDHeader}
			r := newRouter(CORS(cfg))

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.credentials {
				assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
			}
			assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), TabIDHeader)
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	cfg := testConfig()
	cfg.Security.CORSAllowedOrigins = []string{"https://shop.example.uz"}
	cfg.Security.CORSAllowedHeaders = []string{"Content-Type", TabIDHeader}
	r := newRouter(CORS(cfg))

	req := httptest.NewRequest(http.MethodOptions, "/whoami", nil)
	req.Header.Set("Origin", "https://shop.example.uz")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example.uz", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), TabIDHeader)
}
