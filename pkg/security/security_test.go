package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newThrottledEngine(maxAttempts int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", LoginThrottle(maxAttempts, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doLogin(r *gin.Engine, ip string) int {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestLoginThrottleBlocksAfterBurst(t *testing.T) {
	r := newThrottledEngine(3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doLogin(r, "10.0.0.1"))
	}
	// 第 4 次登录码尝试被拦下
	assert.Equal(t, http.StatusTooManyRequests, doLogin(r, "10.0.0.1"))
}

func TestLoginThrottleIsPerIP(t *testing.T) {
	r := newThrottledEngine(1)

	assert.Equal(t, http.StatusOK, doLogin(r, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, doLogin(r, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, doLogin(r, "10.0.0.2"))
}

func TestSecureSetsNoStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Secure())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
