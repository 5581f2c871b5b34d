package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"turnstile/internal/logger"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	return r
}

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	r := newRouter(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		id, ok := logger.RequestIDFromContext(c.Request.Context())
		assert.True(t, ok)
		assert.NotEmpty(t, id)
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest("GET", "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDHonorsIncomingHeader(t *testing.T) {
	r := newRouter(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		id, _ := logger.RequestIDFromContext(c.Request.Context())
		assert.Equal(t, "upstream-7", id)
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Request-ID", "upstream-7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "upstream-7", w.Header().Get("X-Request-ID"))
}

func TestBuyerIdentityRejectsMissingHeader(t *testing.T) {
	r := newRouter(BuyerIdentity())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest("GET", "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBuyerIdentityPropagatesToContext(t *testing.T) {
	r := newRouter(BuyerIdentity())
	r.GET("/ping", func(c *gin.Context) {
		id, ok := logger.BuyerIDFromContext(c.Request.Context())
		assert.True(t, ok)
		assert.Equal(t, "alice", id)
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Buyer-ID", "alice")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSAnswersPreflight(t *testing.T) {
	r := newRouter(CORS())

	req, _ := http.NewRequest("OPTIONS", "/anything", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
