package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corsRouter(t *testing.T, enabled bool, origins string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	if mw := corsMiddleware(enabled, origins, discardLogger()); mw != nil {
		router.Use(mw)
	}
	router.GET("/v1/downloads/:token", func(c *gin.Context) {
		c.Header("Retry-After", "60")
		c.Status(http.StatusTooManyRequests)
	})
	router.POST("/v1/downloads/:token/verify", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestCorsMiddleware_Disabled(t *testing.T) {
	assert.Nil(t, corsMiddleware(false, "https://drop.example.com", discardLogger()))
	assert.Nil(t, corsMiddleware(true, " , ", discardLogger()))
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t,
		[]string{"https://drop.example.com", "https://admin.example.com"},
		splitOrigins(" https://drop.example.com ,,https://admin.example.com "))
	assert.Nil(t, splitOrigins(""))
}

func TestCorsMiddleware_ExposesRetryAfter(t *testing.T) {
	router := corsRouter(t, true, "https://drop.example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/downloads/abc", nil)
	req.Header.Set("Origin", "https://drop.example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "https://drop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Retry-After")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCorsMiddleware_Preflight(t *testing.T) {
	router := corsRouter(t, true, "https://drop.example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/downloads/abc/verify", nil)
	req.Header.Set("Origin", "https://drop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestCorsMiddleware_RejectsUnknownOrigin(t *testing.T) {
	router := corsRouter(t, true, "https://drop.example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/downloads/abc", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorsMiddleware_Wildcard(t *testing.T) {
	router := corsRouter(t, true, "*")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/downloads/abc", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
