package app

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func metricsRouter(enabled bool) *gin.Engine {
	router := gin.New()
	router.GET("/metrics", metricsAuthMiddleware(enabled, "prometheus", "secret123"), func(c *gin.Context) {
		c.String(http.StatusOK, "metrics")
	})
	return router
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestMetricsAuthDisabledPassesThrough(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	metricsRouter(false).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "metrics", w.Body.String())
}

func TestMetricsAuth(t *testing.T) {
	t.Parallel()
	router := metricsRouter(true)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid credentials", basic("prometheus", "secret123"), http.StatusOK},
		{"wrong username", basic("wronguser", "secret123"), http.StatusUnauthorized},
		{"wrong password", basic("prometheus", "wrongpass"), http.StatusUnauthorized},
		{"no header", "", http.StatusUnauthorized},
		{"only basic", "Basic", http.StatusUnauthorized},
		{"invalid base64", "Basic notbase64!!!", http.StatusUnauthorized},
		{"bearer token", "Bearer sometoken", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic realm=")
			}
		})
	}
}
