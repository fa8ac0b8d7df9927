package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConditionalEngine(maxAge time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/api/item/:id", ConditionalGET(maxAge), func(c *gin.Context) {
		if c.Param("id") == "404" {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": 1, "name": "Hello from Postgres"})
	})
	return engine
}

func TestConditionalGET(t *testing.T) {
	engine := newConditionalEngine(time.Minute)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/item/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"name":"Hello from Postgres"}`, w.Body.String())
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "public, max-age=60, must-revalidate", w.Header().Get("Cache-Control"))

	t.Run("matching tag", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/item/1", nil)
		req.Header.Set("If-None-Match", etag)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("weak tag in list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/item/1", nil)
		req.Header.Set("If-None-Match", `"other", W/`+etag)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotModified, w.Code)
	})

	t.Run("stale tag", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/item/1", nil)
		req.Header.Set("If-None-Match", `"stale"`)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Body.String())
	})

	t.Run("errors are not tagged", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/item/404", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, w.Header().Get("ETag"))
		assert.JSONEq(t, `{"error":"not_found"}`, w.Body.String())
	})
}

func TestConditionalGET_NoCacheByDefault(t *testing.T) {
	w := httptest.NewRecorder()
	newConditionalEngine(0).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/item/1", nil))

	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
}
