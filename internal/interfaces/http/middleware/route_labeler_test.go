package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/turtacn/itemsvc/pkg/constants"
)

func TestCanonicalTemplate(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"/api/item/:id", "/api/item/{id}"},
		{"/health", "/health"},
		{"/debug/pprof/*profile", "/debug/pprof/{profile}"},
		{"/a/:x/b/:y", "/a/{x}/b/{y}"},
		{"/", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalTemplate(tt.pattern), tt.pattern)
	}
}

func TestRouteLabeler_LabelFor(t *testing.T) {
	l := NewRouteLabeler(constants.RouteItem, constants.RouteHealth)

	assert.Equal(t, "/api/item/{id}", l.LabelFor(constants.RouteItem))
	assert.Equal(t, "/health", l.LabelFor(constants.RouteHealth))
	assert.Equal(t, constants.UnmatchedRouteLabel, l.LabelFor(""))
	assert.Equal(t, constants.UnmatchedRouteLabel, l.LabelFor("/not/registered"))

	var empty RouteLabeler
	assert.Equal(t, constants.UnmatchedRouteLabel, empty.LabelFor(constants.RouteItem))
}

func TestRouteLabeler_LoadFromEngine(t *testing.T) {
	gin.SetMode(gin.TestMode)

	labeler := NewRouteLabeler()
	var seen []string

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		seen = append(seen, labeler.Label(c))
		c.Next()
	})
	engine.GET(constants.RouteItem, func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET(constants.RouteHealth, func(c *gin.Context) { c.Status(http.StatusOK) })
	labeler.Load(engine.Routes())

	for _, path := range []string{"/api/item/17", "/api/item/99999", "/health", "/nope", "/api/item/1/extra"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []string{
		"/api/item/{id}",
		"/api/item/{id}",
		"/health",
		constants.UnmatchedRouteLabel,
		constants.UnmatchedRouteLabel,
	}, seen)
}
