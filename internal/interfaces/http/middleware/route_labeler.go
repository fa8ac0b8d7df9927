package middleware

import (
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/itemsvc/pkg/constants"
)

// RouteLabeler maps the router's dispatch decision to a bounded set of route labels.
//
// The label table is built from the registered routes, so however many distinct raw paths are
// requested (/api/item/17, /api/item/99999, ...) they all collapse onto /api/item/{id}.
type RouteLabeler struct {
	table atomic.Pointer[map[string]string]
}

// NewRouteLabeler creates a labeler for the given route patterns.
func NewRouteLabeler(patterns ...string) *RouteLabeler {
	l := &RouteLabeler{}
	l.store(patterns)
	return l
}

// Load replaces the label table with the routes registered on an engine.
// It is meant to be called once after route registration and before serving.
func (l *RouteLabeler) Load(routes gin.RoutesInfo) {
	patterns := make([]string, 0, len(routes))
	for _, r := range routes {
		patterns = append(patterns, r.Path)
	}
	l.store(patterns)
}

func (l *RouteLabeler) store(patterns []string) {
	table := make(map[string]string, len(patterns))
	for _, p := range patterns {
		table[p] = CanonicalTemplate(p)
	}
	l.table.Store(&table)
}

// Label returns the label for the route gin matched for c.
func (l *RouteLabeler) Label(c *gin.Context) string {
	return l.LabelFor(c.FullPath())
}

// LabelFor returns the label for a matched route pattern, or the unmatched label when the
// pattern is empty or unknown.
func (l *RouteLabeler) LabelFor(pattern string) string {
	if pattern == "" {
		return constants.UnmatchedRouteLabel
	}
	table := l.table.Load()
	if table == nil {
		return constants.UnmatchedRouteLabel
	}
	if label, ok := (*table)[pattern]; ok {
		return label
	}
	return constants.UnmatchedRouteLabel
}

// CanonicalTemplate rewrites gin parameters into brace form: /api/item/:id -> /api/item/{id}.
func CanonicalTemplate(pattern string) string {
	segments := strings.Split(pattern, "/")
	for i, s := range segments {
		if len(s) > 1 && (s[0] == ':' || s[0] == '*') {
			segments[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}
