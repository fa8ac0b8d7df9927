package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/itemsvc/pkg/logger"
)

// MetricsSource produces a point-in-time exposition of the metric registry.
type MetricsSource interface {
	Snapshot() ([]byte, error)
	ContentType() string
}

// MetricsHandler serves the scrape endpoint.
type MetricsHandler struct {
	source MetricsSource
	log    logger.Logger
}

func NewMetricsHandler(source MetricsSource, log logger.Logger) *MetricsHandler {
	return &MetricsHandler{source: source, log: log}
}

// Scrape renders the whole registry in one pass. Concurrent scrapes and updates are safe.
func (h *MetricsHandler) Scrape(c *gin.Context) {
	body, err := h.source.Snapshot()
	if err != nil {
		h.log.Error(c.Request.Context(), "Failed to render metrics", err)
		c.String(http.StatusInternalServerError, "metrics unavailable")
		return
	}
	c.Data(http.StatusOK, h.source.ContentType(), body)
}
