package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/itemsvc/internal/domain/repository"
	"github.com/turtacn/itemsvc/pkg/logger"
)

// HealthHandler provides liveness and readiness endpoints.
type HealthHandler struct {
	db  repository.Pinger
	log logger.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil, in which case readiness
// reflects liveness only.
func NewHealthHandler(db repository.Pinger, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:  db,
		log: log,
	}
}

// Liveness godoc
// @Summary      Liveness probe
// @Description  Reports that the process is serving. Never touches the data store.
// @Tags         health
// @Produce      plain
// @Success      200  {string}  string  "ok"
// @Router       /health [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Readiness godoc
// @Summary      Readiness probe
// @Description  Checks that the data store is reachable.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /ready [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			h.log.Warn(c.Request.Context(), "Readiness check failed", logger.Fields{"error": err.Error()})
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
