package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pinlens/backend/internal/database"
)

var startedAt = time.Now()

// Health handles GET /health. Reports degraded rather than failing outright
// when the database is unreachable, so load balancers can distinguish a slow
// dependency from a dead process.
func (h *Handlers) Health(c *gin.Context) {
	status := "ok"
	httpStatus := http.StatusOK

	dbStatus := "ok"
	if err := database.Health(); err != nil {
		dbStatus = "unreachable"
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":   status,
		"database": dbStatus,
		"uptime":   time.Since(startedAt).Round(time.Second).String(),
	})
}
