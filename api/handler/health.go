package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// BrowserStatus reports whether the shared browser is up.
type BrowserStatus interface {
	Ready() bool
}

// Counter reports a store size.
type Counter interface {
	Len() int
}

// Health returns a handler for GET /health.
//
// The browser launches lazily, so a cold browser is not a failure. Status
// degrades once more jobs are queued than maxQueue.
func Health(browser BrowserStatus, sessions, jobs Counter, maxQueue int, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		queued := jobs.Len()

		status := "healthy"
		if maxQueue > 0 && queued > maxQueue {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			BrowserReady: browser.Ready(),
			Sessions:     sessions.Len(),
			Jobs:         queued,
			Version:      Version,
		})
	}
}
