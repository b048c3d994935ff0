package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/models"
)

// JobStore registers and looks up parse jobs.
type JobStore interface {
	Create(url string) models.ParseJob
	Get(id string) (models.ParseJob, bool)
	List() []models.ParseJob
}

// CreateJob returns a handler for POST /jobs.
func CreateJob(store JobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.JobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
			return
		}
		if msg := checkURL(req.URL); msg != "" {
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, msg)
			return
		}
		c.JSON(http.StatusCreated, store.Create(req.URL))
	}
}

// ListJobs returns a handler for GET /jobs.
func ListJobs(store JobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, store.List())
	}
}

// GetJob returns a handler for GET /jobs/:id.
func GetJob(store JobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		job, ok := store.Get(id)
		if !ok {
			respondError(c, http.StatusNotFound, models.ErrCodeNotFound, "job not found: "+id)
			return
		}
		c.JSON(http.StatusOK, job)
	}
}
