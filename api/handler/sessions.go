package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/cache"
	"github.com/use-agent/pagecrawl/models"
	"github.com/use-agent/pagecrawl/sites"
)

// SessionStore lists and drops cached sign-in sessions.
type SessionStore interface {
	List() []models.SessionEntry
	Forget(siteType string) bool
}

// ListSessions returns a handler for GET /sessions. Cookie values never
// leave the process.
func ListSessions(store SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries := store.List()
		out := make([]models.SessionInfo, 0, len(entries))
		for _, e := range entries {
			out = append(out, models.SessionInfo{
				SiteType: e.SiteType,
				Cookies:  len(e.Cookies),
				StoredAt: e.StoredAt,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

// ForgetSession returns a handler for DELETE /sessions/:type. The next
// fetch of that type signs in again.
func ForgetSession(store SessionStore, table sites.Table) gin.HandlerFunc {
	return func(c *gin.Context) {
		pt := c.Param("type")
		d, ok := table.Lookup(sites.PageType(pt))
		if !ok || !d.RequiresLogin {
			respondError(c, http.StatusNotFound, models.ErrCodeNotFound, "no sign-in page type: "+pt)
			return
		}
		store.Forget(pt)
		c.Status(http.StatusNoContent)
	}
}

// PurgeResponses returns a handler for DELETE /cache/responses.
func PurgeResponses(responses *cache.Responses) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"purged": responses.Purge()})
	}
}
