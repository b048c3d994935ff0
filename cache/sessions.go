package cache

import (
	"time"

	"github.com/use-agent/pagecrawl/models"
)

// Session cache defaults.
const (
	DefaultSessionCapacity = 100
	DefaultSessionTTL      = 24 * time.Hour
)

// Sessions remembers the cookies of a signed-in browser session, one entry
// per site type.
type Sessions struct {
	store *Store[models.SessionEntry]
}

// NewSessions creates an empty session cache.
func NewSessions(capacity int, ttl time.Duration) *Sessions {
	return &Sessions{store: New[models.SessionEntry](capacity, ttl)}
}

// Get returns the live session for siteType.
func (s *Sessions) Get(siteType string) (models.SessionEntry, bool) {
	return s.store.Get(siteType)
}

// Set replaces the session for siteType.
func (s *Sessions) Set(siteType string, cookies []models.Cookie) models.SessionEntry {
	entry := models.SessionEntry{
		SiteType: siteType,
		Cookies:  cookies,
		StoredAt: time.Now(),
	}
	s.store.Set(siteType, entry)
	return entry
}

// Forget drops the session for siteType and reports whether one was held.
func (s *Sessions) Forget(siteType string) bool {
	return s.store.Delete(siteType)
}

// List returns the live sessions, oldest first.
func (s *Sessions) List() []models.SessionEntry {
	return s.store.Values()
}

// Len reports how many site types hold a session.
func (s *Sessions) Len() int {
	return s.store.Len()
}
