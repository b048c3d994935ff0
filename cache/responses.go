package cache

import (
	"time"

	"github.com/use-agent/pagecrawl/models"
)

// DefaultResponseTTL matches how long a parse response stays fresh.
const DefaultResponseTTL = time.Hour

// Responses caches successful parse results per url and username.
type Responses struct {
	store *Store[*models.ParseResult]
}

// NewResponses creates an empty response cache.
func NewResponses(capacity int, ttl time.Duration) *Responses {
	return &Responses{store: New[*models.ParseResult](capacity, ttl)}
}

// Lookup returns a cached result for req. Requests carrying a password
// always miss so credentials are re-checked against the site.
func (r *Responses) Lookup(req models.ParseRequest) (*models.ParseResult, bool) {
	if req.Password != "" {
		return nil, false
	}
	return r.store.Get(Key(req.URL, req.Username))
}

// Remember stores res for req unless it carries an error or the request
// carried a password.
func (r *Responses) Remember(req models.ParseRequest, res *models.ParseResult) bool {
	if res == nil || res.ErrorMessage != "" || req.Password != "" {
		return false
	}
	r.store.Set(Key(req.URL, req.Username), res)
	return true
}

// Len reports the number of cached results.
func (r *Responses) Len() int {
	return r.store.Len()
}

// Purge drops every cached result and reports how many were held.
func (r *Responses) Purge() int {
	n := r.store.Len()
	r.store.Purge()
	return n
}
