// Package jobs registers asynchronous parse jobs so callers can submit a
// URL and poll for its record instead of blocking on a fetch.
package jobs

import (
	"crypto/rand"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/use-agent/pagecrawl/cache"
	"github.com/use-agent/pagecrawl/models"
)

// Registry defaults.
const (
	DefaultCapacity = 1000
	DefaultTTL      = time.Hour

	idLength   = 10
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLimit    = 256 - 256%len(idAlphabet)
)

// Registry stores job records in a TTL-bounded cache.
type Registry struct {
	store  *cache.Store[models.ParseJob]
	newID  func() string
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(capacity int, ttl time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  cache.New[models.ParseJob](capacity, ttl),
		newID:  newID,
		logger: logger,
	}
}

// Create records a new job for url in the created state and returns a copy
// of it. Nothing starts the job; see Sweep.
func (r *Registry) Create(url string) models.ParseJob {
	job := models.ParseJob{
		ID:        r.newID(),
		URL:       url,
		Status:    models.JobCreated,
		CreatedAt: time.Now().UnixMilli(),
	}
	r.store.Set(job.ID, job)
	r.logger.Debug("job registered", "id", job.ID, "url", url)
	return job
}

// Get returns the job with id if it has not expired.
func (r *Registry) Get(id string) (models.ParseJob, bool) {
	return r.store.Get(id)
}

// List returns every live job, oldest first.
func (r *Registry) List() []models.ParseJob {
	list := r.store.Values()
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt < list[j].CreatedAt
	})
	return list
}

// Len counts stored jobs.
func (r *Registry) Len() int {
	return r.store.Len()
}

// Sweep is the periodic pass over pending jobs. It only reports the queue
// size: no worker promotes jobs out of the created state yet.
func (r *Registry) Sweep() int {
	pending := 0
	for _, job := range r.List() {
		if job.Status == models.JobCreated {
			pending++
		}
	}
	if pending > 0 {
		r.logger.Info("jobs pending", "count", pending)
	}
	return pending
}

// newID returns a random base-36 identifier.
func newID() string {
	id, err := idFrom(rand.Reader)
	if err != nil {
		panic("jobs: crypto/rand failed: " + err.Error())
	}
	return id
}

// idFrom draws an identifier from r. Bytes at or above idLimit are
// discarded so every symbol is equally likely.
func idFrom(r io.Reader) (string, error) {
	out := make([]byte, 0, idLength)
	buf := make([]byte, idLength+idLength/2)
	for len(out) < idLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= idLimit {
				continue
			}
			out = append(out, idAlphabet[int(b)%len(idAlphabet)])
			if len(out) == idLength {
				break
			}
		}
	}
	return string(out), nil
}
