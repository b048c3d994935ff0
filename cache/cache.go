// Package cache holds the in-memory, TTL-bounded stores shared by the
// service: signed-in sessions, parse responses and job records.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store is a size- and age-bounded map. Entries expire a fixed TTL after
// their last Set; when full, the least recently used entry is evicted.
// It is safe for concurrent use.
type Store[V any] struct {
	lru *expirable.LRU[string, V]
}

// New creates a Store holding at most capacity entries for at most ttl.
func New[V any](capacity int, ttl time.Duration) *Store[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Store[V]{lru: expirable.NewLRU[string, V](capacity, nil, ttl)}
}

// Get returns the live value stored under key.
func (s *Store[V]) Get(key string) (V, bool) {
	return s.lru.Get(key)
}

// Set stores v under key, replacing any previous value. Last writer wins.
func (s *Store[V]) Set(key string, v V) {
	s.lru.Add(key, v)
}

// Delete removes key and reports whether it was present.
func (s *Store[V]) Delete(key string) bool {
	return s.lru.Remove(key)
}

// Values returns the live values from oldest to newest. It peeks each key
// because LRU.Values pads its result with zero values for expired entries.
func (s *Store[V]) Values() []V {
	keys := s.lru.Keys()
	values := make([]V, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.lru.Peek(k); ok {
			values = append(values, v)
		}
	}
	return values
}

// Len counts entries, including expired ones not yet swept.
func (s *Store[V]) Len() int {
	return s.lru.Len()
}

// Purge drops every entry.
func (s *Store[V]) Purge() {
	s.lru.Purge()
}

// Key hashes the parts of a request that select a distinct response.
func Key(url, username string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(username))
	return hex.EncodeToString(h.Sum(nil))
}
