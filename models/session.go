package models

import "time"

// Cookie is a browser cookie in a transport-neutral form.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"` // unix seconds, 0 for session cookies
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// SessionEntry is the last known authenticated cookie jar for a site type.
type SessionEntry struct {
	SiteType string
	Cookies  []Cookie
	StoredAt time.Time
}

// SessionInfo describes a cached session without exposing cookie values.
type SessionInfo struct {
	SiteType string    `json:"siteType"`
	Cookies  int       `json:"cookies"`
	StoredAt time.Time `json:"storedAt"`
}
