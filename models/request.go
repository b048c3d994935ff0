package models

// ParseRequest is the input of a single page fetch, bound from the query
// string of GET /parse.
type ParseRequest struct {
	// URL is the target page. Required.
	URL string `json:"url" form:"url" binding:"required"`

	// Username overrides the configured login for gated sites.
	Username string `json:"username,omitempty" form:"username"`

	// Password overrides the configured password for gated sites.
	Password string `json:"password,omitempty" form:"password"`
}

// HasCredentials reports whether the request carries its own login.
func (r *ParseRequest) HasCredentials() bool {
	return r.Username != "" || r.Password != ""
}

// ParseHTMLRequest is the payload for POST /parse/html: classify and extract
// already-fetched markup without touching the browser.
type ParseHTMLRequest struct {
	// URL is used for prefix classification only; it is never fetched.
	URL string `json:"url" binding:"required"`

	// HTML is the raw document.
	HTML string `json:"html" binding:"required"`
}

// JobRequest is the payload for POST /jobs.
type JobRequest struct {
	URL string `json:"url" binding:"required"`
}
