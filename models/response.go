package models

import "time"

// Element is one extracted piece of page text.
type Element struct {
	// Text is the normalized text content. Never empty.
	Text string `json:"text"`

	// TagName is the lower-cased tag of the matched node ("p", "h2", "li").
	TagName string `json:"tagName"`
}

// ParseResult is the outcome of one page fetch. ErrorMessage is empty on
// success; Elements is always a non-nil slice so it serializes as [].
type ParseResult struct {
	// Timestamp is the fetch start time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// ElapsedTime is the wall-clock duration in milliseconds.
	ElapsedTime int64 `json:"elapsedTime"`

	// NetworkTraffic is the number of bytes received while the page loaded.
	NetworkTraffic int64 `json:"networkTraffic"`

	// PageType is the classified page type, empty if classification never ran.
	PageType string `json:"pageType,omitempty"`

	// ErrorMessage carries the first failure, if any.
	ErrorMessage string `json:"errorMessage"`

	ElementsCount int       `json:"elementsCount"`
	Elements      []Element `json:"elements"`
}

// NewParseResult freezes the collected data into a result record.
func NewParseResult(start time.Time, traffic int64, pageType string, elements []Element, err error) *ParseResult {
	if elements == nil {
		elements = []Element{}
	}
	res := &ParseResult{
		Timestamp:      start.UnixMilli(),
		ElapsedTime:    time.Since(start).Milliseconds(),
		NetworkTraffic: traffic,
		PageType:       pageType,
		ElementsCount:  len(elements),
		Elements:       elements,
	}
	if err != nil {
		res.ErrorMessage = err.Error()
	}
	return res
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status       string `json:"status"` // "healthy" or "degraded"
	Uptime       string `json:"uptime"`
	BrowserReady bool   `json:"browser_ready"`
	Sessions     int    `json:"sessions"`
	Jobs         int    `json:"jobs"`
	Version      string `json:"version"`
}

// ErrorResponse is the body of every non-2xx API answer.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// NewErrorResponse builds a failed response with code and message.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: &ErrorDetail{Code: code, Message: message}}
}
