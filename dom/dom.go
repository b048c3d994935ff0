// Package dom defines the view of a loaded page that classification and
// extraction work against. The browser package implements it over a live
// Chrome tab; Static implements it over already-fetched markup.
package dom

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by WaitSelector when nothing matched in time.
var ErrNotFound = errors.New("dom: selector not found")

// Node is the text and tag identity of one matched element.
type Node struct {
	// Text is the raw textContent, not yet normalized.
	Text string

	// TagName is lower-cased.
	TagName string
}

// Prober checks whether a selector appears in the document within timeout.
type Prober interface {
	WaitSelector(ctx context.Context, selector string, timeout time.Duration) error
}

// Querier returns every node matching selector, in document order.
type Querier interface {
	QueryAll(ctx context.Context, selector string) ([]Node, error)
}

// Document is a page that can be probed and queried.
type Document interface {
	Prober
	Querier
}
