package dom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

var _ Document = (*Static)(nil)

// Static is a Document over parsed HTML. Its content never changes, so
// WaitSelector answers immediately regardless of timeout.
type Static struct {
	doc *goquery.Document
}

// Parse builds a Static document from raw HTML.
func Parse(html string) (*Static, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("dom: parse html: %w", err)
	}
	return &Static{doc: doc}, nil
}

// WaitSelector reports ErrNotFound when selector matches nothing.
func (s *Static) WaitSelector(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sel, err := s.find(selector)
	if err != nil {
		return err
	}
	if sel.Length() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return nil
}

// QueryAll returns the textContent and tag name of every match.
func (s *Static) QueryAll(ctx context.Context, selector string) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := s.find(selector)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, el *goquery.Selection) {
		nodes = append(nodes, Node{
			Text:    el.Text(),
			TagName: goquery.NodeName(el),
		})
	})
	return nodes, nil
}

// find compiles selector up front; goquery's Find silently matches nothing
// on a bad selector, which would hide typos in the descriptor table.
func (s *Static) find(selector string) (*goquery.Selection, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: invalid selector %q: %w", selector, err)
	}
	return s.doc.FindMatcher(m), nil
}
