// Package page abstracts the live booking page the automation drives.
//
// The automation never holds on to driver-specific node handles.  A
// Document answers selector queries with Elements that stay addressable
// across polls, and every Element operation re-resolves the node, so a
// re-rendered or detached node surfaces as ErrStale instead of acting on a
// ghost.  Drivers (chromedp, rod, playwright) and the goquery-backed Static
// page all satisfy the same interfaces.
package page

import (
	"context"
	"errors"
)

// ErrStale is returned when an element is no longer attached to the page.
var ErrStale = errors.New("page: element is stale")

// Scope is anything selectors can be resolved against.
type Scope interface {
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Option is one entry of a <select>.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Element is a node on the page.
type Element interface {
	Scope
	// Text is the node's textContent.
	Text(ctx context.Context) (string, error)
	// Attr returns the attribute value and whether it is present.
	Attr(ctx context.Context, name string) (string, bool, error)
	HasClass(ctx context.Context, class string) (bool, error)
	// Visible mirrors offsetParent !== null.
	Visible(ctx context.Context) (bool, error)
	Options(ctx context.Context) ([]Option, error)

	ScrollIntoView(ctx context.Context) error
	Focus(ctx context.Context) error
	// SetValue assigns the value property without firing any event.
	SetValue(ctx context.Context, value string) error
	// Dispatch fires a bubbling DOM event of the given type.
	Dispatch(ctx context.Context, event string) error
	Click(ctx context.Context) error

	// String describes the element for logs.
	String() string
}

// Document is the page itself.
type Document interface {
	Scope
	URL(ctx context.Context) (string, error)
	// BodyText is document.body.textContent.
	BodyText(ctx context.Context) (string, error)
	// ReadyState is document.readyState.
	ReadyState(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
}

// First returns the first element matching selector within s, or nil.
func First(ctx context.Context, s Scope, selector string) (Element, error) {
	els, err := s.QueryAll(ctx, selector)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}
