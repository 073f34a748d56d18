package page

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Event is one interaction recorded by a Static page.
type Event struct {
	Kind   string // click, focus, scroll, set, navigate or a dispatched event type
	Target string
	Value  string // value set, URL navigated to, or text of the clicked element
}

type clickHook struct {
	selector string
	fn       func(*Static)
}

// Static is an in-memory Document parsed with goquery.  It registers pages
// by URL, follows data-navigate attributes on click and records every
// interaction, which lets the flow run without a browser.
//
// Values are kept in the value attribute.  Visibility follows the hidden
// attribute and inline display:none on the node or an ancestor.
type Static struct {
	mu     sync.Mutex
	pages  map[string]string
	url    string
	doc    *goquery.Document
	gen    int
	hooks  []clickHook
	events []Event
}

var _ Document = (*Static)(nil)

// NewStatic returns an empty page at about:blank.
func NewStatic() *Static {
	s := &Static{pages: map[string]string{}}
	s.load("about:blank")
	return s
}

// AddPage registers the HTML served for url.
func (s *Static) AddPage(url, markup string) *Static {
	s.mu.Lock()
	s.pages[url] = markup
	s.mu.Unlock()
	return s
}

// Load switches to url without recording an event.
func (s *Static) Load(url string) {
	s.mu.Lock()
	s.load(url)
	s.mu.Unlock()
}

func (s *Static) load(url string) {
	markup, ok := s.pages[url]
	if !ok {
		markup = "<html><body></body></html>"
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	}
	s.url = url
	s.doc = doc
	s.gen++
}

// OnClick runs fn after any element matching selector is clicked.
func (s *Static) OnClick(selector string, fn func(*Static)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, clickHook{selector: selector, fn: fn})
	s.mu.Unlock()
}

// Mutate edits the current document in place.
func (s *Static) Mutate(fn func(doc *goquery.Document)) {
	s.mu.Lock()
	fn(s.doc)
	s.mu.Unlock()
}

// Events returns a copy of the interaction log.
func (s *Static) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// EventsOf filters the log by kind.
func (s *Static) EventsOf(kind string) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Value reads the value attribute of the first element matching selector.
func (s *Static) Value(selector string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.doc.Find(selector).First().Attr("value")
	return v
}

func (s *Static) record(kind, target, value string) {
	s.events = append(s.events, Event{Kind: kind, Target: target, Value: value})
}

func (s *Static) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, nil
}

func (s *Static) BodyText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Find("body").Text(), nil
}

func (s *Static) ReadyState(ctx context.Context) (string, error) {
	return "complete", ctx.Err()
}

func (s *Static) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("navigate", "", url)
	s.load(url)
	return nil
}

func (s *Static) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wrap(s.doc.Find(selector), selector), nil
}

func (s *Static) wrap(sel *goquery.Selection, selector string) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(i int, n *goquery.Selection) {
		out = append(out, &staticElement{s: s, node: n.Nodes[0], gen: s.gen, selector: selector, index: i})
	})
	return out
}

type staticElement struct {
	s        *Static
	node     *html.Node
	gen      int
	selector string
	index    int
}

func (e *staticElement) String() string {
	return fmt.Sprintf("%s[%d]", e.selector, e.index)
}

// resolve must be called with s.mu held.
func (e *staticElement) resolve(ctx context.Context) (*goquery.Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.gen != e.s.gen || !attached(e.node, e.s.doc.Nodes[0]) {
		return nil, fmt.Errorf("%s: %w", e, ErrStale)
	}
	return e.s.doc.FindNodes(e.node), nil
}

func attached(n, root *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

func (e *staticElement) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	sel, err := e.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return e.s.wrap(sel.Find(selector), selector), nil
}

func (e *staticElement) Text(ctx context.Context) (string, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	sel, err := e.resolve(ctx)
	if err != nil {
		return "", err
	}
	return sel.Text(), nil
}

func (e *staticElement) Attr(ctx context.Context, name string) (string, bool, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	sel, err := e.resolve(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := sel.Attr(name)
	return v, ok, nil
}

func (e *staticElement) HasClass(ctx context.Context, class string) (bool, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	sel, err := e.resolve(ctx)
	if err != nil {
		return false, err
	}
	return sel.HasClass(class), nil
}

func (e *staticElement) Visible(ctx context.Context) (bool, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if _, err := e.resolve(ctx); err != nil {
		return false, err
	}
	for n := e.node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			if a.Key == "hidden" {
				return false, nil
			}
			if a.Key == "style" && strings.Contains(strings.ReplaceAll(a.Val, " ", ""), "display:none") {
				return false, nil
			}
		}
	}
	return true, nil
}

func (e *staticElement) Options(ctx context.Context) ([]Option, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	sel, err := e.resolve(ctx)
	if err != nil {
		return nil, err
	}
	var opts []Option
	sel.Find("option").Each(func(_ int, o *goquery.Selection) {
		text := strings.Join(strings.Fields(o.Text()), " ")
		v, ok := o.Attr("value")
		if !ok {
			v = text
		}
		opts = append(opts, Option{Value: v, Text: text})
	})
	return opts, nil
}

func (e *staticElement) interact(ctx context.Context, kind, value string, apply func(*goquery.Selection)) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	sel, err := e.resolve(ctx)
	if err != nil {
		return err
	}
	if apply != nil {
		apply(sel)
	}
	e.s.record(kind, e.String(), value)
	return nil
}

func (e *staticElement) ScrollIntoView(ctx context.Context) error {
	return e.interact(ctx, "scroll", "", nil)
}

func (e *staticElement) Focus(ctx context.Context) error {
	return e.interact(ctx, "focus", "", nil)
}

func (e *staticElement) SetValue(ctx context.Context, value string) error {
	return e.interact(ctx, "set", value, func(sel *goquery.Selection) {
		sel.SetAttr("value", value)
		if goquery.NodeName(sel) == "select" {
			sel.Find("option").Each(func(_ int, o *goquery.Selection) {
				if v, _ := o.Attr("value"); v == value {
					o.SetAttr("selected", "selected")
				} else {
					o.RemoveAttr("selected")
				}
			})
		}
	})
}

func (e *staticElement) Dispatch(ctx context.Context, event string) error {
	return e.interact(ctx, event, "", nil)
}

// Click records the click, runs matching hooks and follows data-navigate.
func (e *staticElement) Click(ctx context.Context) error {
	e.s.mu.Lock()
	sel, err := e.resolve(ctx)
	if err != nil {
		e.s.mu.Unlock()
		return err
	}
	e.s.record("click", e.String(), strings.Join(strings.Fields(sel.Text()), " "))
	target, navigate := sel.Attr("data-navigate")
	var run []func(*Static)
	for _, h := range e.s.hooks {
		if sel.Is(h.selector) {
			run = append(run, h.fn)
		}
	}
	e.s.mu.Unlock()

	for _, fn := range run {
		fn(e.s)
	}
	if navigate {
		e.s.Load(target)
	}
	return nil
}
