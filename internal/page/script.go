package page

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Evaluator is the minimum a live driver must provide.  Eval runs a
// JavaScript expression in the page and decodes its JSON value into out.
type Evaluator interface {
	Eval(ctx context.Context, expr string, out any) error
	Location(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
}

// tagAttr marks nodes returned by a query so later calls can find them
// again.  The per-page prefix keeps ids from a previous page from matching
// nodes of the next one.
const tagAttr = "data-autobook-id"

const queryScript = `(function(rootId, sel) {
  var scope = document;
  if (rootId) {
    scope = document.querySelector('[` + tagAttr + `="' + rootId + '"]');
    if (!scope) return {stale: true, ids: []};
  }
  if (!window.__autobookPrefix) window.__autobookPrefix = Math.random().toString(36).slice(2, 10);
  var ids = [];
  scope.querySelectorAll(sel).forEach(function(el) {
    var id = el.getAttribute('` + tagAttr + `');
    if (!id || id.indexOf(window.__autobookPrefix + '-') !== 0) {
      window.__autobookSeq = (window.__autobookSeq || 0) + 1;
      id = window.__autobookPrefix + '-' + window.__autobookSeq;
      el.setAttribute('` + tagAttr + `', id);
    }
    ids.push(id);
  });
  return {stale: false, ids: ids};
})(%s, %s)`

const callScript = `(function(id, args) {
  var el = document.querySelector('[` + tagAttr + `="' + id + '"]');
  if (!el) return {stale: true, value: null};
  var r = (%s).apply(null, [el].concat(args));
  return {stale: false, value: r === undefined ? null : r};
})(%s, %s)`

// Element operations, each a function of the resolved node.
const (
	fnText     = `function(el) { return el.textContent || ""; }`
	fnAttr     = `function(el, n) { var v = el.getAttribute(n); return v === null ? {has: false, v: ""} : {has: true, v: v}; }`
	fnHasClass = `function(el, c) { return el.classList.contains(c); }`
	fnVisible  = `function(el) { return el.offsetParent !== null; }`
	fnOptions  = `function(el) { return el.options ? Array.prototype.map.call(el.options, function(o) { return {value: o.value, text: o.text}; }) : []; }`
	fnScroll   = `function(el) { el.scrollIntoView({behavior: 'smooth', block: 'center'}); return true; }`
	fnFocus    = `function(el) { el.focus(); return true; }`
	fnSetValue = `function(el, v) { el.value = v; return true; }`
	fnDispatch = `function(el, t) { el.dispatchEvent(new Event(t, {bubbles: true})); return true; }`
	fnClick    = `function(el) { el.click(); return true; }`
)

type scriptDocument struct {
	ev Evaluator
}

// NewScriptDocument builds a Document on top of a driver's evaluator.
func NewScriptDocument(ev Evaluator) Document {
	return &scriptDocument{ev: ev}
}

func (d *scriptDocument) URL(ctx context.Context) (string, error) { return d.ev.Location(ctx) }

func (d *scriptDocument) Navigate(ctx context.Context, url string) error {
	return d.ev.Navigate(ctx, url)
}

func (d *scriptDocument) BodyText(ctx context.Context) (string, error) {
	var s string
	err := d.ev.Eval(ctx, `document.body ? (document.body.textContent || "") : ""`, &s)
	return s, err
}

func (d *scriptDocument) ReadyState(ctx context.Context) (string, error) {
	var s string
	err := d.ev.Eval(ctx, `document.readyState`, &s)
	return s, err
}

func (d *scriptDocument) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	return d.query(ctx, "", selector)
}

func (d *scriptDocument) query(ctx context.Context, rootID, selector string) ([]Element, error) {
	var res struct {
		Stale bool     `json:"stale"`
		IDs   []string `json:"ids"`
	}
	var root any
	if rootID != "" {
		root = rootID
	}
	expr := fmt.Sprintf(queryScript, jsValue(root), jsValue(selector))
	if err := d.ev.Eval(ctx, expr, &res); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if res.Stale {
		return nil, ErrStale
	}
	out := make([]Element, 0, len(res.IDs))
	for _, id := range res.IDs {
		out = append(out, &scriptElement{doc: d, id: id, selector: selector})
	}
	return out, nil
}

type scriptElement struct {
	doc      *scriptDocument
	id       string
	selector string
}

func (e *scriptElement) String() string { return fmt.Sprintf("%s#%s", e.selector, e.id) }

// call runs fn against the node and decodes its return value into out.
func (e *scriptElement) call(ctx context.Context, fn string, out any, args ...any) error {
	if args == nil {
		args = []any{}
	}
	var res struct {
		Stale bool            `json:"stale"`
		Value json.RawMessage `json:"value"`
	}
	expr := fmt.Sprintf(callScript, fn, jsValue(e.id), jsValue(args))
	if err := e.doc.ev.Eval(ctx, expr, &res); err != nil {
		return fmt.Errorf("%s: %w", e, err)
	}
	if res.Stale {
		return fmt.Errorf("%s: %w", e, ErrStale)
	}
	if out == nil || len(res.Value) == 0 {
		return nil
	}
	return json.Unmarshal(res.Value, out)
}

func (e *scriptElement) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	return e.doc.query(ctx, e.id, selector)
}

func (e *scriptElement) Text(ctx context.Context) (string, error) {
	var s string
	err := e.call(ctx, fnText, &s)
	return s, err
}

func (e *scriptElement) Attr(ctx context.Context, name string) (string, bool, error) {
	var r struct {
		Has bool   `json:"has"`
		V   string `json:"v"`
	}
	err := e.call(ctx, fnAttr, &r, name)
	return r.V, r.Has, err
}

func (e *scriptElement) HasClass(ctx context.Context, class string) (bool, error) {
	var ok bool
	err := e.call(ctx, fnHasClass, &ok, class)
	return ok, err
}

func (e *scriptElement) Visible(ctx context.Context) (bool, error) {
	var ok bool
	err := e.call(ctx, fnVisible, &ok)
	return ok, err
}

func (e *scriptElement) Options(ctx context.Context) ([]Option, error) {
	var opts []Option
	err := e.call(ctx, fnOptions, &opts)
	return opts, err
}

func (e *scriptElement) ScrollIntoView(ctx context.Context) error { return e.call(ctx, fnScroll, nil) }
func (e *scriptElement) Focus(ctx context.Context) error          { return e.call(ctx, fnFocus, nil) }
func (e *scriptElement) Click(ctx context.Context) error          { return e.call(ctx, fnClick, nil) }

func (e *scriptElement) SetValue(ctx context.Context, value string) error {
	return e.call(ctx, fnSetValue, nil, value)
}

func (e *scriptElement) Dispatch(ctx context.Context, event string) error {
	return e.call(ctx, fnDispatch, nil, event)
}

// jsValue renders v as a JavaScript literal.  encoding/json output is valid
// JavaScript, including its escaping of U+2028 and U+2029.
func jsValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// arrowWrap turns an expression into a zero-argument function expression for
// drivers that only evaluate functions.
func arrowWrap(expr string) string {
	return "() => (" + strings.TrimSpace(expr) + ")"
}
