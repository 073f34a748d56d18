// Package locate resolves logical targets on the booking page to elements.
//
// A Strategy never fails on absence: Find returns nil and FindAll an empty
// slice when nothing matches.  Errors are reserved for driver failures, so
// callers decide whether a missing control is fatal.
package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/irctc-booking-supporter/internal/page"
)

// Strategy finds candidate elements inside a scope.
type Strategy interface {
	FindAll(ctx context.Context, s page.Scope) ([]page.Element, error)
	String() string
}

// Find returns the first element the strategy yields, or nil.
func Find(ctx context.Context, s page.Scope, st Strategy) (page.Element, error) {
	els, err := st.FindAll(ctx, s)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

// FindAll returns every element the strategy yields.
func FindAll(ctx context.Context, s page.Scope, st Strategy) ([]page.Element, error) {
	els, err := st.FindAll(ctx, s)
	if err != nil {
		return nil, err
	}
	if els == nil {
		els = []page.Element{}
	}
	return els, nil
}

// Structural matches a CSS selector.
type Structural struct {
	Selector string
}

// CSS is shorthand for Structural{Selector: sel}.
func CSS(sel string) Structural { return Structural{Selector: sel} }

func (st Structural) FindAll(ctx context.Context, s page.Scope) ([]page.Element, error) {
	return s.QueryAll(ctx, st.Selector)
}

func (st Structural) String() string { return st.Selector }

// TextContains keeps the candidates of Selector whose textContent contains
// any of the given substrings, in document order.
type TextContains struct {
	Selector string
	Any      []string
}

// Text is shorthand for TextContains{Selector: sel, Any: subs}.
func Text(sel string, subs ...string) TextContains {
	return TextContains{Selector: sel, Any: subs}
}

func (st TextContains) FindAll(ctx context.Context, s page.Scope) ([]page.Element, error) {
	cands, err := s.QueryAll(ctx, st.Selector)
	if err != nil {
		return nil, err
	}
	var out []page.Element
	for _, el := range cands {
		text, err := el.Text(ctx)
		if errors.Is(err, page.ErrStale) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if containsAny(text, st.Any) {
			out = append(out, el)
		}
	}
	return out, nil
}

func (st TextContains) String() string {
	return fmt.Sprintf("%s:contains(%s)", st.Selector, strings.Join(st.Any, "|"))
}

func containsAny(text string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}

// Nth is the Index-th (0-based) element yielded by Of.
type Nth struct {
	Of    Strategy
	Index int
}

func (st Nth) FindAll(ctx context.Context, s page.Scope) ([]page.Element, error) {
	els, err := st.Of.FindAll(ctx, s)
	if err != nil {
		return nil, err
	}
	if st.Index < 0 || st.Index >= len(els) {
		return nil, nil
	}
	return els[st.Index : st.Index+1], nil
}

func (st Nth) String() string { return fmt.Sprintf("%s[%d]", st.Of, st.Index) }

// Visible keeps the elements of Of that are rendered.
type Visible struct {
	Of Strategy
}

func (st Visible) FindAll(ctx context.Context, s page.Scope) ([]page.Element, error) {
	els, err := st.Of.FindAll(ctx, s)
	if err != nil {
		return nil, err
	}
	var out []page.Element
	for _, el := range els {
		ok, err := el.Visible(ctx)
		if errors.Is(err, page.ErrStale) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, el)
		}
	}
	return out, nil
}

func (st Visible) String() string { return st.Of.String() + ":visible" }

// Within resolves Inner inside the first element of Outer.
type Within struct {
	Outer Strategy
	Inner Strategy
}

func (st Within) FindAll(ctx context.Context, s page.Scope) ([]page.Element, error) {
	outer, err := Find(ctx, s, st.Outer)
	if err != nil || outer == nil {
		return nil, err
	}
	return st.Inner.FindAll(ctx, outer)
}

func (st Within) String() string { return st.Outer.String() + " >> " + st.Inner.String() }
