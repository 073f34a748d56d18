package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/irctc-booking-supporter/internal/page"
)

// PositionOf returns the 1-based position of the first text containing want,
// or 0 when none does.
func PositionOf(texts []string, want string) int {
	for i, t := range texts {
		if strings.Contains(t, want) {
			return i + 1
		}
	}
	return 0
}

// Positional finds the ordinal of the label matching Match among the
// elements of Labels, then resolves Target(position) in the same scope.
//
// Class tabs and the clickable row cells under a train are rendered as
// separate subtrees that only correspond by order, so the position is the
// only link between them.  The first matching label wins.
type Positional struct {
	Labels Strategy
	Match  string
	Target func(position int) Strategy
}

func (st Positional) FindAll(ctx context.Context, s page.Scope) ([]page.Element, error) {
	pos, err := st.Position(ctx, s)
	if err != nil || pos == 0 {
		return nil, err
	}
	return st.Target(pos).FindAll(ctx, s)
}

// Position resolves only the ordinal; 0 means no label matched.
func (st Positional) Position(ctx context.Context, s page.Scope) (int, error) {
	labels, err := st.Labels.FindAll(ctx, s)
	if err != nil {
		return 0, err
	}
	texts := make([]string, 0, len(labels))
	for _, el := range labels {
		t, err := el.Text(ctx)
		if errors.Is(err, page.ErrStale) {
			t = ""
		} else if err != nil {
			return 0, err
		}
		texts = append(texts, t)
	}
	return PositionOf(texts, st.Match), nil
}

func (st Positional) String() string {
	return fmt.Sprintf("position of %q in %s", st.Match, st.Labels)
}

// NthChild builds a Target that substitutes the position into a selector
// with a single %d verb, e.g. "table tr td:nth-child(%d) span".
func NthChild(format string) func(int) Strategy {
	return func(pos int) Strategy {
		return Structural{Selector: fmt.Sprintf(format, pos)}
	}
}

// Parallel builds a Target that indexes into another list by position.
func Parallel(list Strategy) func(int) Strategy {
	return func(pos int) Strategy {
		return Nth{Of: list, Index: pos - 1}
	}
}
