package page

import (
	"context"
	"testing"

	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/assert"
)

// countingOpen hands out cancellable contexts and records which were
// cancelled, standing in for chromedp target contexts.
func countingOpen(cancelled map[target.ID]int) func(target.ID) (context.Context, context.CancelFunc) {
	return func(id target.ID) (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(context.Background())
		return ctx, func() {
			cancelled[id]++
			cancel()
		}
	}
}

func TestTabSetKeepsUserTabs(t *testing.T) {
	cancelled := map[target.ID]int{}
	s := &tabSet{keep: true, open: countingOpen(cancelled)}

	first := s.use("A")
	assert.Same(t, first, s.use("A"), "one context per target")
	s.use("B")
	s.prune(map[target.ID]bool{"B": true})
	s.closeAll()

	assert.Empty(t, cancelled)
	assert.NoError(t, first.Err())
}

func TestTabSetReleasesLaunchedTabs(t *testing.T) {
	cancelled := map[target.ID]int{}
	s := &tabSet{open: countingOpen(cancelled)}

	a := s.use("A")
	s.use("A")
	assert.Empty(t, cancelled)

	s.use("B")
	assert.Equal(t, 1, cancelled["A"])
	assert.Error(t, a.Err())

	s.closeAll()
	assert.Equal(t, 1, cancelled["B"])
	assert.Empty(t, s.tabs)
}

func TestTabSetPrunesClosedTargets(t *testing.T) {
	cancelled := map[target.ID]int{}
	s := &tabSet{keep: true, open: countingOpen(cancelled)}
	s.use("A")
	s.prune(map[target.ID]bool{})
	assert.Empty(t, s.tabs)
	assert.Equal(t, target.ID(""), s.current)
}
