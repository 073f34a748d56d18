package locate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/irctc-booking-supporter/internal/page"
)

const classesFixture = `<html><body>
<div id="train">
  <div class="tabs">
    <div class="pre-avl"><strong>Sleeper (SL)</strong></div>
    <div class="pre-avl"><strong>AC 3 Tier (3A)</strong></div>
    <div class="pre-avl"><strong>AC 2 Tier (2A)</strong></div>
    <div class="pre-avl"><strong>AC First Class (1A)</strong></div>
  </div>
  <table><tr>
    <td><span class="cell">sl-cell</span></td>
    <td><span class="cell">3a-cell</span></td>
    <td><span class="cell">2a-cell</span></td>
    <td><span class="cell">1a-cell</span></td>
  </tr></table>
  <span class="quota">GENERAL</span>
  <span class="quota">TATKAL</span>
  <span class="quota">PREMIUM TATKAL</span>
  <button class="book" style="display:none">Book Now</button>
  <button class="book">Book Now</button>
</div>
</body></html>`

func fixture(t *testing.T) *page.Static {
	t.Helper()
	s := page.NewStatic().AddPage("https://site/list", classesFixture)
	s.Load("https://site/list")
	return s
}

func textOf(t *testing.T, el page.Element) string {
	t.Helper()
	require.NotNil(t, el)
	txt, err := el.Text(context.Background())
	require.NoError(t, err)
	return txt
}

func TestPositionOf(t *testing.T) {
	labels := []string{"SL", "3A", "2A", "1A"}
	assert.Equal(t, 3, PositionOf(labels, "2A"))
	assert.Equal(t, 1, PositionOf(labels, "SL"))
	assert.Equal(t, 0, PositionOf(labels, "CC"))
	assert.Equal(t, 0, PositionOf(nil, "SL"))
	// First match wins on duplicates.
	assert.Equal(t, 2, PositionOf([]string{"SL", "3A", "3A"}, "3A"))
}

func TestPositionalIndexesParallelList(t *testing.T) {
	ctx := context.Background()
	s := fixture(t)

	st := Positional{
		Labels: CSS("div.pre-avl"),
		Match:  "2A",
		Target: Parallel(CSS("table td span.cell")),
	}
	pos, err := st.Position(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 3, pos)

	el, err := Find(ctx, s, st)
	require.NoError(t, err)
	assert.Equal(t, "2a-cell", textOf(t, el))

	viaNthChild := Positional{
		Labels: CSS("div.pre-avl"),
		Match:  "3A",
		Target: NthChild("table tr td:nth-child(%d) span"),
	}
	el, err = Find(ctx, s, viaNthChild)
	require.NoError(t, err)
	assert.Equal(t, "3a-cell", textOf(t, el))
}

func TestPositionalNoMatch(t *testing.T) {
	ctx := context.Background()
	st := Positional{Labels: CSS("div.pre-avl"), Match: "EC", Target: Parallel(CSS("td span"))}
	el, err := Find(ctx, fixture(t), st)
	require.NoError(t, err)
	assert.Nil(t, el)
}

func TestTextContainsFirstMatchWins(t *testing.T) {
	ctx := context.Background()
	s := fixture(t)

	el, err := Find(ctx, s, Text("span.quota", "TATKAL"))
	require.NoError(t, err)
	assert.Equal(t, "TATKAL", textOf(t, el))

	all, err := FindAll(ctx, s, Text("span.quota", "TATKAL"))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	either, err := FindAll(ctx, s, Text("span.quota", "GENERAL", "PREMIUM"))
	require.NoError(t, err)
	assert.Len(t, either, 2)
}

func TestAbsenceIsNotAnError(t *testing.T) {
	ctx := context.Background()
	s := fixture(t)

	el, err := Find(ctx, s, CSS("#missing"))
	require.NoError(t, err)
	assert.Nil(t, el)

	all, err := FindAll(ctx, s, Text("span", "nothing like this"))
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	el, err = Find(ctx, s, Nth{Of: CSS("span.quota"), Index: 7})
	require.NoError(t, err)
	assert.Nil(t, el)
}

func TestVisibleAndWithin(t *testing.T) {
	ctx := context.Background()
	s := fixture(t)

	all, err := FindAll(ctx, s, Visible{Of: CSS("button.book")})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	el, err := Find(ctx, s, Within{Outer: CSS("#train"), Inner: Nth{Of: CSS("span.quota"), Index: 2}})
	require.NoError(t, err)
	assert.Equal(t, "PREMIUM TATKAL", textOf(t, el))
}
