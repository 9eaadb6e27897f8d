package search

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/gridx/pkg/record"
)

func people() []record.Row {
	return []record.Row{{"name": "Amy"}, {"name": "Sam"}, {"name": "Bob"}}
}

func names(rows []record.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = record.Stringify(r["name"])
	}
	return out
}

func TestFilterSubstringCaseInsensitive(t *testing.T) {
	assert.Equal(t, []string{"Amy", "Sam"}, names(Filter(people(), "am")))
	assert.Equal(t, []string{"Amy", "Sam"}, names(Filter(people(), "AM")))
	assert.Len(t, Filter(people(), ""), 3)
	assert.Empty(t, Filter(people(), "zzz"))
}

func TestFilterMatchesAnyField(t *testing.T) {
	rows := []record.Row{{"id": 42, "name": "x"}, {"id": 7, "name": "y"}}
	assert.Len(t, Filter(rows, "42"), 1)
}

func TestClientModeAppliesAfterDebounce(t *testing.T) {
	e := NewEngine(Config{}, logr.Discard())
	p := e.Input("am")
	assert.Equal(t, DefaultDebounce, p.Delay)
	// not applied before the timer fires
	assert.Len(t, e.Apply(people()), 3)

	_, dispatched := e.Debounced(p.ID)
	assert.False(t, dispatched)
	assert.Equal(t, []string{"Amy", "Sam"}, names(e.Apply(people())))
}

func TestDelegatedDebounceCoalescesKeystrokes(t *testing.T) {
	e := NewEngine(Config{Mode: ModeDelegated}, logr.Discard())
	p1 := e.Input("a")
	p2 := e.Input("am")
	p3 := e.Input("amy")

	var sent []Dispatch
	for _, p := range []Pending{p1, p2, p3} {
		if d, ok := e.Debounced(p.ID); ok {
			sent = append(sent, d)
		}
	}
	require.Len(t, sent, 1)
	assert.Equal(t, "amy", sent[0].Query)
	assert.True(t, e.Searching())
}

func TestDelegatedDeduplicatesAndTrims(t *testing.T) {
	e := NewEngine(Config{Mode: ModeDelegated}, logr.Discard())
	d, ok := e.Debounced(e.Input("  amy ").ID)
	require.True(t, ok)
	assert.Equal(t, "amy", d.Query)

	_, ok = e.Debounced(e.Input("amy").ID)
	assert.False(t, ok, "identical query must not be re-dispatched")

	_, ok = e.Debounced(e.Input("").ID)
	assert.True(t, ok, "changing back to empty dispatches the empty query")
}

func TestInitialEmptyQueryIsNotDispatched(t *testing.T) {
	e := NewEngine(Config{Mode: ModeDelegated}, logr.Discard())
	_, ok := e.Debounced(e.Input("").ID)
	assert.False(t, ok)
}

func TestStaleResultsAreDropped(t *testing.T) {
	e := NewEngine(Config{Mode: ModeDelegated}, logr.Discard())
	first, _ := e.Debounced(e.Input("am").ID)
	second, _ := e.Debounced(e.Input("bo").ID)

	assert.True(t, e.Resolve(Result{Token: second.Token, Query: "bo", Rows: []record.Row{{"name": "Bob"}}}))
	assert.False(t, e.Resolve(Result{Token: first.Token, Query: "am", Rows: people()[:2]}))

	assert.Equal(t, []string{"Bob"}, names(e.Source(people())))
	assert.False(t, e.Searching())
}

func TestFailedSearchReturnsToIdle(t *testing.T) {
	e := NewEngine(Config{Mode: ModeDelegated}, logr.Discard())
	d, _ := e.Debounced(e.Input("am").ID)
	assert.True(t, e.Resolve(Result{Token: d.Token, Query: d.Query, Err: errors.New("boom")}))
	assert.Equal(t, StatusIdle, e.Status())
	assert.Len(t, e.Source(people()), 3)
}

func TestClearDispatchesImmediately(t *testing.T) {
	e := NewEngine(Config{Mode: ModeDelegated}, logr.Discard())
	d, _ := e.Debounced(e.Input("am").ID)
	e.Resolve(Result{Token: d.Token, Query: "am", Rows: people()[:1]})

	pending := e.Input("amy")
	cleared, ok := e.Clear()
	require.True(t, ok)
	assert.Equal(t, "", cleared.Query)
	assert.Len(t, e.Source(people()), 3)

	// the timer started before Clear is now stale
	_, ok = e.Debounced(pending.ID)
	assert.False(t, ok)
}

func TestClearInClientMode(t *testing.T) {
	e := NewEngine(Config{}, logr.Discard())
	e.Debounced(e.Input("am").ID)
	_, ok := e.Clear()
	assert.False(t, ok)
	assert.Len(t, e.Apply(people()), 3)
}

func TestControlledValueTakesPrecedence(t *testing.T) {
	e := NewEngine(Config{}, logr.Discard())
	e.Debounced(e.Input("bo").ID)
	e.SetControlled("am")
	assert.Equal(t, "am", e.Value())
	assert.Equal(t, []string{"Amy", "Sam"}, names(e.Apply(people())))

	// keystrokes do not override the controlled value
	p := e.Input("zzz")
	e.Debounced(p.ID)
	assert.Equal(t, "am", e.Term())

	e.ReleaseControl()
	assert.False(t, e.Controlled())
	assert.Equal(t, "am", e.Value())
	assert.Equal(t, "am", e.Term())
}

func TestDisabledSkipsFiltering(t *testing.T) {
	e := NewEngine(Config{Disabled: true}, logr.Discard())
	e.Debounced(e.Input("am").ID)
	assert.Len(t, e.Apply(people()), 3)
}

func TestRun(t *testing.T) {
	fn := func(_ context.Context, q string) ([]record.Row, error) {
		return Filter(people(), q), nil
	}
	res := Run(context.Background(), fn, Dispatch{Token: 3, Query: "bo"})
	assert.Equal(t, uint64(3), res.Token)
	assert.Equal(t, []string{"Bob"}, names(res.Rows))

	res = Run(context.Background(), nil, Dispatch{Token: 4})
	assert.NoError(t, res.Err)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeDelegated, ParseMode("server"))
	assert.Equal(t, ModeClient, ParseMode("client"))
	assert.Equal(t, ModeClient, ParseMode(""))
	assert.Equal(t, "delegated", ModeDelegated.String())
}
