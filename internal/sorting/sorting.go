// Package sorting tracks the single active sort column and orders rows by it.
//
// Clicking a sortable column cycles a fixed three-state sequence:
// unsorted -> ascending -> descending -> unsorted. Clicking a different
// sortable column makes it active and ascending.
package sorting

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/oakwood-commons/gridx/pkg/record"
)

// Direction is the sort direction of the active column.
type Direction string

const (
	None       Direction = ""
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// State is the single-column sort state. Column is empty when unsorted.
type State struct {
	Column    string    `json:"column,omitempty" yaml:"column,omitempty"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Active reports whether a column is sorted.
func (s State) Active() bool {
	return s.Column != "" && s.Direction != None
}

// Comparator compares cell values: numerically when both sides parse as
// numbers, otherwise by locale collation of their string forms.
type Comparator struct {
	col *collate.Collator
}

// NewComparator returns a comparator collating for tag.
func NewComparator(tag language.Tag) *Comparator {
	return &Comparator{col: collate.New(tag)}
}

// Compare returns -1, 0 or 1.
func (c *Comparator) Compare(a, b any) int {
	fa, aok := record.Number(a)
	fb, bok := record.Number(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return c.col.CompareString(record.Stringify(a), record.Stringify(b))
}

// Engine holds the sort state for one table.
type Engine struct {
	state    State
	sortable func(key string) bool
	cmp      *Comparator
}

// NewEngine returns an unsorted engine. sortable decides which keys react
// to Sort; a nil func treats every key as sortable.
func NewEngine(sortable func(key string) bool, tag language.Tag) *Engine {
	if sortable == nil {
		sortable = func(string) bool { return true }
	}
	return &Engine{sortable: sortable, cmp: NewComparator(tag)}
}

// State returns the current sort state.
func (e *Engine) State() State { return e.state }

// Set installs a state directly, used when restoring a saved view.
// Non-sortable columns and unknown directions are ignored.
func (e *Engine) Set(s State) bool {
	if s.Column == "" || s.Direction == None {
		e.state = State{}
		return true
	}
	if !e.sortable(s.Column) || (s.Direction != Ascending && s.Direction != Descending) {
		return false
	}
	e.state = s
	return true
}

// Sort advances the cycle for key. Non-sortable keys are a no-op.
func (e *Engine) Sort(key string) bool {
	if key == "" || !e.sortable(key) {
		return false
	}
	if e.state.Column != key {
		e.state = State{Column: key, Direction: Ascending}
		return true
	}
	switch e.state.Direction {
	case Ascending:
		e.state.Direction = Descending
	case Descending:
		e.state = State{}
	default:
		e.state.Direction = Ascending
	}
	return true
}

// Apply returns a sorted copy of rows. Ties keep their input order in both
// directions.
func (e *Engine) Apply(rows []record.Row) []record.Row {
	out := make([]record.Row, len(rows))
	copy(out, rows)
	if !e.state.Active() {
		return out
	}
	key := e.state.Column
	desc := e.state.Direction == Descending
	sort.SliceStable(out, func(i, j int) bool {
		c := e.cmp.Compare(out[i][key], out[j][key])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}
