// Package selection tracks which rows are selected, by identifier.
//
// A row is eligible when it is in the current view and not flagged
// disabled. The tracker keeps the invariant that every selected
// identifier belongs to an eligible row of the last view it saw.
package selection

import (
	"slices"

	"github.com/oakwood-commons/gridx/pkg/record"
)

// Tracker is the selection set for one table.
type Tracker struct {
	idOf     record.IDFunc
	disabled func(record.Row) bool
	selected map[string]struct{}
}

// New returns an empty tracker. A nil idOf uses record.DefaultID; a nil
// disabled predicate treats every row as eligible.
func New(idOf record.IDFunc, disabled func(record.Row) bool) *Tracker {
	if idOf == nil {
		idOf = record.DefaultID
	}
	if disabled == nil {
		disabled = func(record.Row) bool { return false }
	}
	return &Tracker{idOf: idOf, disabled: disabled, selected: make(map[string]struct{})}
}

// ID returns the identifier of r.
func (t *Tracker) ID(r record.Row) string { return t.idOf(r) }

// Disabled reports whether r is flagged non-selectable.
func (t *Tracker) Disabled(r record.Row) bool { return t.disabled(r) }

// eligible returns the ids of the rows in view that may be selected.
func (t *Tracker) eligible(view []record.Row) []string {
	ids := make([]string, 0, len(view))
	for _, r := range view {
		if t.disabled(r) {
			continue
		}
		if id := t.idOf(r); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// SelectAll replaces the set with every eligible row of view when checked,
// and empties it otherwise.
func (t *Tracker) SelectAll(checked bool, view []record.Row) {
	t.selected = make(map[string]struct{})
	if !checked {
		return
	}
	for _, id := range t.eligible(view) {
		t.selected[id] = struct{}{}
	}
}

// SelectItem adds or removes one identifier. It is rejected, returning
// false, when id is not a row of view or that row is disabled.
func (t *Tracker) SelectItem(id string, checked bool, view []record.Row) bool {
	if id == "" {
		return false
	}
	idx := slices.IndexFunc(view, func(r record.Row) bool { return t.idOf(r) == id })
	if idx < 0 || t.disabled(view[idx]) {
		return false
	}
	if checked {
		t.selected[id] = struct{}{}
	} else {
		delete(t.selected, id)
	}
	return true
}

// IsSelected reports membership of id.
func (t *Tracker) IsSelected(id string) bool {
	_, ok := t.selected[id]
	return ok
}

// AllSelected is true when at least one eligible row is in view and every
// eligible row is selected.
func (t *Tracker) AllSelected(view []record.Row) bool {
	ids := t.eligible(view)
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if !t.IsSelected(id) {
			return false
		}
	}
	return true
}

// Indeterminate is true when the set is non-empty but not all selected.
func (t *Tracker) Indeterminate(view []record.Row) bool {
	return len(t.selected) > 0 && !t.AllSelected(view)
}

// Reconcile drops identifiers whose rows are now disabled. Identifiers
// absent from rows are kept: a refresh does not clear the selection.
func (t *Tracker) Reconcile(rows []record.Row) {
	for _, r := range rows {
		if !t.disabled(r) {
			continue
		}
		delete(t.selected, t.idOf(r))
	}
}

// Clear empties the set, e.g. after a bulk action completes.
func (t *Tracker) Clear() {
	t.selected = make(map[string]struct{})
}

// Len returns the number of selected identifiers.
func (t *Tracker) Len() int { return len(t.selected) }

// IDs returns the selected identifiers in sorted order.
func (t *Tracker) IDs() []string {
	ids := make([]string, 0, len(t.selected))
	for id := range t.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Rows returns the rows of rows that are selected, in input order.
func (t *Tracker) Rows(rows []record.Row) []record.Row {
	out := make([]record.Row, 0, len(t.selected))
	for _, r := range rows {
		if t.IsSelected(t.idOf(r)) && !t.disabled(r) {
			out = append(out, r)
		}
	}
	return out
}
