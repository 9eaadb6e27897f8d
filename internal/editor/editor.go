// Package editor implements the inline "add a row" flow:
// Idle -> Adding -> (commit | cancel) -> Idle.
//
// The editor only manages the draft. Invoking the caller's add callback is
// left to the owner, after the editor has already returned to Idle, so a
// failing callback never leaves the editor stuck in Adding.
package editor

import (
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/oakwood-commons/gridx/pkg/record"
)

// DefaultGuard is how long outside interactions are ignored after an
// explicit save or cancel.
const DefaultGuard = 250 * time.Millisecond

// State is the editor state.
type State int

const (
	Idle State = iota
	Adding
)

func (s State) String() string {
	if s == Adding {
		return "adding"
	}
	return "idle"
}

// Draft is a partial row under construction. Its ID is a fresh token that
// never matches a persisted row's identifier.
type Draft struct {
	ID     string
	Values record.Row
}

// Populated reports whether any field holds a non-blank value.
func (d Draft) Populated() bool {
	for _, v := range d.Values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return true
	}
	return false
}

// Editor is the inline row editor for one table.
type Editor struct {
	state    State
	draft    Draft
	readonly map[string]bool
	guard    time.Duration
	quietTil time.Time
	now      func() time.Time
	log      logr.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithGuard sets the implicit-commit guard window.
func WithGuard(d time.Duration) Option {
	return func(e *Editor) {
		if d >= 0 {
			e.guard = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lgr logr.Logger) Option {
	return func(e *Editor) { e.log = lgr }
}

// New returns an idle editor. readonly lists column keys that get no
// editable control while adding.
func New(readonly []string, opts ...Option) *Editor {
	e := &Editor{
		readonly: make(map[string]bool, len(readonly)),
		guard:    DefaultGuard,
		now:      time.Now,
		log:      logr.Discard(),
	}
	for _, k := range readonly {
		e.readonly[k] = true
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current state.
func (e *Editor) State() State { return e.state }

// Adding reports whether a draft is open.
func (e *Editor) Adding() bool { return e.state == Adding }

// Draft returns a copy of the open draft.
func (e *Editor) Draft() Draft {
	return Draft{ID: e.draft.ID, Values: e.draft.Values.Clone()}
}

// Editable reports whether key gets an editable control while adding.
// Readonly columns render nothing at all, not even a read view.
func (e *Editor) Editable(key string) bool {
	return !e.readonly[key]
}

// Value returns the draft value for key.
func (e *Editor) Value(key string) any {
	return e.draft.Values[key]
}

// BeginAdd opens an empty draft. It is a no-op while already adding.
func (e *Editor) BeginAdd() bool {
	if e.state == Adding {
		return false
	}
	e.state = Adding
	e.draft = Draft{ID: uuid.NewString(), Values: record.Row{}}
	e.log.V(1).Info("inline add started", "draft", e.draft.ID)
	return true
}

// UpdateDraft sets a draft field. Ignored when idle or for readonly keys.
func (e *Editor) UpdateDraft(key string, value any) bool {
	if e.state != Adding || key == "" || e.readonly[key] {
		return false
	}
	e.draft.Values[key] = value
	return true
}

// Commit closes the draft and returns it when it has at least one
// populated field. An empty draft closes silently with ok false. Commit
// while idle is a no-op.
func (e *Editor) Commit() (row record.Row, ok bool) {
	if e.state != Adding {
		return nil, false
	}
	d := e.draft
	e.reset()
	if !d.Populated() {
		e.log.V(1).Info("inline add closed without values", "draft", d.ID)
		return nil, false
	}
	e.log.V(1).Info("inline add committed", "draft", d.ID, "fields", len(d.Values))
	return d.Values, true
}

// Save is the explicit save action. It behaves as Commit and opens the
// guard window: a pointer event from the same press that arrives after a
// new draft was opened does not close that draft.
func (e *Editor) Save() (record.Row, bool) {
	if e.state != Adding {
		return nil, false
	}
	e.quietTil = e.now().Add(e.guard)
	return e.Commit()
}

// Cancel discards the draft unconditionally and opens the guard window,
// as Save does.
func (e *Editor) Cancel() bool {
	if e.state != Adding {
		return false
	}
	e.log.V(1).Info("inline add cancelled", "draft", e.draft.ID)
	e.reset()
	e.quietTil = e.now().Add(e.guard)
	return true
}

// OutsideInteraction reports a pointer interaction outside the draft row.
// While adding it commits, unless a save or cancel happened less than the
// guard window ago.
func (e *Editor) OutsideInteraction() (record.Row, bool) {
	if e.state != Adding {
		return nil, false
	}
	if e.now().Before(e.quietTil) {
		return nil, false
	}
	return e.Commit()
}

func (e *Editor) reset() {
	e.state = Idle
	e.draft = Draft{}
}
