package search

import (
	"context"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/gridx/pkg/record"
)

// DefaultDebounce is the quiet period before a typed query is applied.
const DefaultDebounce = 800 * time.Millisecond

// Mode selects client-side filtering or delegated search.
type Mode int

const (
	ModeClient Mode = iota
	ModeDelegated
)

func (m Mode) String() string {
	if m == ModeDelegated {
		return "delegated"
	}
	return "client"
}

// ParseMode maps a config string to a Mode; anything unrecognised is client.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "delegated", "server", "global", "remote":
		return ModeDelegated
	default:
		return ModeClient
	}
}

// Status distinguishes an in-flight delegated search from idle.
type Status int

const (
	StatusIdle Status = iota
	StatusSearching
)

func (s Status) String() string {
	if s == StatusSearching {
		return "searching"
	}
	return "idle"
}

// Func performs a delegated search. It may block; callers run it off the
// event loop and feed the outcome back through Engine.Resolve.
type Func func(ctx context.Context, query string) ([]record.Row, error)

// Pending is a debounce timer request. The caller waits Delay and then
// calls Engine.Debounced with ID; a newer Pending invalidates older ones.
type Pending struct {
	ID    int
	Delay time.Duration
}

// Dispatch is a delegated query to send. Token identifies the request so a
// late response can be recognised and dropped.
type Dispatch struct {
	Token uint64
	Query string
}

// Result is the outcome of a dispatched query.
type Result struct {
	Token uint64
	Query string
	Rows  []record.Row
	Err   error
}

// Config configures an Engine.
type Config struct {
	Mode     Mode
	Debounce time.Duration
	// Disabled skips client filtering entirely, for callers that already
	// filtered upstream.
	Disabled bool
}

// Engine is the search state machine. It owns no timers and performs no
// I/O: debounce scheduling and delegated calls are returned to the caller
// as Pending and Dispatch values.
type Engine struct {
	cfg Config
	log logr.Logger

	input      string
	controlled *string
	term       string

	debounceID     int
	lastDispatched string
	token          uint64
	status         Status

	results    []record.Row
	hasResults bool
}

// NewEngine returns an idle engine.
func NewEngine(cfg Config, lgr logr.Logger) *Engine {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Engine{cfg: cfg, log: lgr}
}

// Mode returns the configured mode.
func (e *Engine) Mode() Mode { return e.cfg.Mode }

// Status returns the delegated search status.
func (e *Engine) Status() Status { return e.status }

// Searching reports whether a delegated query is in flight.
func (e *Engine) Searching() bool { return e.status == StatusSearching }

// Value is what the search box displays: the controlled value when one is
// set, otherwise the typed input.
func (e *Engine) Value() string {
	if e.controlled != nil {
		return *e.controlled
	}
	return e.input
}

// Term is the query currently applied by client filtering.
func (e *Engine) Term() string {
	if e.controlled != nil {
		return *e.controlled
	}
	return e.term
}

// Controlled reports whether an external value drives the search box.
func (e *Engine) Controlled() bool { return e.controlled != nil }

// SetControlled makes value authoritative over typed input, e.g. a search
// restored from navigation state. While controlled, debounced input does
// not dispatch: the caller owns the query.
func (e *Engine) SetControlled(value string) {
	v := value
	e.controlled = &v
	e.input = value
	e.debounceID++
}

// ReleaseControl returns the box to keystroke-driven state, keeping the
// last controlled value as typed input.
func (e *Engine) ReleaseControl() {
	if e.controlled == nil {
		return
	}
	e.input = *e.controlled
	e.term = e.input
	e.controlled = nil
}

// Input records a keystroke and returns the debounce timer to start. Any
// previously returned Pending is superseded.
func (e *Engine) Input(value string) Pending {
	e.input = value
	e.debounceID++
	return Pending{ID: e.debounceID, Delay: e.cfg.Debounce}
}

// Debounced is called when the timer for id fires. Stale ids are ignored.
// In client mode the typed input becomes the applied term. In delegated
// mode it returns the Dispatch to send, unless the trimmed query equals the
// last dispatched one.
func (e *Engine) Debounced(id int) (Dispatch, bool) {
	if id != e.debounceID || e.controlled != nil {
		return Dispatch{}, false
	}
	if e.cfg.Mode == ModeClient {
		e.term = e.input
		return Dispatch{}, false
	}
	q := strings.TrimSpace(e.input)
	if q == e.lastDispatched {
		e.log.V(1).Info("skipping duplicate search", "query", q)
		return Dispatch{}, false
	}
	return e.dispatch(q), true
}

func (e *Engine) dispatch(q string) Dispatch {
	e.token++
	e.lastDispatched = q
	e.status = StatusSearching
	e.log.V(1).Info("dispatching search", "query", q, "token", e.token)
	return Dispatch{Token: e.token, Query: q}
}

// Clear empties the box immediately, cancelling any pending debounce. In
// delegated mode it always dispatches the empty query so the caller can
// restore its unfiltered rows.
func (e *Engine) Clear() (Dispatch, bool) {
	e.input = ""
	e.term = ""
	if e.controlled != nil {
		empty := ""
		e.controlled = &empty
	}
	e.debounceID++
	e.results = nil
	e.hasResults = false
	if e.cfg.Mode == ModeClient {
		return Dispatch{}, false
	}
	return e.dispatch(""), true
}

// Resolve applies a delegated result. Results whose token is not the latest
// dispatched are dropped and reported as not applied. A failure still
// returns the engine to idle, keeping the previous results.
func (e *Engine) Resolve(res Result) bool {
	if res.Token != e.token {
		e.log.V(1).Info("dropping stale search result", "token", res.Token, "latest", e.token)
		return false
	}
	e.status = StatusIdle
	if res.Err != nil {
		e.log.Error(res.Err, "delegated search failed", "query", res.Query)
		return true
	}
	if res.Query == "" {
		e.results = nil
		e.hasResults = false
		return true
	}
	e.results = res.Rows
	e.hasResults = true
	return true
}

// Run invokes fn for d and packages the outcome as a Result.
func Run(ctx context.Context, fn Func, d Dispatch) Result {
	if fn == nil {
		return Result{Token: d.Token, Query: d.Query}
	}
	rows, err := fn(ctx, d.Query)
	return Result{Token: d.Token, Query: d.Query, Rows: rows, Err: err}
}

// Source returns the rows the pipeline should start from: delegated
// results when present, otherwise the caller's rows.
func (e *Engine) Source(rows []record.Row) []record.Row {
	if e.hasResults && !e.cfg.Disabled {
		return e.results
	}
	return rows
}

// Apply filters sorted rows in client mode. Disabled engines and delegated
// mode return rows unchanged.
func (e *Engine) Apply(rows []record.Row) []record.Row {
	if e.cfg.Disabled || e.cfg.Mode == ModeDelegated {
		return rows
	}
	return Filter(rows, e.Term())
}
