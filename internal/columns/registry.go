// Package columns holds the column registry supplied by a screen and the
// visibility/order store derived from it.
package columns

import (
	"strings"

	"github.com/go-logr/logr"
)

// Descriptor describes one table column. Descriptors are immutable once
// registered; their order in the registry is the default column order.
type Descriptor struct {
	Key            string `json:"key" yaml:"key"`
	Label          string `json:"label" yaml:"label"`
	Sortable       bool   `json:"sortable" yaml:"sortable"`
	Draggable      bool   `json:"draggable" yaml:"draggable"`
	DefaultVisible bool   `json:"defaultVisible" yaml:"default_visible"`
}

// Title returns the label, falling back to the key.
func (d Descriptor) Title() string {
	if strings.TrimSpace(d.Label) != "" {
		return d.Label
	}
	return d.Key
}

// Registry is the static, ordered list of column descriptors for a table.
type Registry struct {
	descs []Descriptor
	index map[string]int
}

// NewRegistry builds a registry. Descriptors with an empty key and repeated
// keys are dropped (first occurrence wins) and logged rather than rejected.
func NewRegistry(descs []Descriptor, lgr logr.Logger) *Registry {
	r := &Registry{index: make(map[string]int, len(descs))}
	for _, d := range descs {
		if d.Key == "" {
			lgr.Info("dropping column descriptor without key", "label", d.Label)
			continue
		}
		if _, dup := r.index[d.Key]; dup {
			lgr.Info("dropping duplicate column descriptor", "key", d.Key)
			continue
		}
		r.index[d.Key] = len(r.descs)
		r.descs = append(r.descs, d)
	}
	return r
}

// Descriptor looks up a column by key.
func (r *Registry) Descriptor(key string) (Descriptor, bool) {
	i, ok := r.index[key]
	if !ok {
		return Descriptor{}, false
	}
	return r.descs[i], true
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// Keys returns the registered keys in default order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.descs))
	for i, d := range r.descs {
		keys[i] = d.Key
	}
	return keys
}

// Descriptors returns a copy of the registered descriptors in default order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.descs))
	copy(out, r.descs)
	return out
}

// Len returns the number of registered columns.
func (r *Registry) Len() int { return len(r.descs) }

// DefaultVisibility maps every key to its DefaultVisible flag.
func (r *Registry) DefaultVisibility() map[string]bool {
	vis := make(map[string]bool, len(r.descs))
	for _, d := range r.descs {
		vis[d.Key] = d.DefaultVisible
	}
	return vis
}
