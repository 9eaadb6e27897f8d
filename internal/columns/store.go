package columns

import (
	"encoding/json"
	"slices"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/gridx/internal/storage"
)

// Suffixes appended to a table's storage key for its two persisted records.
const (
	VisibilitySuffix = "-columns"
	OrderSuffix      = "-column-order"
)

// Store derives the visible, ordered column set from a Registry plus the
// overrides persisted under a storage key. An empty storage key or nil
// Storage keeps all state in memory.
type Store struct {
	registry   *Registry
	storage    storage.Storage
	key        string
	visibility map[string]bool
	order      []string
	log        logr.Logger
}

// NewStore loads persisted overrides for storageKey. Missing or malformed
// records fall back to registry defaults and never fail construction.
func NewStore(reg *Registry, st storage.Storage, storageKey string, lgr logr.Logger) *Store {
	s := &Store{
		registry: reg,
		storage:  st,
		key:      storageKey,
		log:      lgr.WithValues("storageKey", storageKey),
	}
	s.visibility = reg.DefaultVisibility()
	s.order = reg.Keys()
	s.load()
	return s
}

func (s *Store) persistent() bool {
	return s.storage != nil && s.key != ""
}

func (s *Store) load() {
	if !s.persistent() {
		return
	}
	var vis map[string]bool
	if s.read(s.key+VisibilitySuffix, &vis) {
		for k, v := range vis {
			// Keys no longer in the registry are stale and ignored.
			if s.registry.Has(k) {
				s.visibility[k] = v
			}
		}
	}
	var order []string
	if s.read(s.key+OrderSuffix, &order) {
		s.order = reconcileOrder(order, s.registry.Keys())
	}
}

// read decodes the record at key into dst, reporting whether it was usable.
func (s *Store) read(key string, dst any) bool {
	raw, ok, err := s.storage.Get(key)
	if err != nil {
		s.log.Error(err, "reading persisted column state", "record", key)
		return false
	}
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.log.Error(err, "ignoring malformed persisted column state", "record", key)
		return false
	}
	return true
}

func (s *Store) write(key string, v any) {
	if !s.persistent() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error(err, "encoding column state", "record", key)
		return
	}
	if err := s.storage.Set(key, string(data)); err != nil {
		s.log.Error(err, "persisting column state", "record", key)
	}
}

// reconcileOrder keeps stored keys that are still registered (first
// occurrence only) and appends unseen registry keys in registry order.
func reconcileOrder(stored, registry []string) []string {
	known := make(map[string]bool, len(registry))
	for _, k := range registry {
		known[k] = true
	}
	seen := make(map[string]bool, len(registry))
	out := make([]string, 0, len(registry))
	for _, k := range stored {
		if known[k] && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range registry {
		if !seen[k] {
			out = append(out, k)
		}
	}
	return out
}

// Visible returns the currently visible descriptors in display order.
func (s *Store) Visible() []Descriptor {
	out := make([]Descriptor, 0, len(s.order))
	for _, k := range s.order {
		if !s.visibility[k] {
			continue
		}
		if d, ok := s.registry.Descriptor(k); ok {
			out = append(out, d)
		}
	}
	return out
}

// Ordered returns every descriptor in display order, visible or not.
func (s *Store) Ordered() []Descriptor {
	out := make([]Descriptor, 0, len(s.order))
	for _, k := range s.order {
		if d, ok := s.registry.Descriptor(k); ok {
			out = append(out, d)
		}
	}
	return out
}

// Visibility returns a copy of the visibility map.
func (s *Store) Visibility() map[string]bool {
	out := make(map[string]bool, len(s.visibility))
	for k, v := range s.visibility {
		out[k] = v
	}
	return out
}

// Order returns a copy of the order list.
func (s *Store) Order() []string {
	return slices.Clone(s.order)
}

// IsVisible reports whether key is currently shown.
func (s *Store) IsVisible(key string) bool {
	return s.visibility[key]
}

// Toggle flips visibility for key. Hiding the last visible column is
// allowed; whether that is sensible is the caller's policy. Unknown keys
// are a no-op.
func (s *Store) Toggle(key string) bool {
	if !s.registry.Has(key) {
		return false
	}
	s.visibility[key] = !s.visibility[key]
	s.log.V(1).Info("column visibility toggled", "key", key, "visible", s.visibility[key])
	s.write(s.key+VisibilitySuffix, s.visibility)
	return true
}

// Reorder moves source to the slot target occupies: it lands after target
// when moved forward and before target when moved backward. Equal keys or
// keys missing from the order list are a no-op.
func (s *Store) Reorder(source, target string) bool {
	if source == target {
		return false
	}
	from := slices.Index(s.order, source)
	to := slices.Index(s.order, target)
	if from < 0 || to < 0 {
		return false
	}
	order := slices.Delete(slices.Clone(s.order), from, from+1)
	s.order = slices.Insert(order, to, source)
	s.log.V(1).Info("column moved", "key", source, "target", target)
	s.write(s.key+OrderSuffix, s.order)
	return true
}

// ResetToDefaults restores registry visibility and order and erases both
// persisted records so a reload does not resurrect the old override.
func (s *Store) ResetToDefaults() {
	s.visibility = s.registry.DefaultVisibility()
	s.order = s.registry.Keys()
	if !s.persistent() {
		return
	}
	for _, rec := range []string{s.key + VisibilitySuffix, s.key + OrderSuffix} {
		if err := s.storage.Remove(rec); err != nil {
			s.log.Error(err, "removing persisted column state", "record", rec)
		}
	}
	s.log.V(1).Info("column layout reset")
}
