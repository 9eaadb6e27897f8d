// Package record defines the row shape shared by every gridx engine.
//
// A Row is an opaque mapping from column key to value. Rows are owned by the
// caller; the engines copy slices of rows but never mutate a Row in place.
package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IDKey is the conventional identifier field used by DefaultID.
const IDKey = "id"

// Row is a single record keyed by column key.
type Row map[string]any

// IDFunc derives a stable identifier from a row.
type IDFunc func(Row) string

// DefaultID returns the row's "id" field cast to a string.
func DefaultID(r Row) string {
	if r == nil {
		return ""
	}
	v, ok := r[IDKey]
	if !ok || v == nil {
		return ""
	}
	return Stringify(v)
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Stringify renders a value the way cells, search, and export see it.
// nil renders as the empty string; whole floats render without a fraction
// so JSON numbers such as 3 read "3" rather than "3.000000".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// Number reports whether v is numeric or a string that parses as a number.
func Number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
