// Package search implements the grid's search box: an in-memory substring
// filter and a delegated mode that hands queries to a caller-supplied
// remote search while guarding against stale responses.
package search

import (
	"strings"

	"github.com/oakwood-commons/gridx/pkg/record"
)

// Filter returns the rows in which the lower-cased string form of any field
// contains the lower-cased query. An empty query returns rows unchanged.
func Filter(rows []record.Row, query string) []record.Row {
	if query == "" {
		return rows
	}
	needle := strings.ToLower(query)
	out := make([]record.Row, 0, len(rows))
	for _, r := range rows {
		if Matches(r, needle) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether any value of r contains needle, which must
// already be lower case.
func Matches(r record.Row, needle string) bool {
	for _, v := range r {
		if strings.Contains(strings.ToLower(record.Stringify(v)), needle) {
			return true
		}
	}
	return false
}
