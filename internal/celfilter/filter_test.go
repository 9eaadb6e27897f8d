package celfilter

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/gridx/pkg/record"
)

func tickets() []record.Row {
	return []record.Row{
		{"id": "1", "status": "open", "priority": 3.0, "title": "Leaking tap"},
		{"id": "2", "status": "closed", "priority": 1.0, "title": "Broken lift"},
		{"id": "3", "status": "open", "priority": 1.0, "title": "Lift noise"},
	}
}

func ids(rows []record.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = record.DefaultID(r)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"equality", `row.status == "open"`, []string{"1", "3"}},
		{"numeric", `row.priority >= 2.0`, []string{"1"}},
		{"string ext", `row.title.lowerAscii().contains("lift")`, []string{"2", "3"}},
		{"combined", `row.status == "open" && row.title.startsWith("Lift")`, []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(Apply(p, tickets(), logr.Discard())))
		})
	}
}

func TestMissingFieldExcludesRow(t *testing.T) {
	p, err := Compile(`row.owner == "sam"`)
	require.NoError(t, err)
	rows := append(tickets(), record.Row{"id": "4", "owner": "sam"})
	assert.Equal(t, []string{"4"}, ids(Apply(p, rows, logr.Discard())))
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile("")
	assert.Error(t, err)
	_, err = Compile(`row.status ==`)
	assert.ErrorContains(t, err, "compilation error")
	_, err = Compile(`"not a bool"`)
	assert.ErrorContains(t, err, "bool")
}

func TestNilPredicate(t *testing.T) {
	assert.Len(t, Apply(nil, tickets(), logr.Discard()), 3)
}
