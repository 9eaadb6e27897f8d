// Package loader reads record sets from JSON, NDJSON, YAML, TOML and CSV.
//
// Formats are chosen by file extension when one is known and sniffed from
// the content otherwise. Every format normalizes to a slice of rows.
package loader

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/gridx/pkg/record"
)

// Format is an input format.
type Format string

const (
	Auto   Format = ""
	JSON   Format = "json"
	NDJSON Format = "ndjson"
	YAML   Format = "yaml"
	TOML   Format = "toml"
	CSV    Format = "csv"
)

// ErrEmpty is returned for input with no content.
var ErrEmpty = errors.New("empty input")

// collectionKeys are preferred, in order, when a document wraps its rows
// in an object such as {"rows": [...]}.
var collectionKeys = []string{"rows", "items", "records", "data", "results"}

// FormatFromPath maps a file extension to a Format.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON
	case ".ndjson", ".jsonl":
		return NDJSON
	case ".yaml", ".yml":
		return YAML
	case ".toml":
		return TOML
	case ".csv":
		return CSV
	default:
		return Auto
	}
}

// LoadFile reads path, using its extension to pick the format.
func LoadFile(path string) ([]record.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rows, err := Load(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// LoadReader reads everything from r and parses it.
func LoadReader(r io.Reader, f Format) ([]record.Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Load(data, f)
}

// Load parses data as f, sniffing the format when f is Auto.
func Load(data []byte, f Format) ([]record.Row, error) {
	input := strings.TrimSpace(string(data))
	if input == "" {
		return nil, ErrEmpty
	}
	if f == Auto {
		f = Detect(input)
	}
	var (
		docs []any
		err  error
	)
	switch f {
	case CSV:
		return loadCSV(input)
	case JSON:
		docs, err = loadJSON(input)
	case NDJSON:
		docs, err = loadNDJSON(input)
	case YAML:
		docs, err = loadYAML(input)
	case TOML:
		docs, err = loadTOML(input)
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return nil, err
	}
	return toRows(docs)
}

// Detect guesses the format of input.
func Detect(input string) Format {
	if strings.Contains(input, "\n---") || strings.HasPrefix(input, "---") {
		return YAML
	}
	lines := strings.Split(input, "\n")
	if len(lines) > 1 && isLikelyNDJSON(lines) {
		return NDJSON
	}
	// TOML [section] headers look like JSON arrays, so check TOML first.
	if isLikelyTOML(input) {
		return TOML
	}
	if strings.HasPrefix(input, "{") || strings.HasPrefix(input, "[") {
		return JSON
	}
	if isLikelyCSV(lines) {
		return CSV
	}
	return YAML
}

func loadJSON(input string) ([]any, error) {
	var data any
	if err := json.Unmarshal([]byte(input), &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return []any{data}, nil
}

// loadYAML handles single and multi-document YAML.
func loadYAML(input string) ([]any, error) {
	var docs []any
	dec := yaml.NewDecoder(strings.NewReader(input))
	for {
		var doc any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return nil, ErrEmpty
	}
	if len(docs) == 1 {
		return docs, nil
	}
	// Several documents are rows in their own right.
	return []any{docs}, nil
}

// loadNDJSON parses one JSON value per line. Blank lines are skipped.
func loadNDJSON(input string) ([]any, error) {
	var rows []any
	for i, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			return nil, fmt.Errorf("invalid NDJSON on line %d: %w", i+1, err)
		}
		rows = append(rows, v)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	return []any{rows}, nil
}

func loadTOML(input string) ([]any, error) {
	var data map[string]any
	if err := toml.Unmarshal([]byte(input), &data); err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}
	return []any{data}, nil
}

// loadCSV treats the first record as the header. Short records leave the
// missing fields absent; long records are rejected by encoding/csv.
func loadCSV(input string) ([]record.Row, error) {
	r := csv.NewReader(bytes.NewBufferString(input))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	recs, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrEmpty
	}
	header := recs[0]
	rows := make([]record.Row, 0, len(recs)-1)
	for _, rec := range recs[1:] {
		row := make(record.Row, len(header))
		for i, v := range rec {
			if i < len(header) && header[i] != "" {
				row[header[i]] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// toRows flattens parsed documents into rows.
func toRows(docs []any) ([]record.Row, error) {
	var rows []record.Row
	for _, doc := range docs {
		rs, err := docRows(doc)
		if err != nil {
			return nil, err
		}
		rows = append(rows, rs...)
	}
	return rows, nil
}

func docRows(doc any) ([]record.Row, error) {
	switch v := doc.(type) {
	case []any:
		rows := make([]record.Row, 0, len(v))
		for i, item := range v {
			m, ok := asMap(item)
			if !ok {
				return nil, fmt.Errorf("item %d is %T, want an object", i, item)
			}
			rows = append(rows, m)
		}
		return rows, nil
	case []map[string]any:
		rows := make([]record.Row, len(v))
		for i, m := range v {
			rows[i] = m
		}
		return rows, nil
	default:
		m, ok := asMap(doc)
		if !ok {
			return nil, fmt.Errorf("document is %T, want an object or a list of objects", doc)
		}
		if inner, ok := collection(m); ok {
			return docRows(inner)
		}
		return []record.Row{m}, nil
	}
}

// collection finds the list of rows inside a wrapper object: a preferred
// key first, otherwise the only list-of-objects value.
func collection(m record.Row) (any, bool) {
	for _, k := range collectionKeys {
		if v, ok := m[k]; ok && isObjectList(v) {
			return v, true
		}
	}
	var found string
	for k, v := range m {
		if !isObjectList(v) {
			continue
		}
		if found != "" {
			return nil, false
		}
		found = k
	}
	if found == "" {
		return nil, false
	}
	return m[found], true
}

func isObjectList(v any) bool {
	switch l := v.(type) {
	case []map[string]any:
		return len(l) > 0
	case []any:
		if len(l) == 0 {
			return false
		}
		for _, item := range l {
			if _, ok := asMap(item); !ok {
				return false
			}
		}
		return true
	}
	return false
}

func asMap(v any) (record.Row, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case record.Row:
		return m, true
	case map[any]any:
		out := make(record.Row, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

// isLikelyNDJSON reports whether a majority of non-empty lines look like
// JSON objects or arrays.
func isLikelyNDJSON(lines []string) bool {
	jsonCount, nonEmpty := 0, 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			jsonCount++
		}
	}
	return nonEmpty > 1 && jsonCount > nonEmpty/2
}

var (
	tomlSection  = regexp.MustCompile(`^\s*\[{1,2}(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\]{1,2}\s*$`)
	tomlKeyValue = regexp.MustCompile(`^\s*(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\s*=\s*.+$`)
)

// isLikelyTOML looks for [section] headers or a majority of key = value
// lines.
func isLikelyTOML(input string) bool {
	sections, pairs, nonEmpty := 0, 0, 0
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		nonEmpty++
		if tomlSection.MatchString(line) {
			sections++
		}
		if tomlKeyValue.MatchString(line) {
			pairs++
		}
	}
	return sections > 0 || (nonEmpty > 0 && pairs > nonEmpty/2)
}

// isLikelyCSV requires at least two lines with the same, non-zero number of
// commas and no YAML key markers in the header.
func isLikelyCSV(lines []string) bool {
	if len(lines) < 2 {
		return false
	}
	header := lines[0]
	n := strings.Count(header, ",")
	if n == 0 || strings.Contains(header, ": ") {
		return false
	}
	return strings.Count(lines[1], ",") == n
}
