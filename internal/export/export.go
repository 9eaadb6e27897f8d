// Package export writes the visible columns of a table in a delimited or
// structured format.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/gridx/internal/columns"
	"github.com/oakwood-commons/gridx/pkg/record"
)

// ErrNoData is returned when there are no rows to export.
var ErrNoData = errors.New("no data to export")

// Format is an export format.
type Format string

const (
	CSV      Format = "csv"
	JSON     Format = "json"
	YAML     Format = "yaml"
	TOML     Format = "toml"
	Markdown Format = "md"
	HTML     Format = "html"
)

// Formats lists every supported format.
var Formats = []Format{CSV, JSON, YAML, TOML, Markdown, HTML}

// ParseFormat maps a name (or common alias) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "toml":
		return TOML, nil
	case "md", "markdown":
		return Markdown, nil
	case "html", "htm":
		return HTML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Ext returns the file extension for f.
func (f Format) Ext() string { return "." + string(f) }

// project returns header labels and stringified cells for the columns.
func project(cols []columns.Descriptor, rows []record.Row) ([]string, [][]string) {
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Title()
	}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		line := make([]string, len(cols))
		for j, c := range cols {
			line[j] = record.Stringify(r[c.Key])
		}
		cells[i] = line
	}
	return header, cells
}

// structured returns rows restricted to cols, keyed by column key.
func structured(cols []columns.Descriptor, rows []record.Row) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		m := make(map[string]any, len(cols))
		for _, c := range cols {
			if v, ok := r[c.Key]; ok && v != nil {
				m[c.Key] = v
			}
		}
		out[i] = m
	}
	return out
}

// Write exports rows in format f using only cols, in their given order.
func Write(w io.Writer, f Format, cols []columns.Descriptor, rows []record.Row) error {
	if len(rows) == 0 {
		return ErrNoData
	}
	switch f {
	case CSV:
		return writeCSV(w, cols, rows)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(structured(cols, rows))
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(structured(cols, rows)); err != nil {
			return err
		}
		return enc.Close()
	case TOML:
		// TOML documents must be tables, so rows live under one array key.
		return toml.NewEncoder(w).Encode(map[string]any{"rows": structured(cols, rows)})
	case Markdown:
		_, err := io.WriteString(w, markdownTable(cols, rows))
		return err
	case HTML:
		_, err := w.Write(renderHTML(markdownTable(cols, rows)))
		return err
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

func writeCSV(w io.Writer, cols []columns.Descriptor, rows []record.Row) error {
	header, cells := project(cols, rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(cells); err != nil {
		return err
	}
	return cw.Error()
}

func escapeMarkdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func markdownTable(cols []columns.Descriptor, rows []record.Row) string {
	header, cells := project(cols, rows)
	var b strings.Builder
	line := func(fields []string) {
		b.WriteString("|")
		for _, f := range fields {
			b.WriteString(" ")
			b.WriteString(escapeMarkdownCell(f))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	line(header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	line(sep)
	for _, c := range cells {
		line(c)
	}
	return b.String()
}

func renderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(md))
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage, Title: "gridx export"})
	return markdown.Render(doc, r)
}

// WriteFiles writes one file per format named base+ext, concurrently, and
// returns the paths written.
func WriteFiles(ctx context.Context, base string, formats []Format, cols []columns.Descriptor, rows []record.Row) ([]string, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	paths := make([]string, len(formats))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range formats {
		path := base + f.Ext()
		paths[i] = path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writeFile(path, f, cols, rows)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeFile(path string, f Format, cols []columns.Descriptor, rows []record.Row) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export %s: %w", f, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := Write(out, f, cols, rows); err != nil {
		return fmt.Errorf("export %s: %w", f, err)
	}
	return nil
}
