// Package table loads delimited text files into typed in-memory tables.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Kind is the inferred semantic type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
	KindUnknown     Kind = "unknown"
)

// Options controls loading behavior.
type Options struct {
	// Delimiter for parsing. If 0, inferred from the file extension.
	Delimiter rune
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// NumericTolerance is the fraction of non-missing values allowed to fail
	// numeric parsing before a column is classified categorical. The default
	// of 0 means a single unparseable value makes the column categorical.
	NumericTolerance float64
}

// LoadError is the only fatal failure in the pipeline: the input file could
// not be turned into a table.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Path, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Column is an ordered sequence of values sharing one inferred type.
type Column struct {
	Name   string
	Kind   Kind
	Values []string
	// Floats holds parsed values for numeric columns, aligned with Values.
	// Entries at missing positions are 0 and must be checked via Missing.
	Floats  []float64
	Missing []bool
}

// NonMissing returns the count of non-missing values.
func (c *Column) NonMissing() int {
	n := 0
	for _, m := range c.Missing {
		if !m {
			n++
		}
	}
	return n
}

// Table is an immutable ordered collection of equally sized columns.
type Table struct {
	Name    string
	Columns []Column

	byName map[string]int
}

// Rows returns the row count shared by all columns.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Column returns the named column, or nil if absent.
func (t *Table) Column(name string) *Column {
	i, ok := t.byName[name]
	if !ok {
		return nil
	}
	return &t.Columns[i]
}

// NumericColumns returns the names of numeric columns in table order.
func (t *Table) NumericColumns() []string {
	var out []string
	for i := range t.Columns {
		if t.Columns[i].Kind == KindNumeric {
			out = append(out, t.Columns[i].Name)
		}
	}
	return out
}

// CategoricalColumns returns the names of categorical columns in table order.
func (t *Table) CategoricalColumns() []string {
	var out []string
	for i := range t.Columns {
		if t.Columns[i].Kind == KindCategorical {
			out = append(out, t.Columns[i].Name)
		}
	}
	return out
}

// SampleRecords returns up to n leading rows as name->value maps, suitable
// for JSON prompts.
func (t *Table) SampleRecords(n int) []map[string]string {
	rows := t.Rows()
	if n > rows {
		n = rows
	}
	out := make([]map[string]string, 0, n)
	for r := 0; r < n; r++ {
		rec := make(map[string]string, len(t.Columns))
		for i := range t.Columns {
			rec[t.Columns[i].Name] = t.Columns[i].Values[r]
		}
		out = append(out, rec)
	}
	return out
}

// PreviewMarkdown renders the first n rows as a markdown table.
func (t *Table) PreviewMarkdown(n int) string {
	if len(t.Columns) == 0 {
		return ""
	}
	rows := t.Rows()
	if n > rows {
		n = rows
	}
	var b strings.Builder
	b.WriteString("| ")
	for i := range t.Columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(cellSafe(t.Columns[i].Name))
	}
	b.WriteString(" |\n| ")
	for i := range t.Columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	b.WriteString(" |\n")
	for r := 0; r < n; r++ {
		b.WriteString("| ")
		for i := range t.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			v := t.Columns[i].Values[r]
			if len(v) > 80 {
				v = v[:77] + "..."
			}
			b.WriteString(cellSafe(v))
		}
		b.WriteString(" |\n")
	}
	return b.String()
}

func cellSafe(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}

// Load reads a delimited file into a Table. Any failure is a *LoadError.
func Load(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Path: path, Reason: "file not found", Err: err}
		}
		return nil, &LoadError{Path: path, Reason: "open failed", Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "read failed", Err: err}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &LoadError{Path: path, Reason: "file is empty"}
	}

	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}

	var records [][]string
	if delim == ' ' {
		records, err = splitWhitespace(string(data))
	} else {
		records, err = readDelimited(string(data), delim)
		// A .txt with no commas parses as one wide column; retry on whitespace.
		if err == nil && delim == ',' && isTextExt(path) && len(records) > 0 && len(records[0]) == 1 {
			records, err = splitWhitespace(string(data))
		}
	}
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "parse failed", Err: err}
	}
	if len(records) < 2 {
		return nil, &LoadError{Path: path, Reason: "no data rows"}
	}

	header := records[0]
	ncol := len(header)
	seen := make(map[string]bool, ncol)
	cols := make([]Column, ncol)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if seen[name] {
			return nil, &LoadError{Path: path, Reason: fmt.Sprintf("duplicate column name %q", name)}
		}
		seen[name] = true
		cols[i] = Column{Name: name}
	}

	maxRows := opt.MaxRows
	for r, rec := range records[1:] {
		if maxRows > 0 && r >= maxRows {
			break
		}
		if len(rec) != ncol {
			return nil, &LoadError{Path: path, Reason: fmt.Sprintf("row %d has %d fields, expected %d", r+2, len(rec), ncol)}
		}
		for i := range cols {
			v := strings.TrimSpace(rec[i])
			cols[i].Values = append(cols[i].Values, v)
			cols[i].Missing = append(cols[i].Missing, isMissing(v))
		}
	}

	for i := range cols {
		inferKind(&cols[i], opt.NumericTolerance)
	}

	t := &Table{Name: filepath.Base(path), Columns: cols, byName: make(map[string]int, ncol)}
	for i := range cols {
		t.byName[cols[i].Name] = i
	}
	return t, nil
}

func sniffDelimiter(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv":
		return '\t'
	default:
		return ','
	}
}

func isTextExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext != ".csv" && ext != ".tsv"
}

func readDelimited(data string, delim rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(data))
	r.Comma = delim
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	var out [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func splitWhitespace(data string) ([][]string, error) {
	var out [][]string
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, strings.Fields(line))
	}
	return out, nil
}

func isMissing(v string) bool {
	switch strings.ToLower(v) {
	case "", "na", "n/a", "null", "nan":
		return true
	}
	return false
}

// inferKind classifies a column. The rule deliberately under-classifies
// numeric-ness: unless the unparseable fraction stays within tolerance, the
// column is categorical.
func inferKind(c *Column, tolerance float64) {
	nonMissing := 0
	parsed := 0
	floats := make([]float64, len(c.Values))
	for i, v := range c.Values {
		if c.Missing[i] {
			continue
		}
		nonMissing++
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			floats[i] = f
			parsed++
		}
	}
	if nonMissing == 0 {
		c.Kind = KindUnknown
		return
	}
	failed := float64(nonMissing-parsed) / float64(nonMissing)
	if parsed > 0 && failed <= tolerance {
		c.Kind = KindNumeric
		c.Floats = floats
		// Values that failed to parse inside the tolerance count as missing.
		if parsed < nonMissing {
			for i, v := range c.Values {
				if c.Missing[i] {
					continue
				}
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					c.Missing[i] = true
				}
			}
		}
		return
	}
	c.Kind = KindCategorical
}
