// Package profile computes per-column descriptive statistics.
package profile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/vizloom/vizloom-cli/internal/table"
)

// Options controls profiling behavior.
type Options struct {
	// TopValues limits how many category counts are kept per column.
	TopValues int
	// HighCardinalityFloor is the minimum distinct count before the
	// high-cardinality suggestion can fire.
	HighCardinalityFloor int
}

// DefaultOptions returns reasonable profiling defaults.
func DefaultOptions() Options {
	return Options{TopValues: 8, HighCardinalityFloor: 10}
}

// CategoryCount is one categorical value with its frequency.
type CategoryCount struct {
	Value string
	Count int
}

// ColumnProfile summarizes a single column.
type ColumnProfile struct {
	Name    string
	Kind    table.Kind
	NonNull int
	Missing int
	Unique  int
	// Numeric stats (valid when Kind == numeric)
	Min    float64
	Max    float64
	Mean   float64
	Std    float64
	Q25    float64
	Median float64
	Q75    float64
	// Categorical top values (valid when Kind == categorical)
	TopValues []CategoryCount
}

// Result maps column names to profiles and carries free-text suggestions.
// Column order matches the source table.
type Result struct {
	Columns     []ColumnProfile
	Suggestions []string
}

// ByName returns the profile for the named column, or nil.
func (r *Result) ByName(name string) *ColumnProfile {
	for i := range r.Columns {
		if r.Columns[i].Name == name {
			return &r.Columns[i]
		}
	}
	return nil
}

// Profile computes a deterministic profile of every column. It never fails;
// an empty table yields an empty result.
func Profile(t *table.Table, opt Options) *Result {
	if opt.TopValues <= 0 {
		opt.TopValues = 8
	}
	if opt.HighCardinalityFloor <= 0 {
		opt.HighCardinalityFloor = 10
	}
	res := &Result{}
	if t == nil || len(t.Columns) == 0 {
		return res
	}
	for i := range t.Columns {
		c := &t.Columns[i]
		p := ColumnProfile{Name: c.Name, Kind: c.Kind}
		p.NonNull = c.NonMissing()
		p.Missing = len(c.Values) - p.NonNull

		switch c.Kind {
		case table.KindNumeric:
			vals := make([]float64, 0, p.NonNull)
			for j, f := range c.Floats {
				if !c.Missing[j] {
					vals = append(vals, f)
				}
			}
			fillNumeric(&p, vals)
			p.Unique = uniqueFloats(vals)
		case table.KindCategorical:
			counts := make(map[string]int)
			for j, v := range c.Values {
				if !c.Missing[j] {
					counts[v]++
				}
			}
			p.Unique = len(counts)
			p.TopValues = topValues(counts, opt.TopValues)
		}
		res.Columns = append(res.Columns, p)
	}
	res.Suggestions = suggestions(t, res, opt)
	return res
}

func fillNumeric(p *ColumnProfile, vals []float64) {
	if len(vals) == 0 {
		return
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	p.Min = sorted[0]
	p.Max = sorted[len(sorted)-1]
	p.Mean = stat.Mean(vals, nil)
	if len(vals) > 1 {
		p.Std = stat.StdDev(vals, nil)
	}
	p.Q25 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	p.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p.Q75 = stat.Quantile(0.75, stat.Empirical, sorted, nil)
}

func uniqueFloats(vals []float64) int {
	set := make(map[float64]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return len(set)
}

func topValues(counts map[string]int, n int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, CategoryCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func suggestions(t *table.Table, res *Result, opt Options) []string {
	var out []string
	for i := range res.Columns {
		p := &res.Columns[i]
		total := p.NonNull + p.Missing
		if total == 0 {
			continue
		}
		if p.Missing*2 > total {
			out = append(out, fmt.Sprintf("column %q is mostly missing (%d/%d values); statistics may be unreliable", p.Name, p.Missing, total))
		}
		switch p.Kind {
		case table.KindCategorical:
			floor := opt.HighCardinalityFloor
			if p.Unique > floor && p.Unique*2 > p.NonNull {
				out = append(out, fmt.Sprintf("column %q has high cardinality (%d distinct values); it may be an identifier rather than a category", p.Name, p.Unique))
			}
			if frac := numericFraction(t.Column(p.Name)); frac >= 0.8 && frac < 1 {
				out = append(out, fmt.Sprintf("column %q is mostly numeric-looking (%.0f%%) but was kept categorical; raise the numeric tolerance to treat it as numeric", p.Name, frac*100))
			}
		case table.KindNumeric:
			if p.Unique == 1 && p.NonNull > 1 {
				out = append(out, fmt.Sprintf("column %q is constant; charts for it will be degenerate", p.Name))
			}
		case table.KindUnknown:
			out = append(out, fmt.Sprintf("column %q has no usable values", p.Name))
		}
	}
	return out
}

func numericFraction(c *table.Column) float64 {
	if c == nil {
		return 0
	}
	nonMissing, parsed := 0, 0
	for i, v := range c.Values {
		if c.Missing[i] {
			continue
		}
		nonMissing++
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			parsed++
		}
	}
	if nonMissing == 0 {
		return 0
	}
	return float64(parsed) / float64(nonMissing)
}

// Markdown renders the profile as a report section.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("## Column profile\n\n")
	if len(r.Columns) == 0 {
		b.WriteString("No columns.\n")
		return b.String()
	}
	b.WriteString("| column | kind | non-null | missing | detail |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for i := range r.Columns {
		p := &r.Columns[i]
		detail := ""
		switch p.Kind {
		case table.KindNumeric:
			detail = fmt.Sprintf("min %.4g, max %.4g, mean %.4g, std %.4g, median %.4g", p.Min, p.Max, p.Mean, p.Std, p.Median)
		case table.KindCategorical:
			parts := make([]string, 0, len(p.TopValues))
			for _, tv := range p.TopValues {
				parts = append(parts, fmt.Sprintf("%s(%d)", tv.Value, tv.Count))
			}
			detail = fmt.Sprintf("unique %d; top: %s", p.Unique, strings.Join(parts, ", "))
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %s |\n", p.Name, p.Kind, p.NonNull, p.Missing, detail))
	}
	if len(r.Suggestions) > 0 {
		b.WriteString("\n### Suggestions\n\n")
		for _, s := range r.Suggestions {
			b.WriteString("- " + s + "\n")
		}
	}
	return b.String()
}

// Summary returns a compact JSON-friendly view used in planner prompts.
func (r *Result) Summary() map[string]any {
	cols := make([]map[string]any, 0, len(r.Columns))
	for i := range r.Columns {
		p := &r.Columns[i]
		m := map[string]any{
			"name":     p.Name,
			"kind":     string(p.Kind),
			"non_null": p.NonNull,
			"missing":  p.Missing,
		}
		switch p.Kind {
		case table.KindNumeric:
			m["min"] = p.Min
			m["max"] = p.Max
			m["mean"] = p.Mean
			m["std"] = p.Std
		case table.KindCategorical:
			m["unique"] = p.Unique
			tops := make([]string, 0, len(p.TopValues))
			for _, tv := range p.TopValues {
				tops = append(tops, tv.Value)
			}
			m["top_values"] = tops
		}
		cols = append(cols, m)
	}
	return map[string]any{"columns": cols, "suggestions": r.Suggestions}
}
