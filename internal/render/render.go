// Package render executes chart plans against a table, producing PNG files.
package render

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/vizloom/vizloom-cli/internal/plan"
	"github.com/vizloom/vizloom-cli/internal/table"
	"github.com/vizloom/vizloom-cli/internal/utils"
)

// RenderedChart pairs an output file with the spec that produced it.
type RenderedChart struct {
	Path string
	Spec plan.Spec
}

// Options controls chart geometry and defaults.
type Options struct {
	Width   int
	Height  int
	Bins    int // histogram default when the spec has none
	BarTopN int // bar category cap when the spec has none
}

// DefaultOptions returns the standard chart geometry.
func DefaultOptions() Options {
	return Options{Width: 800, Height: 500, Bins: 20, BarTopN: plan.DefaultBarTopN}
}

// Renderer writes charts into an output directory.
type Renderer struct {
	Options Options
}

// Render executes every spec in the plan. Invalid or failing specs are
// skipped with a warning; the remaining specs still render. The output
// directory is created if absent.
func (r Renderer) Render(t *table.Table, p *plan.Plan, outDir string) ([]RenderedChart, []string) {
	var rendered []RenderedChart
	var warnings []string
	if p == nil || len(p.Specs) == 0 {
		return rendered, warnings
	}
	if err := utils.EnsureDir(outDir); err != nil {
		warnings = append(warnings, fmt.Sprintf("cannot create output directory %s: %v", outDir, err))
		return rendered, warnings
	}

	used := make(map[string]bool)
	for _, spec := range p.Specs {
		png, err := r.renderOne(t, spec)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", spec, err))
			continue
		}
		name := uniqueName(used, baseName(spec))
		path := filepath.Join(outDir, name)
		if err := utils.SafeWriteFile(path, png); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", spec, err))
			continue
		}
		rendered = append(rendered, RenderedChart{Path: path, Spec: spec})
	}
	return rendered, warnings
}

func (r Renderer) renderOne(t *table.Table, spec plan.Spec) ([]byte, error) {
	switch spec.Kind {
	case plan.KindHistogram:
		return r.histogram(t, spec)
	case plan.KindScatter:
		return r.xyChart(t, spec, true)
	case plan.KindLine:
		return r.xyChart(t, spec, false)
	case plan.KindBar:
		return r.bar(t, spec)
	default:
		return nil, fmt.Errorf("unsupported chart kind %q", spec.Kind)
	}
}

func numericValues(t *table.Table, name string) ([]float64, error) {
	c := t.Column(name)
	if c == nil {
		return nil, fmt.Errorf("column %q does not exist", name)
	}
	if c.Kind != table.KindNumeric {
		return nil, fmt.Errorf("column %q is %s, not numeric", name, c.Kind)
	}
	vals := make([]float64, 0, len(c.Floats))
	for i, f := range c.Floats {
		if !c.Missing[i] {
			vals = append(vals, f)
		}
	}
	return vals, nil
}

func (r Renderer) histogram(t *table.Table, spec plan.Spec) ([]byte, error) {
	vals, err := numericValues(t, spec.X)
	if err != nil {
		return nil, err
	}
	if len(vals) < 2 {
		return nil, fmt.Errorf("not enough values for a histogram (%d)", len(vals))
	}
	lo, hi := minMax(vals)
	if lo == hi {
		return nil, fmt.Errorf("column %q has a single distinct value", spec.X)
	}
	bins := spec.Bins
	if bins <= 0 {
		bins = r.Options.Bins
	}
	counts := make([]int, bins)
	width := (hi - lo) / float64(bins)
	for _, v := range vals {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}
	bars := make([]chart.Value, bins)
	for i, c := range counts {
		bars[i] = chart.Value{
			Value: float64(c),
			Label: fmt.Sprintf("%.3g", lo+(float64(i)+0.5)*width),
		}
	}
	return r.renderBars(titleOr(spec, "Distribution of "+spec.X), bars)
}

func (r Renderer) bar(t *table.Table, spec plan.Spec) ([]byte, error) {
	c := t.Column(spec.X)
	if c == nil {
		return nil, fmt.Errorf("column %q does not exist", spec.X)
	}
	if c.Kind != table.KindCategorical {
		return nil, fmt.Errorf("column %q is %s, not categorical", spec.X, c.Kind)
	}
	counts := make(map[string]int)
	for i, v := range c.Values {
		if !c.Missing[i] {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("column %q has no values to count", spec.X)
	}
	type kv struct {
		k string
		v int
	}
	all := make([]kv, 0, len(counts))
	for k, v := range counts {
		all = append(all, kv{k, v})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].v == all[j].v {
			return all[i].k < all[j].k
		}
		return all[i].v > all[j].v
	})
	topN := spec.TopN
	if topN <= 0 {
		topN = r.Options.BarTopN
	}
	if len(all) > topN {
		all = all[:topN]
	}
	bars := make([]chart.Value, len(all))
	for i, e := range all {
		label := e.k
		if len(label) > 16 {
			label = label[:13] + "..."
		}
		bars[i] = chart.Value{Value: float64(e.v), Label: label}
	}
	return r.renderBars(titleOr(spec, "Category distribution: "+spec.X), bars)
}

func (r Renderer) renderBars(title string, bars []chart.Value) ([]byte, error) {
	if len(bars) < 2 {
		// go-chart requires at least two bars to compute a range.
		return nil, fmt.Errorf("need at least two bars, got %d", len(bars))
	}
	bc := chart.BarChart{
		Title:    title,
		Width:    r.Options.Width,
		Height:   r.Options.Height,
		BarWidth: maxInt(10, (r.Options.Width-100)/len(bars)-10),
		Bars:     bars,
		XAxis:    chart.Style{TextRotationDegrees: 45},
	}
	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

func (r Renderer) xyChart(t *table.Table, spec plan.Spec, scatter bool) ([]byte, error) {
	if spec.Y == "" {
		return nil, fmt.Errorf("%s chart needs two columns", spec.Kind)
	}
	xc := t.Column(spec.X)
	yc := t.Column(spec.Y)
	if xc == nil {
		return nil, fmt.Errorf("column %q does not exist", spec.X)
	}
	if yc == nil {
		return nil, fmt.Errorf("column %q does not exist", spec.Y)
	}
	if xc.Kind != table.KindNumeric || yc.Kind != table.KindNumeric {
		return nil, fmt.Errorf("%s chart needs two numeric columns (%s is %s, %s is %s)", spec.Kind, spec.X, xc.Kind, spec.Y, yc.Kind)
	}
	var xs, ys []float64
	for i := range xc.Floats {
		if xc.Missing[i] || yc.Missing[i] {
			continue
		}
		xs = append(xs, xc.Floats[i])
		ys = append(ys, yc.Floats[i])
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("not enough paired values (%d)", len(xs))
	}
	if scatter {
		// Point-only style; zero stroke suppresses the connecting line.
		return r.renderXY(spec, xs, ys, chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    4,
			DotColor:    chart.ColorBlue,
		})
	}
	sortPaired(xs, ys)
	return r.renderXY(spec, xs, ys, chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 1.5})
}

func (r Renderer) renderXY(spec plan.Spec, xs, ys []float64, style chart.Style) ([]byte, error) {
	ch := chart.Chart{
		Title:  titleOr(spec, fmt.Sprintf("%s vs %s", spec.X, spec.Y)),
		Width:  r.Options.Width,
		Height: r.Options.Height,
		XAxis:  chart.XAxis{Name: spec.X},
		YAxis:  chart.YAxis{Name: spec.Y},
		Series: []chart.Series{
			chart.ContinuousSeries{XValues: xs, YValues: ys, Style: style},
		},
	}
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

func titleOr(spec plan.Spec, fallback string) string {
	if spec.Title != "" {
		return spec.Title
	}
	return fallback
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func baseName(spec plan.Spec) string {
	parts := make([]string, 0, 3)
	parts = append(parts, string(spec.Kind))
	for _, c := range spec.Columns() {
		parts = append(parts, sanitize(c))
	}
	return strings.Join(parts, "_")
}

// uniqueName disambiguates filename collisions with an incrementing suffix.
func uniqueName(used map[string]bool, base string) string {
	name := base + ".png"
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s_%d.png", base, n)
	}
	used[name] = true
	return name
}

func minMax(vals []float64) (float64, float64) {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func sortPaired(xs, ys []float64) {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return xs[idx[i]] < xs[idx[j]] })
	sx := make([]float64, len(xs))
	sy := make([]float64, len(ys))
	for i, j := range idx {
		sx[i] = xs[j]
		sy[i] = ys[j]
	}
	copy(xs, sx)
	copy(ys, sy)
}
