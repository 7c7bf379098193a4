// Package plan decides which charts to render for a table, either through
// deterministic heuristics or by delegating to a chat completion model with
// a mandatory heuristic fallback.
package plan

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/vizloom/vizloom-cli/internal/profile"
	"github.com/vizloom/vizloom-cli/internal/table"
)

// Kind identifies a chart type.
type Kind string

const (
	KindHistogram Kind = "histogram"
	KindScatter   Kind = "scatter"
	KindLine      Kind = "line"
	KindBar       Kind = "bar"
	KindBox       Kind = "box"
)

// KnownKinds lists every kind the planner accepts, in a stable order.
var KnownKinds = []Kind{KindHistogram, KindScatter, KindLine, KindBar, KindBox}

func parseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range KnownKinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// Spec is a single requested chart.
type Spec struct {
	Kind  Kind
	X     string
	Y     string // set for two-column kinds
	Title string
	Bins  int // histogram bin count; 0 means renderer default
	TopN  int // bar category cap; 0 means renderer default
}

// Columns returns the column names the spec references, X first.
func (s Spec) Columns() []string {
	if s.Y != "" {
		return []string{s.X, s.Y}
	}
	return []string{s.X}
}

func (s Spec) String() string {
	if s.Y != "" {
		return fmt.Sprintf("%s(%s, %s)", s.Kind, s.X, s.Y)
	}
	return fmt.Sprintf("%s(%s)", s.Kind, s.X)
}

// Plan is an ordered set of chart specs plus warnings accumulated while
// producing them.
type Plan struct {
	Source   string // "heuristic" or "llm"
	Specs    []Spec
	Warnings []string
}

// Planner produces a chart plan. Implementations must always return a plan,
// never an error; degraded paths surface as plan warnings. The context bounds
// any remote calls; local planners ignore it.
type Planner interface {
	Name() string
	Plan(ctx context.Context, t *table.Table, prof *profile.Result) *Plan
}

// Heuristic is the deterministic, always-available planner.
type Heuristic struct {
	// MaxCharts truncates the plan; 0 means unlimited.
	MaxCharts int
	// BarTopN caps categories in the bar chart; 0 uses DefaultBarTopN.
	BarTopN int
}

// DefaultBarTopN bounds runaway cardinality in heuristic bar charts.
const DefaultBarTopN = 20

func (Heuristic) Name() string { return "heuristic" }

// Plan applies the fixed rule set: a histogram per numeric column in table
// order, a scatter of the first two numeric columns, and a bar chart of the
// highest-cardinality categorical column.
func (h Heuristic) Plan(_ context.Context, t *table.Table, prof *profile.Result) *Plan {
	p := &Plan{Source: "heuristic"}
	if t == nil {
		return p
	}
	bins := defaultBins(t.Rows())

	numeric := t.NumericColumns()
	for _, name := range numeric {
		p.Specs = append(p.Specs, Spec{
			Kind:  KindHistogram,
			X:     name,
			Title: fmt.Sprintf("Distribution of %s", name),
			Bins:  bins,
		})
	}
	if len(numeric) >= 2 {
		p.Specs = append(p.Specs, Spec{
			Kind:  KindScatter,
			X:     numeric[0],
			Y:     numeric[1],
			Title: fmt.Sprintf("Scatter plot: %s vs %s", numeric[0], numeric[1]),
		})
	}
	if cat := highestCardinality(t, prof); cat != "" {
		topN := h.BarTopN
		if topN <= 0 {
			topN = DefaultBarTopN
		}
		p.Specs = append(p.Specs, Spec{
			Kind:  KindBar,
			X:     cat,
			Title: fmt.Sprintf("Category distribution: %s", cat),
			TopN:  topN,
		})
	}
	if h.MaxCharts > 0 && len(p.Specs) > h.MaxCharts {
		p.Specs = p.Specs[:h.MaxCharts]
	}
	return p
}

// defaultBins follows sqrt binning clamped to [10, 40].
func defaultBins(rows int) int {
	b := int(math.Sqrt(float64(rows)))
	if b < 10 {
		b = 10
	}
	if b > 40 {
		b = 40
	}
	return b
}

func highestCardinality(t *table.Table, prof *profile.Result) string {
	best := ""
	bestUnique := -1
	for _, name := range t.CategoricalColumns() {
		unique := distinctCount(t.Column(name), prof, name)
		if unique > bestUnique {
			best = name
			bestUnique = unique
		}
	}
	return best
}

func distinctCount(c *table.Column, prof *profile.Result, name string) int {
	if prof != nil {
		if p := prof.ByName(name); p != nil {
			return p.Unique
		}
	}
	if c == nil {
		return 0
	}
	set := make(map[string]struct{})
	for i, v := range c.Values {
		if !c.Missing[i] {
			set[v] = struct{}{}
		}
	}
	return len(set)
}

// Markdown renders the plan as a report section.
func (p *Plan) Markdown() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("## Chart plan (source: %s)\n\n", p.Source))
	if len(p.Specs) == 0 {
		b.WriteString("No charts were planned.\n")
	}
	for _, s := range p.Specs {
		title := s.Title
		if title == "" {
			title = s.String()
		}
		b.WriteString(fmt.Sprintf("- **%s**: %s\n", title, s.String()))
	}
	if len(p.Warnings) > 0 {
		b.WriteString("\n### Planner warnings\n\n")
		for _, w := range p.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}
