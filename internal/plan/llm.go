package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vizloom/vizloom-cli/internal/ai"
	"github.com/vizloom/vizloom-cli/internal/profile"
	"github.com/vizloom/vizloom-cli/internal/table"
)

// ChatClient is the slice of the ai client the planner needs.
type ChatClient interface {
	CompleteJSON(ctx context.Context, req ai.ChatRequest) (string, error)
}

// Delegated asks a chat completion model for a chart plan and falls back to
// the embedded heuristic planner on any failure. It never errors past the
// planner boundary.
type Delegated struct {
	Client      ChatClient
	Model       string
	Temperature float64
	MaxTokens   int
	MaxCharts   int
	SampleRows  int
	Timeout     time.Duration
	Fallback    Heuristic
}

func (Delegated) Name() string { return "llm" }

const plannerInstructions = `You are a senior data visualization expert. Propose a concise plan of charts to help a scientist explore the dataset.
Return strict JSON with the shape {"charts": [...]} and nothing else.
Use at most %d charts. Choose chart types from [histogram, scatter, line, bar, box].
Prefer numeric charts for numeric columns and categorical summaries for categorical columns.
Each chart must include fields: chart_type, x, optional y, optional title.
If you cannot find a valid chart, return an empty list. Never reference columns that do not exist.`

// Plan requests a plan from the model. Any transport, shape, or validation
// failure yields the heuristic plan plus a single fallback warning, so the
// output is identical to heuristic mode except for that warning.
func (d Delegated) Plan(ctx context.Context, t *table.Table, prof *profile.Result) *Plan {
	specs, warnings, err := d.attempt(ctx, t, prof)
	if err != nil {
		return d.fallback(ctx, t, prof, err.Error())
	}
	if len(specs) == 0 {
		return d.fallback(ctx, t, prof, "model returned no usable charts")
	}
	return &Plan{Source: "llm", Specs: specs, Warnings: warnings}
}

func (d Delegated) fallback(ctx context.Context, t *table.Table, prof *profile.Result, reason string) *Plan {
	p := d.Fallback.Plan(ctx, t, prof)
	p.Warnings = append(p.Warnings, fmt.Sprintf("chart planning fell back to heuristics: %s", reason))
	return p
}

func (d Delegated) attempt(ctx context.Context, t *table.Table, prof *profile.Result) ([]Spec, []string, error) {
	if d.Client == nil {
		return nil, nil, fmt.Errorf("no chat client configured")
	}
	maxCharts := d.MaxCharts
	if maxCharts <= 0 {
		maxCharts = 6
	}
	sampleRows := d.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	payload := map[string]any{
		"schema":          schemaLines(t),
		"profile_summary": summaryOf(prof),
		"sample_rows":     t.SampleRecords(sampleRows),
	}
	user, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal prompt payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	content, err := d.Client.CompleteJSON(ctx, ai.ChatRequest{
		Model:       d.Model,
		Temperature: d.Temperature,
		MaxTokens:   d.MaxTokens,
		Messages: []ai.Message{
			{Role: "system", Content: fmt.Sprintf(plannerInstructions, maxCharts)},
			{Role: "user", Content: "Plan helpful charts for this dataset: " + string(user)},
		},
	})
	if err != nil {
		return nil, nil, err
	}

	var parsed struct {
		Charts []json.RawMessage `json:"charts"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, nil, fmt.Errorf("malformed plan JSON: %v", err)
	}
	return validateCharts(parsed.Charts, t, maxCharts)
}

func schemaLines(t *table.Table) []string {
	lines := make([]string, 0, len(t.Columns))
	for i := range t.Columns {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Columns[i].Name, t.Columns[i].Kind))
	}
	return lines
}

func summaryOf(prof *profile.Result) map[string]any {
	if prof == nil {
		return map[string]any{}
	}
	return prof.Summary()
}

type rawChart struct {
	ChartType string `json:"chart_type"`
	X         string `json:"x"`
	Y         string `json:"y"`
	Title     string `json:"title"`
}

// validateCharts drops unusable entries with one warning each rather than
// failing the plan.
func validateCharts(raws []json.RawMessage, t *table.Table, maxCharts int) ([]Spec, []string, error) {
	var specs []Spec
	var warnings []string
	seen := make(map[string]bool)
	for i, raw := range raws {
		var rc rawChart
		if err := json.Unmarshal(raw, &rc); err != nil {
			warnings = append(warnings, fmt.Sprintf("dropped malformed chart entry %d", i+1))
			continue
		}
		kind, ok := parseKind(rc.ChartType)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("dropped chart entry %d: unknown chart type %q", i+1, rc.ChartType))
			continue
		}
		if rc.X == "" || t.Column(rc.X) == nil {
			warnings = append(warnings, fmt.Sprintf("dropped %s chart: column %q does not exist", kind, rc.X))
			continue
		}
		if rc.Y != "" && t.Column(rc.Y) == nil {
			warnings = append(warnings, fmt.Sprintf("dropped %s chart: column %q does not exist", kind, rc.Y))
			continue
		}
		spec := Spec{Kind: kind, X: rc.X, Y: rc.Y, Title: rc.Title}
		key := spec.String()
		if seen[key] {
			warnings = append(warnings, fmt.Sprintf("dropped duplicate chart %s", key))
			continue
		}
		if len(specs) >= maxCharts {
			warnings = append(warnings, fmt.Sprintf("dropped chart %s: plan already has %d charts", key, maxCharts))
			continue
		}
		seen[key] = true
		specs = append(specs, spec)
	}
	return specs, warnings, nil
}
