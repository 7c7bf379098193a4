// Package pipeline sequences loading, profiling, planning, rendering, and
// reporting into a single run that degrades instead of aborting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vizloom/vizloom-cli/internal/plan"
	"github.com/vizloom/vizloom-cli/internal/profile"
	"github.com/vizloom/vizloom-cli/internal/render"
	"github.com/vizloom/vizloom-cli/internal/report"
	"github.com/vizloom/vizloom-cli/internal/table"
)

// State names the orchestrator's position in the run.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateProfiling State = "profiling"
	StatePlanning  State = "planning"
	StateRendering State = "rendering"
	StateReporting State = "reporting"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Stage identifies the pipeline step an error belongs to.
type Stage string

const (
	StageLoad    Stage = "load"
	StageProfile Stage = "profile"
	StagePlan    Stage = "plan"
	StageRender  Stage = "render"
	StageReport  Stage = "report"
)

// StageError records a non-fatal failure in one stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

// Options configures a single run.
type Options struct {
	InputPath string
	OutputDir string
	Load      table.Options
	Profile   profile.Options
	PreviewN  int // preview rows; 0 uses 5
	NoCharts  bool
	PlainText bool
	// AllowedKinds, when non-empty, restricts the plan to the given chart
	// kinds (user toggles in the serve front-end).
	AllowedKinds []plan.Kind
}

// Result aggregates everything a run produced, partial or not.
type Result struct {
	RunID       string
	State       State
	Table       *table.Table
	Preview     string
	Profile     *profile.Result
	Plan        *plan.Plan
	Charts      []render.RenderedChart
	Report      string
	RichReport  bool
	Warnings    []string
	StageErrors []StageError
	LoadErr     error
}

// Orchestrator wires the stage implementations together. The zero value is
// not usable; construct with New.
type Orchestrator struct {
	Planner  plan.Planner
	Renderer render.Renderer
}

// New returns an orchestrator using the given planner. A nil planner means
// heuristic mode with defaults.
func New(planner plan.Planner) *Orchestrator {
	if planner == nil {
		planner = plan.Heuristic{}
	}
	return &Orchestrator{Planner: planner, Renderer: render.Renderer{Options: render.DefaultOptions()}}
}

// Run executes one pipeline pass. The returned error is non-nil only for an
// unrecoverable load failure; every other stage failure is recorded on the
// result and the run continues.
func (o *Orchestrator) Run(ctx context.Context, opt Options) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), State: StateIdle}

	res.State = StateLoading
	t, err := table.Load(opt.InputPath, opt.Load)
	if err != nil {
		res.State = StateFailed
		res.LoadErr = err
		res.StageErrors = append(res.StageErrors, StageError{Stage: StageLoad, Err: err})
		return res, err
	}
	res.Table = t
	previewN := opt.PreviewN
	if previewN <= 0 {
		previewN = 5
	}
	res.Preview = t.PreviewMarkdown(previewN)

	res.State = StateProfiling
	res.Profile = profile.Profile(t, opt.Profile)
	res.Warnings = append(res.Warnings, res.Profile.Suggestions...)

	res.State = StatePlanning
	if err := ctx.Err(); err != nil {
		res.StageErrors = append(res.StageErrors, StageError{Stage: StagePlan, Err: err})
	} else {
		res.Plan = o.Planner.Plan(ctx, t, res.Profile)
		if len(opt.AllowedKinds) > 0 {
			res.Plan.Specs = filterKinds(res.Plan.Specs, opt.AllowedKinds)
		}
		res.Warnings = append(res.Warnings, res.Plan.Warnings...)
	}

	res.State = StateRendering
	if res.Plan != nil && !opt.NoCharts {
		charts, warns := o.Renderer.Render(t, res.Plan, opt.OutputDir)
		res.Charts = charts
		res.Warnings = append(res.Warnings, warns...)
	}

	res.State = StateReporting
	paths := make([]string, 0, len(res.Charts))
	for _, c := range res.Charts {
		paths = append(paths, c.Path)
	}
	in := report.Input{
		RunID:      res.RunID,
		SourceName: t.Name,
		Rows:       t.Rows(),
		Cols:       len(t.Columns),
		Preview:    res.Preview,
		Profile:    res.Profile,
		Plan:       res.Plan,
		ChartPaths: paths,
		Warnings:   res.Warnings,
	}
	res.Report, res.RichReport = renderReport(report.Build(in), opt.PlainText)
	if !res.RichReport && !opt.PlainText {
		// Rebuild so the report's own warnings section carries the fallback.
		res.Warnings = append(res.Warnings, "rich report rendering unavailable; emitted plain markdown")
		in.Warnings = res.Warnings
		res.Report = report.Build(in)
	}

	res.State = StateDone
	return res, nil
}

var renderReport = report.Render

func filterKinds(specs []plan.Spec, allowed []plan.Kind) []plan.Spec {
	set := make(map[plan.Kind]bool, len(allowed))
	for _, k := range allowed {
		set[k] = true
	}
	out := specs[:0]
	for _, s := range specs {
		if set[s.Kind] {
			out = append(out, s)
		}
	}
	return out
}

// Guidance turns a fatal run error into operator hints.
func (r *Result) Guidance() string {
	if r.LoadErr == nil {
		return ""
	}
	var le *table.LoadError
	if errors.As(r.LoadErr, &le) {
		switch {
		case strings.Contains(le.Reason, "not found"):
			return "The input file does not exist. Check the path and working directory."
		case strings.Contains(le.Reason, "empty"):
			return "The input file is empty. Provide a delimited file with a header row and at least one data row."
		case strings.Contains(le.Reason, "fields"):
			return "Rows have inconsistent field counts. Check the delimiter (use --delimiter) and quoting."
		case strings.Contains(le.Reason, "duplicate"):
			return "The header contains duplicate column names. Rename columns so they are unique."
		}
		return "The input file could not be parsed as a table. Check the delimiter and file encoding."
	}
	return "An unexpected error occurred. Review the message above and ensure the input file is well-formed."
}
