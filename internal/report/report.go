// Package report formats pipeline output into human-readable text.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vizloom/vizloom-cli/internal/plan"
	"github.com/vizloom/vizloom-cli/internal/profile"
)

// Input carries everything the reporter formats.
type Input struct {
	RunID      string
	SourceName string
	Rows       int
	Cols       int
	Preview    string // markdown head table, may be empty
	Profile    *profile.Result
	Plan       *plan.Plan
	ChartPaths []string
	Warnings   []string
}

// Build assembles the full markdown report.
func Build(in Input) string {
	var b strings.Builder
	b.WriteString("# Dataset report\n\n")
	if in.SourceName != "" {
		b.WriteString(fmt.Sprintf("Source: %s (%d rows, %d columns)", in.SourceName, in.Rows, in.Cols))
		if in.RunID != "" {
			b.WriteString("  \nRun: " + in.RunID)
		}
		b.WriteString("\n\n")
	}
	if in.Preview != "" {
		b.WriteString("## Preview\n\n")
		b.WriteString(in.Preview)
		b.WriteString("\n")
	}
	if in.Profile != nil {
		b.WriteString(in.Profile.Markdown())
		b.WriteString("\n")
	}
	if in.Plan != nil {
		b.WriteString(in.Plan.Markdown())
		b.WriteString("\n")
	}
	if len(in.ChartPaths) > 0 {
		b.WriteString("## Rendered charts\n\n")
		for _, p := range in.ChartPaths {
			b.WriteString("- " + p + "\n")
		}
		b.WriteString("\n")
	}
	if len(in.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range in.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}

// Render renders markdown for the terminal. When plain is requested or the
// rich renderer is unavailable, the markdown is returned unchanged; the
// second return reports whether rich rendering happened.
func Render(md string, plain bool) (string, bool) {
	if plain {
		return md, false
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md, false
	}
	out, err := r.Render(md)
	if err != nil || strings.TrimSpace(out) == "" {
		return md, false
	}
	return out, true
}
