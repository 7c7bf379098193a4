package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vizloom/vizloom-cli/internal/plan"
	"github.com/vizloom/vizloom-cli/internal/profile"
	"github.com/vizloom/vizloom-cli/internal/table"
)

func buildInput(t *testing.T) Input {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	csv := "age,city\n34,Lisbon\n28,Porto\n45,Lisbon\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	tab, err := table.Load(path, table.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	prof := profile.Profile(tab, profile.DefaultOptions())
	p := plan.Heuristic{}.Plan(context.Background(), tab, prof)
	return Input{
		RunID:      "run-123",
		SourceName: "data.csv",
		Rows:       tab.Rows(),
		Cols:       len(tab.Columns),
		Preview:    tab.PreviewMarkdown(3),
		Profile:    prof,
		Plan:       p,
		ChartPaths: []string{"charts/histogram_age.png"},
		Warnings:   []string{"something odd happened"},
	}
}

func TestBuildIncludesAllSections(t *testing.T) {
	md := Build(buildInput(t))
	for _, want := range []string{
		"# Dataset report",
		"Source: data.csv (3 rows, 2 columns)",
		"Run: run-123",
		"## Preview",
		"## Column profile",
		"Chart plan (source: heuristic)",
		"## Rendered charts",
		"histogram_age.png",
		"## Warnings",
		"something odd happened",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("report missing %q:\n%s", want, md)
		}
	}
}

func TestBuildOmitsEmptySections(t *testing.T) {
	md := Build(Input{SourceName: "x.csv", Rows: 1, Cols: 1})
	for _, absent := range []string{"## Preview", "## Rendered charts", "## Warnings"} {
		if strings.Contains(md, absent) {
			t.Fatalf("report should omit %q when empty:\n%s", absent, md)
		}
	}
}

func TestRenderPlainReturnsInput(t *testing.T) {
	md := "# Heading\n\nbody\n"
	out, rich := Render(md, true)
	if rich {
		t.Fatal("plain render must not report rich output")
	}
	if out != md {
		t.Fatalf("plain render changed the markdown: %q", out)
	}
}

func TestRenderRichNeverLosesContent(t *testing.T) {
	md := Build(buildInput(t))
	out, rich := Render(md, false)
	if !rich && out != md {
		t.Fatalf("fallback must return markdown unchanged")
	}
	if rich && !strings.Contains(out, "Dataset report") {
		t.Fatalf("rich output lost the heading:\n%s", out)
	}
}
