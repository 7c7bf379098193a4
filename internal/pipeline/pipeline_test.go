package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vizloom/vizloom-cli/internal/plan"
	"github.com/vizloom/vizloom-cli/internal/table"
)

// writeDataset produces a 100-row file with two numeric columns and one
// categorical column over five cities.
func writeDataset(t *testing.T) string {
	t.Helper()
	cities := []string{"Lisbon", "Porto", "Madrid", "Paris", "Berlin"}
	var b strings.Builder
	b.WriteString("age,income,city\n")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "%d,%d,%s\n", 20+i%40, 30000+i*500, cities[i%len(cities)])
	}
	path := filepath.Join(t.TempDir(), "people.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func countKind(p *plan.Plan, k plan.Kind) int {
	n := 0
	for _, s := range p.Specs {
		if s.Kind == k {
			n++
		}
	}
	return n
}

func TestRunEndToEnd(t *testing.T) {
	path := writeDataset(t)
	outDir := filepath.Join(t.TempDir(), "charts")

	res, err := New(nil).Run(context.Background(), Options{
		InputPath: path,
		OutputDir: outDir,
		PlainText: true,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.State != StateDone {
		t.Fatalf("state = %s, want done", res.State)
	}
	if len(res.StageErrors) != 0 {
		t.Fatalf("stage errors = %v, want none", res.StageErrors)
	}

	if got := countKind(res.Plan, plan.KindHistogram); got != 2 {
		t.Fatalf("histograms = %d, want 2", got)
	}
	if got := countKind(res.Plan, plan.KindScatter); got != 1 {
		t.Fatalf("scatters = %d, want 1", got)
	}
	if got := countKind(res.Plan, plan.KindBar); got != 1 {
		t.Fatalf("bars = %d, want 1", got)
	}
	for _, s := range res.Plan.Specs {
		if s.Kind == plan.KindScatter && (s.X != "age" || s.Y != "income") {
			t.Fatalf("scatter = %s vs %s, want age vs income", s.X, s.Y)
		}
		if s.Kind == plan.KindBar && s.X != "city" {
			t.Fatalf("bar = %s, want city", s.X)
		}
	}

	if len(res.Charts) != 4 {
		t.Fatalf("charts = %d, want 4", len(res.Charts))
	}
	for _, c := range res.Charts {
		if _, err := os.Stat(c.Path); err != nil {
			t.Fatalf("chart file missing: %v", err)
		}
	}
	if !strings.Contains(res.Report, "# Dataset report") {
		t.Fatalf("report missing heading:\n%s", res.Report)
	}
	if res.RunID == "" {
		t.Fatal("run id is empty")
	}
}

func TestRunFailsOnMissingFile(t *testing.T) {
	res, err := New(nil).Run(context.Background(), Options{
		InputPath: filepath.Join(t.TempDir(), "nope.csv"),
		OutputDir: t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected a load error")
	}
	if res.State != StateFailed {
		t.Fatalf("state = %s, want failed", res.State)
	}
	var le *table.LoadError
	if !errors.As(res.LoadErr, &le) {
		t.Fatalf("LoadErr = %v, want *table.LoadError", res.LoadErr)
	}
	if g := res.Guidance(); !strings.Contains(g, "does not exist") {
		t.Fatalf("guidance = %q", g)
	}
}

func TestRunWithoutNumericColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cats.csv")
	csv := "name,color\nmia,black\nleo,orange\nzoe,black\nrex,white\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	res, err := New(nil).Run(context.Background(), Options{
		InputPath: path,
		OutputDir: filepath.Join(t.TempDir(), "charts"),
		PlainText: true,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.State != StateDone {
		t.Fatalf("state = %s, want done", res.State)
	}
	if countKind(res.Plan, plan.KindHistogram) != 0 || countKind(res.Plan, plan.KindScatter) != 0 {
		t.Fatalf("expected no numeric specs, got %v", res.Plan.Specs)
	}
	if got := countKind(res.Plan, plan.KindBar); got > 1 {
		t.Fatalf("bars = %d, want at most 1", got)
	}
}

func TestRunAllowedKindsFilter(t *testing.T) {
	path := writeDataset(t)
	res, err := New(nil).Run(context.Background(), Options{
		InputPath:    path,
		OutputDir:    filepath.Join(t.TempDir(), "charts"),
		PlainText:    true,
		AllowedKinds: []plan.Kind{plan.KindBar},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Plan.Specs) != 1 || res.Plan.Specs[0].Kind != plan.KindBar {
		t.Fatalf("specs = %v, want a single bar", res.Plan.Specs)
	}
	if len(res.Charts) != 1 {
		t.Fatalf("charts = %d, want 1", len(res.Charts))
	}
}

func TestRunNoCharts(t *testing.T) {
	path := writeDataset(t)
	outDir := filepath.Join(t.TempDir(), "charts")
	res, err := New(nil).Run(context.Background(), Options{
		InputPath: path,
		OutputDir: outDir,
		NoCharts:  true,
		PlainText: true,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Charts) != 0 {
		t.Fatalf("charts = %d, want 0", len(res.Charts))
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatalf("output dir should not be created with charts disabled: %v", err)
	}
	if res.Plan == nil || len(res.Plan.Specs) == 0 {
		t.Fatal("plan should still be produced")
	}
}

func TestRunFormatFallbackAppearsInReport(t *testing.T) {
	orig := renderReport
	renderReport = func(md string, plain bool) (string, bool) { return md, false }
	t.Cleanup(func() { renderReport = orig })

	res, err := New(nil).Run(context.Background(), Options{
		InputPath: writeDataset(t),
		OutputDir: filepath.Join(t.TempDir(), "charts"),
		NoCharts:  true,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.RichReport {
		t.Fatal("rich report flag set despite render fallback")
	}
	const warn = "rich report rendering unavailable; emitted plain markdown"
	found := false
	for _, w := range res.Warnings {
		if w == warn {
			found = true
		}
	}
	if !found {
		t.Fatalf("warnings = %v, want format fallback entry", res.Warnings)
	}
	// The emitted report itself must carry the fallback in its warnings section.
	if !strings.Contains(res.Report, "## Warnings") || !strings.Contains(res.Report, warn) {
		t.Fatalf("report missing fallback warning:\n%s", res.Report)
	}
}

func TestGuidanceForRaggedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n3\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	res, err := New(nil).Run(context.Background(), Options{InputPath: path})
	if err == nil {
		t.Fatal("expected a load error")
	}
	if g := res.Guidance(); !strings.Contains(g, "--delimiter") {
		t.Fatalf("guidance = %q, want delimiter hint", g)
	}
}
