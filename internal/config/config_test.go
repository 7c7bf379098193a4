package config

import (
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := &Global{
		APIKey:           "sk-test",
		Model:            "some/model",
		Temperature:      0.7,
		MaxTokens:        512,
		MaxCharts:        4,
		BarTopN:          10,
		SampleRows:       3,
		OutputDir:        "out",
		HTTPTimeoutSec:   30,
		RetryMaxAttempts: 2,
		RetryBaseDelayMs: 100,
		RetryMaxDelayMs:  1000,
	}
	if err := Save(in, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.APIKey != in.APIKey || out.Model != in.Model {
		t.Fatalf("credentials differ: %+v", out)
	}
	if out.Temperature != in.Temperature || out.MaxCharts != in.MaxCharts {
		t.Fatalf("planner settings differ: %+v", out)
	}
	if out.OutputDir != in.OutputDir || out.HTTPTimeoutSec != in.HTTPTimeoutSec {
		t.Fatalf("runtime settings differ: %+v", out)
	}
}

func TestLoadDefaults(t *testing.T) {
	// Point at a file that does not exist; defaults should apply.
	path := filepath.Join(t.TempDir(), "missing.yaml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Temperature != 0.2 {
		t.Fatalf("temperature = %v, want default 0.2", c.Temperature)
	}
	if c.MaxCharts != 6 {
		t.Fatalf("max_charts = %d, want default 6", c.MaxCharts)
	}
	if c.OutputDir != "visualizations" {
		t.Fatalf("output_dir = %q, want default", c.OutputDir)
	}
	if c.RetryMaxAttempts != 3 || c.RetryBaseDelayMs != 500 {
		t.Fatalf("retry defaults wrong: %+v", c)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("VIZLOOM_MODEL", "env/model")
	t.Setenv("VIZLOOM_MAX_CHARTS", "2")
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Model != "env/model" {
		t.Fatalf("model = %q, want env override", c.Model)
	}
	if c.MaxCharts != 2 {
		t.Fatalf("max_charts = %d, want env override 2", c.MaxCharts)
	}
}
