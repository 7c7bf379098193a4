package profile

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vizloom/vizloom-cli/internal/table"
)

func loadTable(t *testing.T, content string) *table.Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	tab, err := table.Load(path, table.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return tab
}

func TestProfileNumericStats(t *testing.T) {
	tab := loadTable(t, "v\n1\n2\n3\n4\n5\n")
	res := Profile(tab, DefaultOptions())
	p := res.ByName("v")
	if p == nil {
		t.Fatal("missing profile for v")
	}
	if p.Kind != table.KindNumeric {
		t.Fatalf("kind = %s, want numeric", p.Kind)
	}
	if p.Min != 1 || p.Max != 5 {
		t.Fatalf("min/max = %v/%v, want 1/5", p.Min, p.Max)
	}
	if math.Abs(p.Mean-3) > 1e-9 {
		t.Fatalf("mean = %v, want 3", p.Mean)
	}
	if p.Median != 3 {
		t.Fatalf("median = %v, want 3", p.Median)
	}
	if p.NonNull != 5 || p.Missing != 0 {
		t.Fatalf("non-null/missing = %d/%d, want 5/0", p.NonNull, p.Missing)
	}
}

func TestProfileCategoricalTopValues(t *testing.T) {
	tab := loadTable(t, "c\nred\nblue\nred\ngreen\nred\nblue\n")
	res := Profile(tab, DefaultOptions())
	p := res.ByName("c")
	if p == nil || p.Kind != table.KindCategorical {
		t.Fatalf("want categorical profile, got %+v", p)
	}
	if p.Unique != 3 {
		t.Fatalf("unique = %d, want 3", p.Unique)
	}
	want := []CategoryCount{{"red", 3}, {"blue", 2}, {"green", 1}}
	if !reflect.DeepEqual(p.TopValues, want) {
		t.Fatalf("top values = %v, want %v", p.TopValues, want)
	}
}

func TestProfileDeterministic(t *testing.T) {
	tab := loadTable(t, "a,b,c\n1,x,red\n2,y,blue\n3,x,red\n4,z,red\n")
	r1 := Profile(tab, DefaultOptions())
	r2 := Profile(tab, DefaultOptions())
	if !reflect.DeepEqual(r1, r2) {
		t.Fatal("profiles of the same table differ between runs")
	}
}

func TestProfileEmptyTable(t *testing.T) {
	res := Profile(nil, DefaultOptions())
	if len(res.Columns) != 0 || len(res.Suggestions) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestHighCardinalitySuggestion(t *testing.T) {
	var b strings.Builder
	b.WriteString("id\n")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "user-%d\n", i)
	}
	tab := loadTable(t, b.String())
	res := Profile(tab, DefaultOptions())
	found := false
	for _, s := range res.Suggestions {
		if strings.Contains(s, "high cardinality") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected high cardinality suggestion, got %v", res.Suggestions)
	}
}

func TestNumericLookingCategoricalSuggestion(t *testing.T) {
	tab := loadTable(t, "v\n1\n2\n3\n4\n5\n6\n7\n8\n9\nten\n")
	res := Profile(tab, DefaultOptions())
	p := res.ByName("v")
	if p == nil || p.Kind != table.KindCategorical {
		t.Fatalf("want categorical, got %+v", p)
	}
	found := false
	for _, s := range res.Suggestions {
		if strings.Contains(s, "numeric-looking") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected numeric-looking suggestion, got %v", res.Suggestions)
	}
}

func TestMarkdownSections(t *testing.T) {
	tab := loadTable(t, "a,c\n1,red\n2,blue\n3,red\n")
	res := Profile(tab, DefaultOptions())
	md := res.Markdown()
	if !strings.Contains(md, "## Column profile") {
		t.Fatalf("missing profile heading: %s", md)
	}
	if !strings.Contains(md, "| a | numeric |") {
		t.Fatalf("missing numeric row: %s", md)
	}
	if !strings.Contains(md, "red(2)") {
		t.Fatalf("missing top values: %s", md)
	}
}
