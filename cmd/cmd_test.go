package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const currentCSV = `PO Number,PO Line,Brand,Touchpoint,Budget Executor,Internal Order,GL Account,PO Line Status,PO Line Type,PO Line Description,PO Value - LC,GR Value - LC,Invoice Value - LC,PO Commitment - LC
PO-1,1,Acme,Digital,Li Wei,IO-1,600100,Open,Service,Banner,1000,300,400,600
PO-1,2,Acme,Print,Li Wei,IO-1,600200,Open,Service,Flyer,200,0,0,200
PO-2,1,Beta,Digital,Zhang,IO-2,600100,Closed,Goods,Booth,500,500,500,0
`

const previousCSV = `PO Number,PO Line,Brand,Budget Executor,PO Value - LC
PO-1,1,Acme,Li Wei,900
PO-1,2,Acme,Li Wei,200
PO-3,1,Beta,Zhang,300
`

// fixture writes the data files and a config pointing at them.
func fixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	write("budget.csv", currentCSV)
	write("prev.csv", previousCSV)
	write("config.yaml", "data_file: budget.csv\n"+
		"search_dirs: ["+dir+"]\n"+
		"output_dir: "+filepath.Join(dir, "out")+"\n"+
		"log_level: error\n")
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", filepath.Join(dir, "config.yaml")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Fatalf("output missing %q:\n%s", w, out)
		}
	}
}

func TestSummaryCommand(t *testing.T) {
	dir := fixture(t)
	out, err := run(t, dir, "summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	assertContains(t, out,
		"Overview",
		"1,700.00",
		"PO Value by Brand",
		"PO Value - LC (CNY)",
		"1,200.00",
		"PO Value by Touchpoint",
		"PO Value by PO Line Status",
		"Lines by PO Line Type",
	)
	if strings.Index(out, "Acme") > strings.Index(out, "Beta") {
		t.Fatalf("largest brand must come first:\n%s", out)
	}
}

func TestQueryCommand(t *testing.T) {
	dir := fixture(t)

	out, err := run(t, dir, "query", "--io", "IO-1")
	if err != nil {
		t.Fatalf("query --io: %v", err)
	}
	assertContains(t, out, "Internal Order IO-1", "By Budget Executor", "By GL Account", "PO Lines", "Flyer")
	if strings.Contains(out, "Booth") {
		t.Fatalf("lines of other internal orders listed:\n%s", out)
	}

	out, err = run(t, dir, "query", "--executor", "Zhang")
	if err != nil {
		t.Fatalf("query --executor: %v", err)
	}
	assertContains(t, out, "Top 10 Internal Orders", "IO-2", "Purchase Orders by PO Line Status")

	out, err = run(t, dir, "query", "--io", "NOPE")
	if err != nil {
		t.Fatalf("query --io NOPE: %v", err)
	}
	assertContains(t, out, "No PO lines found")

	if _, err := run(t, dir, "query"); err == nil {
		t.Fatal("expected an error without --io or --executor")
	}
	if _, err := run(t, dir, "query", "--io", "IO-1", "--executor", "Zhang"); err == nil {
		t.Fatal("expected an error with both --io and --executor")
	}
}

func TestCompareCommand(t *testing.T) {
	dir := fixture(t)

	out, err := run(t, dir, "compare", "--previous", "prev.csv")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	assertContains(t, out,
		"budget.csv vs prev.csv",
		"21.43",
		"Change by Brand",
		"Change by Budget Executor",
		"Top 3 Changes by PO Number",
		"Booth",
		"added",
		"9.09",
		"removed",
		"-100.00",
		"n/a",
	)
	detail := out[strings.Index(out, "Top 3 Changes"):]
	if !(strings.Index(detail, "PO-2") < strings.Index(detail, "PO-1") && strings.Index(detail, "PO-1") < strings.Index(detail, "PO-3")) {
		t.Fatalf("detail not sorted by change:\n%s", detail)
	}

	out, err = run(t, dir, "compare", "--by", "brand", "--changed-only", "--sort", "percent")
	if err != nil {
		t.Fatalf("simulated compare: %v", err)
	}
	assertContains(t, out, "previous (simulated)", "Changes by Brand")
	if strings.Contains(out, "Top 10 Changes") {
		t.Fatalf("detail title must count the listed rows, not --top:\n%s", out)
	}

	out, err = run(t, dir, "compare", "--simulate", "--top", "1")
	if err != nil {
		t.Fatalf("compare --simulate: %v", err)
	}
	assertContains(t, out, "budget.csv vs previous (simulated)", "Top 1 Changes by PO Number")

	if _, err := run(t, dir, "compare", "--sort", "size"); err == nil {
		t.Fatal("expected invalid --sort error")
	}
	if _, err := run(t, dir, "compare", "--metric", "brand"); err == nil {
		t.Fatal("expected non-monetary metric error")
	}
	if _, err := run(t, dir, "compare", "--previous", "prev.csv", "--simulate"); err == nil {
		t.Fatal("expected --previous and --simulate to be exclusive")
	}
}

func TestExportCommand(t *testing.T) {
	dir := fixture(t)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, dir, "export", "--status", "Open", "--dry-run")
	if err != nil {
		t.Fatalf("export --dry-run: %v", err)
	}
	assertContains(t, out, "Dry run: 2 of 3")
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatal("dry run must not create the output directory")
	}

	if _, err := run(t, dir, "export", "--status", "Open", "--format", "xlsx"); err != nil {
		t.Fatalf("export xlsx: %v", err)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil || len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "po_details_") {
		t.Fatalf("output dir = %v, %v", entries, err)
	}
	f, err := excelize.OpenFile(filepath.Join(outDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("PO Details")
	if err != nil || len(rows) != 3 {
		t.Fatalf("rows = %d, %v", len(rows), err)
	}

	csvPath := filepath.Join(dir, "beta.csv")
	if _, err := run(t, dir, "export", "--brand", "Beta", "--output", csvPath); err != nil {
		t.Fatalf("export csv: %v", err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\xef\xbb\xbfPO Number,PO Line,")) || !bytes.Contains(data, []byte("PO-2,1,Beta")) {
		t.Fatalf("csv export:\n%s", data)
	}
	if bytes.Contains(data, []byte("PO-1")) {
		t.Fatalf("filtered lines exported:\n%s", data)
	}

	out, err = run(t, dir, "export", "--status", "", "--dry-run")
	if err != nil {
		t.Fatalf("export empty status: %v", err)
	}
	assertContains(t, out, "Dry run: 0 of 3")
}

func TestValidateCommand(t *testing.T) {
	dir := fixture(t)
	out, err := run(t, dir, "validate")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	assertContains(t, out, "Rows:          3", "Format:        csv", "Validation passed.")

	_, err = run(t, dir, "validate", "--file", "missing.csv")
	if err == nil || !strings.Contains(err.Error(), "data file not found") || !strings.Contains(err.Error(), "budget.csv") {
		t.Fatalf("expected not found error listing candidates, got %v", err)
	}
}

func TestVersionCommandSkipsConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfg, []byte("log_level: loud\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", cfg, "version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	assertContains(t, out.String(), "PO Budget Report", "Version:    "+Version)

	root = NewRootCmd()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"--config", cfg, "summary"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected invalid log level to fail summary")
	}
}
