package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/repairgraph/pkg/graph"
	pkgio "github.com/matzehuels/repairgraph/pkg/io"
)

const readsTSV = "ref_align\tread_align\tstrand\n" +
	"AAAACCCCGGGGTTTT\tAAAACCCCGGGGTTTT\t+\n" +
	"AAAACCCCGGGGTTTT\tAAAACCCCGGGGTTTT\t+\n" +
	"AAAACCCCGGGGTTTT\tAAAACCCCAGGGTTTT\t+\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the root command with args and an isolated cache directory.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{"", []string{"svg"}, false},
		{"svg", []string{"svg"}, false},
		{"svg, png,dot", []string{"svg", "png", "dot"}, false},
		{"gif", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseFormats(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFormats(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTrimExt(t *testing.T) {
	tests := map[string]string{
		"reads/wt_r1.tsv.gz":      "wt_r1",
		"wt_r1.tsv":               "wt_r1",
		"out/wt.variants.tsv":     "wt",
		"groups/sgA.graph.json":   "sgA",
		"groups/sgA.layout.json":  "sgA",
		"plain":                   "plain",
		"/abs/path/to/table.json": "table",
	}
	for in, want := range tests {
		if got := trimExt(in); got != want {
			t.Errorf("trimExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "groups/sgA.graph.json", filepath.Join("groups", "sgA")},
		{"out.svg", "x.graph.json", "out"},
		{"out.png", "x.graph.json", "out"},
		{"out", "x.graph.json", "out"},
		{"out.txt", "x.graph.json", "out.txt"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	for _, name := range []string{"run", "extract", "combine", "graph", "layout", "render", "browse", "serve", "cache", "completion"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestWindowFlagsExperiment(t *testing.T) {
	f := windowFlags{dsbPos: 8, width: 8, normalize: true}
	e, err := f.experiment("wt", []string{"r1", "r2"}, []string{"r1.tsv", "r2.tsv"})
	if err != nil {
		t.Fatal(err)
	}
	if !e.Normalize() || e.LayoutGroup != "wt" || len(e.Libraries) != 2 {
		t.Errorf("experiment = %+v", e)
	}

	if _, err := (&windowFlags{dsbPos: 8, width: 7}).experiment("wt", []string{"r1"}, []string{"r1.tsv"}); err == nil {
		t.Error("odd width should fail")
	}
	if _, err := (&windowFlags{dsbPos: 8, width: 8, totals: []int{10}}).experiment("wt", []string{"r1", "r2"}, []string{"a", "b"}); err == nil {
		t.Error("mismatched --total-reads should fail")
	}
	if _, err := f.experiment("wt", []string{"r1", "r1"}, []string{"a", "b"}); err == nil {
		t.Error("duplicate library IDs should fail")
	}
}

func TestCommandChain(t *testing.T) {
	dir := t.TempDir()
	reads := writeFile(t, dir, "r1.tsv", readsTSV)
	variants := filepath.Join(dir, "r1.variants.tsv")
	graphPath := filepath.Join(dir, "r1.graph.json")
	layoutPath := filepath.Join(dir, "r1.layout.json")
	dotPath := filepath.Join(dir, "r1.dot")

	if err := execute(t, "extract", reads, "--dsb-pos", "8", "--width", "8"); err != nil {
		t.Fatalf("extract: %v", err)
	}
	exp, err := pkgio.ImportVariants(variants)
	if err != nil {
		t.Fatal(err)
	}
	if len(exp.Variants) != 2 || exp.Libraries[0] != "r1" {
		t.Fatalf("variants = %+v", exp)
	}

	if err := execute(t, "graph", variants); err != nil {
		t.Fatalf("graph: %v", err)
	}
	g, err := graph.ReadGraphFile(graphPath)
	if err != nil {
		t.Fatal(err)
	}
	if g.NodeCount() != 2 || g.EdgeCount() != 1 {
		t.Errorf("graph nodes=%d edges=%d, want 2 and 1", g.NodeCount(), g.EdgeCount())
	}

	if err := execute(t, "layout", graphPath, "--store", "memory"); err != nil {
		t.Fatalf("layout: %v", err)
	}
	l, err := graph.ReadLayoutFile(layoutPath)
	if err != nil {
		t.Fatal(err)
	}
	if l.Group != "r1" || len(l.Positions) != 2 {
		t.Errorf("layout = %+v", l)
	}

	if err := execute(t, "render", graphPath, layoutPath, "-f", "dot", "--detailed"); err != nil {
		t.Fatalf("render: %v", err)
	}
	dot, err := os.ReadFile(dotPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(dot), "graph G {") {
		t.Errorf("dot = %s", dot)
	}
}

func TestCombineCommand(t *testing.T) {
	dir := t.TempDir()
	r1 := writeFile(t, dir, "wt_r1.tsv", readsTSV)
	r2 := writeFile(t, dir, "wt_r2.tsv", readsTSV)
	out := filepath.Join(dir, "wt.variants.tsv")

	if err := execute(t, "combine", r1, r2, "--name", "wt", "--dsb-pos", "8", "--width", "8", "-o", out); err != nil {
		t.Fatalf("combine: %v", err)
	}
	exp, err := pkgio.ImportVariants(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(exp.Libraries) != 2 || exp.Libraries[1] != "wt_r2" {
		t.Errorf("libraries = %v", exp.Libraries)
	}
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "r1.tsv", readsTSV)
	cfg := writeFile(t, dir, "run.toml", `
formats = ["dot"]
[store]
kind = "memory"
[[experiment]]
name = "wt"
dsb_pos = 8
window_width = 8
  [[experiment.library]]
  id = "wt_r1"
  path = "r1.tsv"
`)

	if err := execute(t, "run", cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, p := range []string{"variants/wt.variants.tsv", "groups/wt.graph.json", "groups/wt.layout.json", "groups/wt.dot"} {
		if _, err := os.Stat(filepath.Join(dir, "out", p)); err != nil {
			t.Errorf("missing output %s", p)
		}
	}
}

func TestRunCommandFailure(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "run.toml", `
[store]
kind = "memory"
[[experiment]]
name = "wt"
dsb_pos = 8
window_width = 8
  [[experiment.library]]
  id = "wt_r1"
  path = "missing.tsv"
`)

	err := execute(t, "run", cfg)
	if err == nil || !strings.Contains(err.Error(), "failed") {
		t.Errorf("run error = %v, want unit failure", err)
	}
}

func TestCacheClearCommand(t *testing.T) {
	if err := execute(t, "cache", "clear"); err != nil {
		t.Errorf("cache clear on empty cache: %v", err)
	}
}
