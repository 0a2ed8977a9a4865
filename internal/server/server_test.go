package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/repairgraph/pkg/graph"
	"github.com/matzehuels/repairgraph/pkg/layout"
	"github.com/matzehuels/repairgraph/pkg/pipeline"
)

const reads = "ref_align\tread_align\tstrand\n" +
	"AAAACCCCGGGGTTTT\tAAAACCCCGGGGTTTT\t+\n" +
	"AAAACCCCGGGGTTTT\tAAAACCCCGGGGTTTT\t+\n" +
	"AAAACCCCGGGGTTTT\tAAAACCCCAGGGTTTT\t+\n"

const config = `
formats = ["dot"]

[store]
kind = "memory"

[[experiment]]
name = "wt"
dsb_pos = 8
window_width = 8
layout_group = "sgA"
  [[experiment.library]]
  id = "wt_r1"
  path = "r1.tsv"

[[experiment]]
name = "ko"
dsb_pos = 8
window_width = 8
layout_group = "sgB"
  [[experiment.library]]
  id = "ko_r1"
  path = "missing.tsv"
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "r1.tsv"), []byte(reads), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := pipeline.Parse([]byte(config), dir)
	if err != nil {
		t.Fatal(err)
	}

	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(nil, nil, layout.NewEngine(nil, cfg.LayoutOptions(), logger), logger)
	if _, err := runner.Execute(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(New(cfg, runner, logger).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts, "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("body = %s", body)
	}
}

func TestGroups(t *testing.T) {
	ts := newTestServer(t)
	_, body := get(t, ts, "/groups")

	var groups []groupInfo
	if err := json.Unmarshal(body, &groups); err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || groups[0].Group != "sgA" || groups[0].Experiments[0] != "wt" {
		t.Errorf("groups = %+v", groups)
	}
}

func TestGraphAndLayout(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts, "/groups/sgA/graph")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("graph status = %d: %s", resp.StatusCode, body)
	}
	g, err := graph.UnmarshalGraph(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Errorf("graph nodes=%d edges=%d, want 2 and 1", len(g.Nodes), len(g.Edges))
	}

	resp, body = get(t, ts, "/groups/sgA/layout")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("layout status = %d: %s", resp.StatusCode, body)
	}
	l, err := graph.UnmarshalLayout(body)
	if err != nil {
		t.Fatal(err)
	}
	if l.Group != "sgA" || len(l.Positions) != 2 {
		t.Errorf("layout = %+v", l)
	}
}

func TestRender(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts, "/groups/sgA/render/dot?detailed")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(string(body), "graph G {") {
		t.Errorf("body = %s", body)
	}

	resp, _ = get(t, ts, "/groups/sgA/render/gif")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", resp.StatusCode)
	}
}

func TestVariants(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts, "/experiments/wt/variants")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var exp struct {
		Name     string `json:"name"`
		Variants []struct {
			Sequence string `json:"sequence"`
			Count    int    `json:"count"`
		} `json:"variants"`
	}
	if err := json.Unmarshal(body, &exp); err != nil {
		t.Fatal(err)
	}
	if exp.Name != "wt" || len(exp.Variants) != 2 || exp.Variants[0].Count != 2 {
		t.Errorf("experiment = %+v", exp)
	}

	resp, body = get(t, ts, "/experiments/wt/variants?format=tsv")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tsv status = %d", resp.StatusCode)
	}
	if !strings.HasPrefix(string(body), "#reference\t") || !strings.Contains(string(body), "\nsequence\tcount\tfrequency") {
		t.Errorf("tsv body = %s", body)
	}
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		path string
		code string
	}{
		{"/groups/nope/layout", "NOT_FOUND"},
		{"/groups/sgB/layout", "NOT_FOUND"},
		{"/groups/sgB/graph", "NOT_FOUND"},
		{"/experiments/nope/variants", "NOT_FOUND"},
		{"/experiments/ko/variants", "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, ts, tt.path)
			if resp.StatusCode != http.StatusNotFound {
				t.Fatalf("status = %d, want 404: %s", resp.StatusCode, body)
			}
			var e errorBody
			if err := json.Unmarshal(body, &e); err != nil {
				t.Fatal(err)
			}
			if e.Code != tt.code {
				t.Errorf("code = %q, want %q", e.Code, tt.code)
			}
		})
	}
}
