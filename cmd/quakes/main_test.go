package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixture = `{"data":{"depth":[8.39,8.314],"lat":[66.13165,66.13033],"long":[-17.80339,-17.80419],
"magnitude":[0.65,4.6],"magnitude_type":["mlw","mlw"],"originating_system":["SIL picks","SIL picks"],
"time":[1684432911,1684433664]}}`

func TestRun_PrintsOneLinePerQuake(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{"-endpoint", srv.URL, "-bbox", "-20,63,-13,67", "-size_min", "1", "-res", "5"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr.String())
	}
	if gotBody["size_min"] != 1.0 {
		t.Fatalf("request body=%v", gotBody)
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%d: %s", len(lines), stdout.String())
	}
	var l struct {
		Magnitude float64 `json:"magnitude"`
		Severity  string  `json:"severity"`
		Cell      string  `json:"cell"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &l); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if l.Magnitude != 4.6 || l.Severity != "HIGH" || l.Cell == "" {
		t.Fatalf("line 1=%+v", l)
	}
}

func TestRun_SchemaErrorShowsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"detail":"area must be a polygon"}`))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-endpoint", srv.URL}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit=%d", code)
	}
	if !strings.Contains(stderr.String(), "area must be a polygon") {
		t.Fatalf("stderr=%s", stderr.String())
	}
}

func TestRun_AreaFileAndSince(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "area.geojson")
	poly := `{"type":"Polygon","coordinates":[[[-19,64],[-18,64],[-18,65],[-19,65],[-19,64]]]}`
	if err := os.WriteFile(path, []byte(poly), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-endpoint", srv.URL, "-area", path, "-since", "2h"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr.String())
	}
	area, _ := gotBody["area"].([]any)
	if len(area) != 5 {
		t.Fatalf("area=%v", gotBody["area"])
	}
	if gotBody["start_time"] == "1970-01-01 00:00:00" || gotBody["start_time"] == nil {
		t.Fatalf("start_time=%v", gotBody["start_time"])
	}
}

func TestRun_BadFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-res", "42"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit=%d", code)
	}
	if code := run([]string{"-endpoint", "ftp://example.com"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit=%d", code)
	}
}
