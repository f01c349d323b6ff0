package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/network"
	pkgio "github.com/matzehuels/transitmap/pkg/io"
)

// execute runs the root command with args and returns what it wrote to
// the command output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	statusOut = io.Discard
	c := New(io.Discard, LogInfo)
	c.Out = &out
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writeNetwork writes a two-route network to dir and returns its path.
func writeNetwork(t *testing.T, dir, name string) string {
	t.Helper()
	g := network.Geometry
	n := network.New([]network.Segment{
		{
			RouteName: "red",
			Points:    []orb.Point{{0, 0}, {1, 0.3}, {2, 0}, {4, 1}},
			Nodes:     []network.Node{network.Station("a", "A"), g(), network.Station("b", "B"), network.Station("c", "C")},
		},
		{
			RouteName: "blue",
			Points:    []orb.Point{{3, -1}, {3.2, 0.5}, {3, 2}},
			Nodes:     []network.Node{network.Station("e", "E"), g(), network.Station("f", "F")},
		},
	})
	path := filepath.Join(dir, name)
	if err := pkgio.ExportSegments(n, path); err != nil {
		t.Fatalf("write network: %v", err)
	}
	return path
}

func mustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s: %v", path, err)
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir: %v", err)
	}
	if dir != "/tmp/xdg-cache/transitmap" {
		t.Errorf("cacheDir = %q", dir)
	}
}

func TestDefaultLayerURL(t *testing.T) {
	t.Setenv(envLayerURL, "")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	if got := defaultLayerURL(); got != "file:///tmp/xdg-data/transitmap/layers" {
		t.Errorf("defaultLayerURL = %q", got)
	}
	t.Setenv(envLayerURL, "redis://localhost:6379/2")
	if got := defaultLayerURL(); got != "redis://localhost:6379/2" {
		t.Errorf("defaultLayerURL with env = %q", got)
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "json"},
		{"svg", "svg"},
		{"json, svg ,png", "json|svg|png"},
		{"dot,,", "dot"},
	}
	for _, tt := range tests {
		if got := strings.Join(parseFormats(tt.in), "|"); got != tt.want {
			t.Errorf("parseFormats(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "data/berlin.json", "data/berlin.schematic"},
		{"", "-", "schematic"},
		{"out/map.svg", "x.json", "out/map"},
		{"out/map.routes.json", "x.json", "out/map"},
		{"out/map.topology.svg", "x.json", "out/map"},
		{"out/map", "x.json", "out/map"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		output, input, format string
		single                bool
		want                  string
	}{
		{"", "net.json", "svg", true, "net.schematic.svg"},
		{"map.svg", "net.json", "svg", true, "map.svg"},
		{"out/m", "net.json", "routes", false, "out/m.routes.json"},
		{"out/m.json", "net.json", "png", false, "out/m.png"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.output, tt.input, tt.format, tt.single); got != tt.want {
			t.Errorf("outputPath(%q, %q, %q, %v) = %q, want %q",
				tt.output, tt.input, tt.format, tt.single, got, tt.want)
		}
	}
}

func TestRunCommandWritesFiles(t *testing.T) {
	dir := t.TempDir()
	input := writeNetwork(t, dir, "net.json")

	if _, err := execute(t, "run", input, "--no-cache", "--attempts", "5", "-f", "json,svg,dot"); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, ext := range []string{".json", ".svg", ".dot"} {
		mustExist(t, filepath.Join(dir, "net.schematic"+ext))
	}
}

func TestRunCommandStdout(t *testing.T) {
	input := writeNetwork(t, t.TempDir(), "net.json")

	out, err := execute(t, "run", input, "--no-cache", "--attempts", "5", "-o", "-")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	n, err := pkgio.UnmarshalNetwork([]byte(out))
	if err != nil {
		t.Fatalf("stdout is not segment JSON: %v", err)
	}
	if len(n.Stations()) != 5 {
		t.Errorf("stations = %d, want 5", len(n.Stations()))
	}
}

func TestRunCommandErrors(t *testing.T) {
	dir := t.TempDir()
	input := writeNetwork(t, dir, "net.json")

	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{"run", "--no-cache"}},
		{"missing file", []string{"run", filepath.Join(dir, "nope.json"), "--no-cache"}},
		{"bad format", []string{"run", input, "--no-cache", "-f", "bmp"}},
		{"bad searcher", []string{"run", input, "--no-cache", "--searcher", "annealing"}},
		{"stdout with two formats", []string{"run", input, "--no-cache", "-f", "json,svg", "-o", "-"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRunCommandLayers(t *testing.T) {
	dir := t.TempDir()
	input := writeNetwork(t, dir, "net.json")
	store := "file://" + filepath.Join(dir, "layers")

	if _, err := execute(t, "layer", "set", "berlin", input, "--store", store); err != nil {
		t.Fatalf("layer set: %v", err)
	}
	if _, err := execute(t, "run", "--from-layer", "berlin", "--to-layer", "berlin-schematic",
		"--layer-store", store, "--no-cache", "--attempts", "5"); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, err := execute(t, "layer", "list", "--store", store)
	if err != nil {
		t.Fatalf("layer list: %v", err)
	}
	if got := strings.Fields(out); strings.Join(got, ",") != "berlin,berlin-schematic" {
		t.Errorf("layers = %v", got)
	}

	out, err = execute(t, "layer", "get", "berlin-schematic", "--store", store)
	if err != nil {
		t.Fatalf("layer get: %v", err)
	}
	if _, err := pkgio.UnmarshalNetwork([]byte(out)); err != nil {
		t.Errorf("layer get output: %v", err)
	}

	if _, err := execute(t, "layer", "delete", "berlin", "--store", store); err != nil {
		t.Fatalf("layer delete: %v", err)
	}
	if _, err := execute(t, "layer", "get", "berlin", "--store", store); err == nil {
		t.Error("deleted layer is still readable")
	}
}

func TestCrossingsCommand(t *testing.T) {
	input := writeNetwork(t, t.TempDir(), "net.json")

	out, err := execute(t, "crossings", input, "--json")
	if err != nil {
		t.Fatalf("crossings: %v", err)
	}
	var r crossingsReport
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if r.Segments != 2 || r.Stations != 5 || !r.Diagonal {
		t.Errorf("report = %+v", r)
	}
}

func TestTopologyCommandDOT(t *testing.T) {
	input := writeNetwork(t, t.TempDir(), "net.json")

	out, err := execute(t, "topology", input, "-f", "dot", "-o", "-")
	if err != nil {
		t.Fatalf("topology: %v", err)
	}
	if !strings.HasPrefix(out, "graph") {
		t.Errorf("output is not a DOT graph: %.40s", out)
	}
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "lines.geojson")
	doc := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"route_name":"U1","color":"#7DAD4C"},
		 "geometry":{"type":"LineString","coordinates":[[0,0],[1,0.2],[2,1]]}},
		{"type":"Feature","properties":{"id":"a","name":"Alpha"},
		 "geometry":{"type":"Point","coordinates":[0,0]}},
		{"type":"Feature","properties":{"id":"b","name":"Beta"},
		 "geometry":{"type":"Point","coordinates":[2,1]}}
	]}`
	if err := os.WriteFile(input, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "import", input); err != nil {
		t.Fatalf("import: %v", err)
	}
	n, err := pkgio.ImportSegments(filepath.Join(dir, "lines.json"))
	if err != nil {
		t.Fatalf("read imported network: %v", err)
	}
	if len(n.Segments) != 1 || len(n.Stations()) != 2 {
		t.Errorf("imported %d segments, %d stations", len(n.Segments), len(n.Stations()))
	}
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeNetwork(t, dir, "a.json")
	b := writeNetwork(t, dir, "b.json")

	if _, err := execute(t, "batch", a, b, "--no-cache", "--attempts", "5", "-j", "2", "-f", "json"); err != nil {
		t.Fatalf("batch: %v", err)
	}
	mustExist(t, filepath.Join(dir, "a.schematic.json"))
	mustExist(t, filepath.Join(dir, "b.schematic.json"))
}

func TestBatchCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	a := writeNetwork(t, dir, "a.json")

	_, err := execute(t, "batch", a, filepath.Join(dir, "missing.json"), "--no-cache", "--attempts", "5")
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("err = %v, want 1 of 2 inputs failed", err)
	}
	mustExist(t, filepath.Join(dir, "a.schematic.json"))
}
