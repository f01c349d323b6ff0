package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/cache"
	"github.com/matzehuels/transitmap/pkg/core/network"
	pkgio "github.com/matzehuels/transitmap/pkg/io"
	"github.com/matzehuels/transitmap/pkg/layer"
	"github.com/matzehuels/transitmap/pkg/pipeline"
)

func testNetwork() *network.Network {
	g := network.Geometry
	return network.New([]network.Segment{
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
}

func testBody(t *testing.T) []byte {
	t.Helper()
	data, err := pkgio.MarshalNetwork(testNetwork())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(cache.NewMemoryCache(64), nil, logger)
	s := New(runner, layer.NewMemoryStore(), logger, Config{})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return ts
}

func do(t *testing.T, method, url string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[map[string]any](t, resp)
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestPostSchematic(t *testing.T) {
	ts := newTestServer(t)
	url := ts.URL + "/v1/schematic?attempts=5&seed=3"

	resp := do(t, http.MethodPost, url, testBody(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Cache"); got != "MISS" {
		t.Errorf("first X-Cache = %q", got)
	}
	out := decodeBody[SchematicResponse](t, resp)
	if out.RunID == "" || out.Cached {
		t.Errorf("run id %q cached %v", out.RunID, out.Cached)
	}
	n, err := pkgio.UnmarshalNetwork(out.Network)
	if err != nil {
		t.Fatalf("decode network: %v", err)
	}
	if len(n.Stations()) != 5 {
		t.Errorf("stations = %d, want 5", len(n.Stations()))
	}

	again := do(t, http.MethodPost, url, testBody(t))
	if got := again.Header.Get("X-Cache"); got != "HIT" {
		t.Errorf("second X-Cache = %q", got)
	}
}

func TestPostSchematicFormat(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodPost, ts.URL+"/v1/schematic?attempts=5&format=svg", testBody(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(data), "<svg") {
		t.Errorf("body does not start with <svg: %.40s", data)
	}
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   []byte
		status int
		code   string
	}{
		{"empty body", http.MethodPost, "/v1/schematic", nil, 400, "INVALID_INPUT"},
		{"malformed body", http.MethodPost, "/v1/schematic", []byte("[1"), 400, "INVALID_FORMAT"},
		{"no segments", http.MethodPost, "/v1/schematic", []byte("[]"), 400, "INPUT_SHAPE"},
		{"bad seed", http.MethodPost, "/v1/schematic?seed=x", testBody(t), 400, "INVALID_INPUT"},
		{"bad searcher", http.MethodPost, "/v1/schematic?searcher=annealing", testBody(t), 400, "INVALID_CONFIG"},
		{"bad format", http.MethodPost, "/v1/schematic?format=bmp", testBody(t), 400, "INVALID_CONFIG"},
		{"missing layer", http.MethodGet, "/v1/layers/nope", nil, 404, "LAYER_NOT_FOUND"},
		{"bad layer id", http.MethodPut, "/v1/layers/_bad", testBody(t), 400, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, ts.URL+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			body := decodeBody[errorResponse](t, resp)
			if body.Code != tt.code {
				t.Errorf("code = %q, want %q (%s)", body.Code, tt.code, body.Error)
			}
		})
	}
}

func TestLayerLifecycle(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/v1/layers/"

	resp := do(t, http.MethodPut, base+"berlin", testBody(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d", resp.StatusCode)
	}
	info := decodeBody[LayerInfo](t, resp)
	if info.ID != "berlin" || info.Segments != 2 || info.Stations != 5 {
		t.Errorf("layer info = %+v", info)
	}

	resp = do(t, http.MethodGet, base+"berlin", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if _, err := pkgio.UnmarshalNetwork(data); err != nil {
		t.Errorf("stored layer does not decode: %v", err)
	}

	resp = do(t, http.MethodPost, base+"berlin/schematic?attempts=5", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("schematic status = %d", resp.StatusCode)
	}
	if out := decodeBody[SchematicResponse](t, resp); out.Layer != "berlin-schematic" {
		t.Errorf("target layer = %q", out.Layer)
	}

	resp = do(t, http.MethodGet, ts.URL+"/v1/layers", nil)
	list := decodeBody[struct {
		Layers []string `json:"layers"`
	}](t, resp)
	if strings.Join(list.Layers, ",") != "berlin,berlin-schematic" {
		t.Errorf("layers = %v", list.Layers)
	}

	if resp := do(t, http.MethodDelete, base+"berlin", nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, base+"berlin", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d", resp.StatusCode)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvAddr, ":9999")
	t.Setenv(EnvAllowedOrigins, "https://a.example, https://b.example")
	t.Setenv(EnvRequestTimeout, "5s")
	t.Setenv(EnvMongoURI, "mongodb://db/transit")
	t.Setenv(EnvCacheURL, "")
	t.Setenv(EnvLayerURL, "")
	t.Setenv(EnvRedisURL, "")

	cfg := ConfigFromEnv(t.TempDir() + "/missing.env")
	if cfg.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
	if cfg.RequestTimeout.Seconds() != 5 {
		t.Errorf("timeout = %v", cfg.RequestTimeout)
	}
	if got := cfg.layerURL(); got != "mongodb://db/transit" {
		t.Errorf("layer url = %q", got)
	}
	if got := cfg.cacheURL(); got != "" {
		t.Errorf("cache url = %q", got)
	}
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct{ header http.Header }

func (b *brokenWriter) Header() http.Header       { return b.header }
func (b *brokenWriter) WriteHeader(int)           {}
func (b *brokenWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	runner := pipeline.NewRunner(cache.NewMemoryCache(64), nil, logger)
	s := New(runner, layer.NewMemoryStore(), logger, Config{})
	t.Cleanup(func() { s.Close() })

	req := httptest.NewRequest(http.MethodGet, "/v1/layers/berlin?format=json", nil)
	s.writeArtifact(&brokenWriter{header: http.Header{}}, req, testNetwork(), pipeline.FormatJSON)
	if !strings.Contains(buf.String(), "write response failed") {
		t.Errorf("log = %q, want a write failure entry", buf.String())
	}

	buf.Reset()
	s.writeJSON(&brokenWriter{header: http.Header{}}, req, http.StatusOK, map[string]string{"status": "ok"})
	if !strings.Contains(buf.String(), "write response failed") {
		t.Errorf("log = %q, want a write failure entry", buf.String())
	}
}
