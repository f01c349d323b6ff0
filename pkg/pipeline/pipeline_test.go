package pipeline

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/cache"
	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/errors"
	pkgio "github.com/matzehuels/transitmap/pkg/io"
)

func seg(route string, pts []orb.Point, nodes ...network.Node) network.Segment {
	return network.Segment{Points: pts, Nodes: nodes, RouteName: route}
}

// twoLines is a small network where the blue line cuts across the red one.
func twoLines() *network.Network {
	g := network.Geometry
	return network.New([]network.Segment{
		seg("red",
			[]orb.Point{{0, 0}, {1, 0.3}, {2, 0}, {4, 1}},
			network.Station("a", "A"), g(), network.Station("b", "B"), network.Station("c", "C")),
		seg("blue",
			[]orb.Point{{3, -1}, {3.2, 0.5}, {3, 2}},
			network.Station("e", "E"), g(), network.Station("f", "F")),
	})
}

func identities(n *network.Network) map[string]bool {
	out := make(map[string]bool)
	for _, st := range n.Stations() {
		out[st.Node.Identity()] = true
	}
	return out
}

func TestSchematizeKeepsParityAndStations(t *testing.T) {
	in := twoLines()
	before, _ := pkgio.MarshalNetwork(in)

	res, err := Schematize(context.Background(), in, Options{Attempts: 20})
	if err != nil {
		t.Fatalf("Schematize: %v", err)
	}
	if err := res.Network.CheckParity(); err != nil {
		t.Errorf("parity: %v", err)
	}
	got := identities(res.Network)
	for id := range identities(in) {
		if !got[id] {
			t.Errorf("station %s lost", id)
		}
	}
	if after, _ := pkgio.MarshalNetwork(in); !bytes.Equal(before, after) {
		t.Error("input network was modified")
	}
	if res.RunID == "" {
		t.Error("missing run id")
	}
	if res.Stats.Links == 0 || res.Stats.Attempts == 0 || res.Stats.Stations != 5 {
		t.Errorf("stats not filled: %+v", res.Stats)
	}
}

func TestSchematizeIsDeterministic(t *testing.T) {
	opts := Options{Seed: 7, Attempts: 30}
	a, err := Schematize(context.Background(), twoLines(), opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := Schematize(context.Background(), twoLines(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	da, _ := pkgio.MarshalNetwork(a.Network)
	db, _ := pkgio.MarshalNetwork(b.Network)
	if !bytes.Equal(da, db) {
		t.Error("equal seeds gave different schematics")
	}
	if a.Stats.CrossingsAfter != b.Stats.CrossingsAfter {
		t.Errorf("crossings %d vs %d", a.Stats.CrossingsAfter, b.Stats.CrossingsAfter)
	}
}

func TestSchematizeSkipsOptionalStages(t *testing.T) {
	res, err := Schematize(context.Background(), twoLines(), Options{
		Searcher:       SearcherGreedy,
		SkipCorrection: true,
		SkipCompaction: true,
		SkipWeights:    true,
	})
	if err != nil {
		t.Fatalf("Schematize: %v", err)
	}
	for _, stage := range []string{StageCorrect, StageCompact, StageSimplify} {
		if _, ran := res.Stats.Durations[stage]; ran {
			t.Errorf("stage %s ran", stage)
		}
	}
	if res.Stats.Attempts != 1 {
		t.Errorf("greedy attempts = %d, want 1", res.Stats.Attempts)
	}
}

func TestSchematizeCompressesWithoutWeights(t *testing.T) {
	in := network.New([]network.Segment{
		seg("red", []orb.Point{{0, 0}, {1, 0}, {10, 0}},
			network.Station("a", "A"), network.Station("b", "B"), network.Station("c", "C")),
	})
	for _, skip := range []bool{false, true} {
		res, err := Schematize(context.Background(), in, Options{SkipWeights: skip})
		if err != nil {
			t.Fatalf("Schematize(SkipWeights=%v): %v", skip, err)
		}
		if _, ran := res.Stats.Durations[StageNormalize]; !ran {
			t.Errorf("SkipWeights=%v: normalize did not run", skip)
		}
		want := []orb.Point{{0, 0}, {1, 0}, {2, 0}}
		got := res.Network.Segments[0].Points
		if len(got) != len(want) {
			t.Fatalf("SkipWeights=%v: points = %v, want %v", skip, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("SkipWeights=%v: point %d = %v, want %v", skip, i, got[i], want[i])
			}
		}
	}
}

func TestSchematizeErrors(t *testing.T) {
	g := network.Geometry
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		n    *network.Network
		opts Options
		code errors.Code
	}{
		{"empty network", context.Background(), network.New(nil), Options{}, errors.ErrCodeInputShape},
		{"no stations", context.Background(),
			network.New([]network.Segment{seg("x", []orb.Point{{0, 0}, {1, 0}}, g(), g())}),
			Options{}, errors.ErrCodeInputShape},
		{"bad searcher", context.Background(), twoLines(), Options{Searcher: "annealing"}, errors.ErrCodeInvalidConfig},
		{"canceled", canceled, twoLines(), Options{}, errors.ErrCodeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Schematize(tt.ctx, tt.n, tt.opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", Options{}, false},
		{"greedy", Options{Searcher: SearcherGreedy}, false},
		{"no z paths", Options{ZCandidates: -1}, false},
		{"corner range inverted", Options{CornerMin: 0.8, CornerMax: 0.2}, true},
		{"corner range empty", Options{CornerMin: 0.5, CornerMax: 0.5}, true},
		{"corner at edge", Options{CornerMin: 0.1, CornerMax: 1}, true},
		{"negative attempts", Options{Attempts: -3}, true},
		{"negative gap", Options{WeightGap: -1}, true},
		{"negative epsilon", Options{Epsilon: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAndSetDefaults() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("code = %s, want INVALID_CONFIG", errors.GetCode(err))
			}
		})
	}
}

func TestSetDefaultsKeepsExplicitValues(t *testing.T) {
	opts := Options{Seed: 9, Attempts: 3, ZCandidates: -1}
	opts.SetDefaults()
	if opts.Seed != 9 || opts.Attempts != 3 || opts.ZCandidates != -1 {
		t.Errorf("explicit values overwritten: %+v", opts)
	}
	if opts.Searcher != DefaultSearcher || opts.Logger == nil {
		t.Errorf("defaults not applied: searcher=%q logger=%v", opts.Searcher, opts.Logger)
	}
}

func TestDecodeOptions(t *testing.T) {
	opts, err := DecodeOptions([]byte("seed = 7\nattempts = 200\ncollapse_cap = 3.0\nskip_weights = true\n"))
	if err != nil {
		t.Fatalf("DecodeOptions: %v", err)
	}
	if opts.Seed != 7 || opts.Attempts != 200 || opts.CollapseCap != 3 || !opts.SkipWeights {
		t.Errorf("opts = %+v", opts)
	}

	_, err = DecodeOptions([]byte("atempts = 200\n"))
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown key: err = %v, want INVALID_CONFIG", err)
	}

	var buf bytes.Buffer
	if err := EncodeOptions(&buf, opts); err != nil {
		t.Fatalf("EncodeOptions: %v", err)
	}
	back, err := DecodeOptions(buf.Bytes())
	if err != nil {
		t.Fatalf("re-decode: %v\n%s", err, buf.String())
	}
	if back.KeyOpts() != opts.KeyOpts() {
		t.Errorf("round trip changed options: %+v", back.KeyOpts())
	}
}

func TestRunnerCachesSchematic(t *testing.T) {
	c := cache.NewMemoryCache(16)
	r := NewRunner(c, nil, nil)
	defer r.Close()

	opts := Options{Attempts: 10}
	first, hit, err := r.ExecuteWithCacheInfo(context.Background(), twoLines(), opts)
	if err != nil || hit {
		t.Fatalf("first run: hit=%v err=%v", hit, err)
	}
	second, hit, err := r.ExecuteWithCacheInfo(context.Background(), twoLines(), opts)
	if err != nil || !hit {
		t.Fatalf("second run: hit=%v err=%v", hit, err)
	}
	if second.RunID != first.RunID || !second.CacheInfo.Hit {
		t.Errorf("cached run = %q hit=%v, want %q", second.RunID, second.CacheInfo.Hit, first.RunID)
	}
	a, _ := pkgio.MarshalNetwork(first.Network)
	b, _ := pkgio.MarshalNetwork(second.Network)
	if !bytes.Equal(a, b) {
		t.Error("cached network differs")
	}

	opts.Refresh = true
	if _, hit, _ := r.ExecuteWithCacheInfo(context.Background(), twoLines(), opts); hit {
		t.Error("refresh should bypass the cache")
	}
	opts.Refresh = false
	opts.Seed = 99
	if _, hit, _ := r.ExecuteWithCacheInfo(context.Background(), twoLines(), opts); hit {
		t.Error("different seed should miss")
	}
}

func TestRender(t *testing.T) {
	res, err := Schematize(context.Background(), twoLines(), Options{Attempts: 5})
	if err != nil {
		t.Fatalf("Schematize: %v", err)
	}
	artifacts, err := Render(context.Background(), res.Network,
		[]string{FormatJSON, FormatRoutes, FormatGeoJSON, FormatSVG, FormatDOT}, RenderOptions{Detailed: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(string(artifacts[FormatSVG]), "<svg") {
		t.Errorf("svg = %.40q", artifacts[FormatSVG])
	}
	if !strings.HasPrefix(string(artifacts[FormatDOT]), "graph") {
		t.Errorf("dot = %.40q", artifacts[FormatDOT])
	}
	back, err := pkgio.UnmarshalNetwork(artifacts[FormatJSON])
	if err != nil || len(back.Segments) != len(res.Network.Segments) {
		t.Errorf("json does not read back: %v", err)
	}

	if _, err := Render(context.Background(), res.Network, []string{"bmp"}, RenderOptions{}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown format: err = %v", err)
	}
}

func TestRunnerCachesArtifacts(t *testing.T) {
	r := NewRunner(cache.NewMemoryCache(16), nil, nil)
	n := twoLines()
	if _, hit, err := r.RenderWithCacheInfo(context.Background(), n, []string{FormatDOT}, RenderOptions{}); err != nil || hit {
		t.Fatalf("first render: hit=%v err=%v", hit, err)
	}
	if _, hit, err := r.RenderWithCacheInfo(context.Background(), n, []string{FormatDOT}, RenderOptions{}); err != nil || !hit {
		t.Errorf("second render: hit=%v err=%v", hit, err)
	}
	if _, hit, _ := r.RenderWithCacheInfo(context.Background(), n, []string{FormatDOT}, RenderOptions{Detailed: true}); hit {
		t.Error("detailed render should miss")
	}
}

func TestDecodeDetectsFormat(t *testing.T) {
	segments := `[{"points": [[0, 0], [1, 0]], "nodes": [{"node_type": "station", "id": "a"}, {"node_type": "station", "id": "b"}]}]`
	geo := `{"type": "FeatureCollection", "features": [
		{"type": "Feature", "properties": {"ref": "L1"}, "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 0]]}}
	]}`
	for name, doc := range map[string]string{"segments": segments, "geojson": geo} {
		n, err := Decode([]byte(doc), InputAuto)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if len(n.Segments) != 1 {
			t.Errorf("%s: %d segments", name, len(n.Segments))
		}
	}
	if _, err := Decode([]byte(`[]`), InputSegments); !errors.Is(err, errors.ErrCodeInputShape) {
		t.Errorf("empty document: err = %v, want INPUT_SHAPE", err)
	}
	if _, err := Load("does-not-exist.json", InputAuto); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file: err = %v", err)
	}
}
