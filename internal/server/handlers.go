package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/transitmap/pkg/buildinfo"
	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/errors"
	pkgio "github.com/matzehuels/transitmap/pkg/io"
	"github.com/matzehuels/transitmap/pkg/layer"
	"github.com/matzehuels/transitmap/pkg/pipeline"
)

// contentTypes maps output formats to response content types.
var contentTypes = map[string]string{
	pipeline.FormatJSON:     "application/json",
	pipeline.FormatRoutes:   "application/json",
	pipeline.FormatGeoJSON:  "application/geo+json",
	pipeline.FormatSVG:      "image/svg+xml",
	pipeline.FormatDOT:      "text/vnd.graphviz",
	pipeline.FormatTopology: "image/svg+xml",
	pipeline.FormatPNG:      "image/png",
	pipeline.FormatPDF:      "application/pdf",
}

// SchematicResponse is the JSON envelope returned for a schematic run.
type SchematicResponse struct {
	RunID     string          `json:"run_id"`
	InputHash string          `json:"input_hash,omitempty"`
	Cached    bool            `json:"cached"`
	Layer     string          `json:"layer,omitempty"`
	Stats     pipeline.Stats  `json:"stats"`
	Network   json.RawMessage `json:"network"`
}

// LayerInfo describes a stored layer.
type LayerInfo struct {
	ID       string `json:"id"`
	Segments int    `json:"segments"`
	Stations int    `json:"stations"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "build": buildinfo.Get(), "timestamp": time.Now().UTC()}
	status := http.StatusOK
	if _, err := s.layers.List(r.Context()); err != nil {
		body["status"] = "degraded"
		body["layers"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, r, status, body)
}

// postSchematic handles POST /v1/schematic.
func (s *Server) postSchematic(w http.ResponseWriter, r *http.Request) {
	n, err := s.readNetwork(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.schematize(w, r, n, "")
}

// schematizeLayer handles POST /v1/layers/{id}/schematic. The result is
// stored under ?target=, which defaults to "<id>-schematic".
func (s *Server) schematizeLayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := s.layers.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	target := r.URL.Query().Get("target")
	if target == "" {
		target = id + "-schematic"
	}
	if err := layer.ValidateID(target); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.schematize(w, r, n, target)
}

func (s *Server) schematize(w http.ResponseWriter, r *http.Request, n *network.Network, target string) {
	ctx := r.Context()
	q := r.URL.Query()
	opts, err := optionsFromQuery(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, hit, err := s.runner.ExecuteWithCacheInfo(ctx, n, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if target != "" {
		if err := s.layers.Set(ctx, target, res.Network); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	w.Header().Set("X-Run-Id", res.RunID)
	w.Header().Set("X-Cache", cacheHeader(hit))

	if format := q.Get("format"); format != "" {
		s.writeArtifact(w, r, res.Network, format)
		return
	}
	data, err := pkgio.MarshalNetwork(res.Network)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, SchematicResponse{
		RunID:     res.RunID,
		InputHash: res.InputHash,
		Cached:    hit,
		Layer:     target,
		Stats:     res.Stats,
		Network:   data,
	})
}

// listLayers handles GET /v1/layers.
func (s *Server) listLayers(w http.ResponseWriter, r *http.Request) {
	ids, err := s.layers.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"layers": ids, "count": len(ids)})
}

// getLayer handles GET /v1/layers/{id}. The default format is segment JSON.
func (s *Server) getLayer(w http.ResponseWriter, r *http.Request) {
	n, err := s.layers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.FormatJSON
	}
	s.writeArtifact(w, r, n, format)
}

// putLayer handles PUT /v1/layers/{id}.
func (s *Server) putLayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := layer.ValidateID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.readNetwork(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.layers.Set(r.Context(), id, n); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, LayerInfo{ID: id, Segments: len(n.Segments), Stations: len(n.Stations())})
}

// deleteLayer handles DELETE /v1/layers/{id}.
func (s *Server) deleteLayer(w http.ResponseWriter, r *http.Request) {
	if err := s.layers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) readNetwork(w http.ResponseWriter, r *http.Request) (*network.Network, error) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty request body")
	}
	return pipeline.Decode(data, r.URL.Query().Get("input"))
}

func (s *Server) writeArtifact(w http.ResponseWriter, r *http.Request, n *network.Network, format string) {
	artifacts, err := s.runner.Render(r.Context(), n, []string{format}, pipeline.RenderOptions{
		Detailed:    r.URL.Query().Get("detailed") == "true",
		Interactive: r.URL.Query().Get("interactive") == "true",
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifacts[format]); err != nil {
		s.logWriteFailure(r, err)
	}
}

// optionsFromQuery reads pipeline options from query parameters.
func optionsFromQuery(q url.Values) (pipeline.Options, error) {
	var opts pipeline.Options
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "invalid seed %q", v)
		}
		opts.Seed = seed
	}
	if v := q.Get("attempts"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New(errors.ErrCodeInvalidInput, "invalid attempts %q", v)
		}
		opts.Attempts = n
	}
	opts.Searcher = q.Get("searcher")
	opts.Refresh = q.Get("refresh") == "true"
	return opts, nil
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	s.writeJSON(w, r, status, errorResponse{Error: errors.UserMessage(err), Code: string(errors.GetCode(err))})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logWriteFailure(r, err)
	}
}

// logWriteFailure records a response body that could not be delivered. The
// status line is already sent, so there is nothing left to tell the client.
func (s *Server) logWriteFailure(r *http.Request, err error) {
	s.logger.Warn("write response failed", "method", r.Method, "path", r.URL.Path, "err", err)
}
