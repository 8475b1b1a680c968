package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"fieldcat/internal/binning"
	"fieldcat/internal/catalog"
	"fieldcat/internal/results"

	"github.com/soniakeys/unit"
)

// ApiV1Router serves the stored binning results, read only.
type ApiV1Router struct {
	// results: mappings of the binning plans by plan name.
	results *results.Repository
	// cat: classified catalog the identifiers refer to; used to resolve sky positions.
	cat *catalog.Catalog
}

// Mux returns a configured *http.ServeMux with registered handlers:
// - GET /api/v1/plans: names of the stored plans
// - GET /api/v1/plans/{plan}/buckets: latest mapping of a plan
// - GET /api/v1/plans/{plan}/buckets/{key}: identifiers of one bucket
// - GET /api/v1/plans/{plan}/positions: RA/Dec in degrees of every bucket
// - GET /api/v1/plans/{plan}/history: size of every stored snapshot
// - GET /api/v1/keys/{key}: segments of a bucket key
func (ar *ApiV1Router) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/plans", ar.plansHandler)
	mux.HandleFunc("GET /api/v1/plans/{plan}/buckets", ar.bucketsHandler)
	mux.HandleFunc("GET /api/v1/plans/{plan}/buckets/{key}", ar.bucketHandler)
	mux.HandleFunc("GET /api/v1/plans/{plan}/positions", ar.positionsHandler)
	mux.HandleFunc("GET /api/v1/plans/{plan}/history", ar.historyHandler)
	mux.HandleFunc("GET /api/v1/keys/{key}", ar.keyHandler)
	return mux
}

func (ar *ApiV1Router) plansHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, ar.results.Names())
}

func (ar *ApiV1Router) bucketsHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := ar.mapping(w, r)
	if !ok {
		return
	}
	writeJSON(w, m)
}

// bucketHandler returns the identifiers of /api/v1/plans/{plan}/buckets/{key}.
// An unknown plan or key is a 404.
func (ar *ApiV1Router) bucketHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := ar.mapping(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	ids, found := m[key]
	if !found {
		slog.Warn("Bucket not found", "plan", r.PathValue("plan"), "key", key)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, ids)
}

type positionsBody struct {
	RA  []float64 `json:"ra"`
	Dec []float64 `json:"dec"`
}

func (ar *ApiV1Router) positionsHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := ar.mapping(w, r)
	if !ok {
		return
	}
	positions, err := binning.PositionsFor(ar.cat, m)
	if err != nil {
		slog.Warn("Unable to resolve positions", "plan", r.PathValue("plan"), "error", err)
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	body := make(map[string]positionsBody, len(positions))
	for key, p := range positions {
		b := positionsBody{RA: make([]float64, len(p.RA)), Dec: make([]float64, len(p.Dec))}
		for i := range p.RA {
			b.RA[i] = unit.Angle(p.RA[i]).Deg()
			b.Dec[i] = p.Dec[i].Deg()
		}
		body[key] = b
	}
	writeJSON(w, body)
}

type snapshotBody struct {
	Time    time.Time `json:"time"`
	Buckets int       `json:"buckets"`
	Sources int       `json:"sources"`
}

func (ar *ApiV1Router) historyHandler(w http.ResponseWriter, r *http.Request) {
	plan := r.PathValue("plan")
	history, found := ar.results.History(plan)
	if !found {
		slog.Warn("Plan not found", "plan", plan)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	body := make([]snapshotBody, len(history))
	for i, s := range history {
		body[i] = snapshotBody{Time: s.Time, Buckets: len(s.Mapping), Sources: s.Mapping.Count()}
	}
	writeJSON(w, body)
}

type segmentBody struct {
	Name string   `json:"name"`
	Kind string   `json:"kind"`
	Lo   float64  `json:"lo"`
	Hi   *float64 `json:"hi,omitempty"`
}

var segmentKinds = map[binning.SegmentKind]string{
	binning.SegmentRange:    "range",
	binning.SegmentAbove:    "ge",
	binning.SegmentBelow:    "lt",
	binning.SegmentDiscrete: "value",
}

func (ar *ApiV1Router) keyHandler(w http.ResponseWriter, r *http.Request) {
	key, err := binning.ParseKey(r.PathValue("key"))
	if err != nil {
		slog.Warn("Unable to parse bucket key", "error", err)
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	segments := make([]segmentBody, len(key.Segments))
	for i, s := range key.Segments {
		segments[i] = segmentBody{Name: s.Name, Kind: segmentKinds[s.Kind], Lo: s.Lo}
		if s.Kind == binning.SegmentRange {
			hi := s.Hi
			segments[i].Hi = &hi
		}
	}
	writeJSON(w, map[string]any{"segments": segments, "suffix": key.Suffix})
}

// mapping loads the latest mapping of the {plan} path value, answering 404 when there is none.
func (ar *ApiV1Router) mapping(w http.ResponseWriter, r *http.Request) (binning.Mapping, bool) {
	plan := r.PathValue("plan")
	m, found := ar.results.Get(plan)
	if !found {
		slog.Warn("Plan not found", "plan", plan)
		w.WriteHeader(http.StatusNotFound)
		return nil, false
	}
	return m, true
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Unable to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// NewApiV1Router creates a router over the results repository and the catalog they were binned from.
func NewApiV1Router(results *results.Repository, cat *catalog.Catalog) *ApiV1Router {
	return &ApiV1Router{results: results, cat: cat}
}
