// Package api provides the read-only REST API over the fleet modernity views.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fleetindex/internal/storage"
)

// DefaultLimit caps the airline listing when no limit parameter is given.
const DefaultLimit = 50

// Server serves the three views as JSON endpoints.
type Server struct {
	store storage.Store
	port  int
}

// Config holds configuration for the API server.
type Config struct {
	Port int
}

// NewServer creates a new API server over the given store.
func NewServer(store storage.Store, cfg Config) *Server {
	return &Server{store: store, port: cfg.Port}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for browser access.
	r.Use(corsMiddleware)

	r.Mount("/api/v1", s.Router())

	addr := ":" + strconv.Itoa(s.port)
	log.Printf("Fleet index API starting at http://localhost%s", addr)
	return http.ListenAndServe(addr, r)
}

// Router returns the configured chi router for embedding in other servers.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/airlines", s.handleListAirlines)
	r.Get("/airlines/top", s.handleTopAirlines)
	r.Get("/clusters/{cluster_id}", s.handleClusterMembers)
	r.Get("/regions/summary", s.handleRegionSummary)

	return r
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AirlineResponse is the listing projection of the full view: the score
// and clustering columns a fleet dashboard actually plots. Score and
// clustering fields are null for airlines those stages have not reached.
type AirlineResponse struct {
	Airline             string   `json:"airline"`
	FleetSize           int      `json:"fleet_size"`
	ModernityIndexScore *float64 `json:"modernity_index_score"`
	NewGenShareFeatures *float64 `json:"new_gen_share_features"`
	PctNewgenNarrow     *float64 `json:"pct_newgen_narrow"`
	PctNewgenWide       *float64 `json:"pct_newgen_wide"`
	Cluster             *int     `json:"cluster"`
}

func airlineToResponse(a storage.AirlineFull) AirlineResponse {
	return AirlineResponse{
		Airline:             a.Airline,
		FleetSize:           a.FleetSize,
		ModernityIndexScore: a.ModernityIndexScore,
		NewGenShareFeatures: a.NewGenShareFeatures,
		PctNewgenNarrow:     a.PctNewgenNarrow,
		PctNewgenWide:       a.PctNewgenWide,
		Cluster:             a.Cluster,
	}
}

// TopAirlineResponse is one row of the ranking view.
type TopAirlineResponse struct {
	Airline        string   `json:"airline"`
	FleetSize      int      `json:"fleet_size"`
	ModernityIndex *float64 `json:"modernity_index"`
	Version        string   `json:"version,omitempty"`
	QANotes        string   `json:"qa_notes,omitempty"`
}

// RegionResponse is one row of the region view.
type RegionResponse struct {
	Region             string   `json:"region"`
	NAirlines          int      `json:"n_airlines"`
	MeanModernityIndex *float64 `json:"mean_modernity_index"`
	TopAirlines        string   `json:"top_airlines"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListAirlines serves the airline listing. The region parameter is
// accepted and echoed back but does not filter: the schema stores no
// region per airline, and guessing a join path would silently return
// wrong subsets. It filters nothing until a region attribute exists.
func (s *Server) handleListAirlines(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")

	limit := DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	airlines, err := s.store.ListAirlineFull(r.Context(), limit)
	if err != nil {
		log.Printf("[/airlines] %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	results := make([]AirlineResponse, 0, len(airlines))
	for _, a := range airlines {
		results = append(results, airlineToResponse(a))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"region_param": region,
		"count":        len(results),
		"airlines":     results,
	})
}

// handleTopAirlines serves the top-50 ranking view.
func (s *Server) handleTopAirlines(w http.ResponseWriter, r *http.Request) {
	top, err := s.store.ListTopAirlines(r.Context())
	if err != nil {
		log.Printf("[/airlines/top] %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	results := make([]TopAirlineResponse, 0, len(top))
	for _, t := range top {
		results = append(results, TopAirlineResponse{
			Airline:        t.Airline,
			FleetSize:      t.FleetSize,
			ModernityIndex: t.ModernityIndex,
			Version:        t.VersionV1,
			QANotes:        t.QANotes,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(results),
		"airlines": results,
	})
}

// handleClusterMembers serves all airlines carrying a cluster label. An
// unknown label is a valid empty result, not an error.
func (s *Server) handleClusterMembers(w http.ResponseWriter, r *http.Request) {
	clusterID, err := strconv.Atoi(chi.URLParam(r, "cluster_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cluster_id must be an integer")
		return
	}

	airlines, err := s.store.ListAirlinesByCluster(r.Context(), clusterID)
	if err != nil {
		log.Printf("[/clusters] %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	results := make([]AirlineResponse, 0, len(airlines))
	for _, a := range airlines {
		results = append(results, airlineToResponse(a))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cluster":  clusterID,
		"count":    len(results),
		"airlines": results,
	})
}

// handleRegionSummary serves the region rollup view.
func (s *Server) handleRegionSummary(w http.ResponseWriter, r *http.Request) {
	regions, err := s.store.ListRegionSummaries(r.Context())
	if err != nil {
		log.Printf("[/regions/summary] %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	results := make([]RegionResponse, 0, len(regions))
	for _, reg := range regions {
		results = append(results, RegionResponse{
			Region:             reg.Region,
			NAirlines:          reg.NAirlines,
			MeanModernityIndex: reg.MeanModernityIndex,
			TopAirlines:        reg.TopAirlines,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"regions": results,
	})
}

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
