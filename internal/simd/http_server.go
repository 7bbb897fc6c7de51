package simd

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/repository"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/config"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/logger"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
)

const (
	maxListLimit   = 1000
	maxRequestBody = 1 << 20
)

type HTTPServer struct {
	mux     *http.ServeMux
	service *Service
}

func NewHTTPServer(service *Service) *HTTPServer {
	s := &HTTPServer{
		mux:     http.NewServeMux(),
		service: service,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/score", s.handleScore)
	s.mux.HandleFunc("/v1/presets", s.handlePresets)
	s.mux.HandleFunc("/v1/simulations", s.handleSimulations)
	s.mux.HandleFunc("/v1/runs", s.handleListRuns)
	s.mux.HandleFunc("/v1/runs/", s.handleRunByID)
	s.mux.HandleFunc("/v1/optimizations", s.handleOptimizations)
	s.mux.HandleFunc("/v1/comparisons", s.handleComparisons)

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleScore handles POST /v1/score
func (s *HTTPServer) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Parameters *models.Parameters `json:"parameters"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Parameters == nil {
		s.writeError(w, http.StatusBadRequest, "parameters are required")
		return
	}

	results, err := s.service.Score(*req.Parameters)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"parameters": req.Parameters,
		"results":    results,
	})
}

// handlePresets handles GET /v1/presets
func (s *HTTPServer) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	presets := s.service.Presets()
	if presets == nil {
		presets = []config.Preset{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"presets": presets})
}

// handleSimulations handles POST /v1/simulations
func (s *HTTPServer) handleSimulations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req SimulateRequest
	if !s.decode(w, r, &req) {
		return
	}

	run, err := s.service.Simulate(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	code := http.StatusOK
	if run.ID != "" {
		code = http.StatusCreated
	}
	s.writeJSON(w, code, map[string]any{"run": run})
}

// handleListRuns handles GET /v1/runs with pagination and filtering
func (s *HTTPServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := repository.DefaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > maxListLimit {
				limit = maxListLimit
			}
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	filter := repository.Filter{Limit: limit, Offset: offset}
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		since, err := parseTime(sinceStr)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid since format: "+err.Error())
			return
		}
		filter.Since = since
	}

	runs, err := s.service.Runs(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs": runs,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(runs),
		},
	})
}

// handleRunByID handles GET /v1/runs/{id}
func (s *HTTPServer) handleRunByID(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if runID == "" || strings.Contains(runID, "/") {
		s.writeError(w, http.StatusBadRequest, "run ID is required")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	run, err := s.service.Run(r.Context(), runID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

// handleOptimizations handles POST /v1/optimizations
func (s *HTTPServer) handleOptimizations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req OptimizeRequest
	if !s.decode(w, r, &req) {
		return
	}

	results, err := s.service.Optimize(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	logger.Info("optimization served (HTTP)", "target", req.Target, "results", len(results))
	s.writeJSON(w, http.StatusOK, map[string]any{"optimizations": results})
}

// handleComparisons handles POST /v1/comparisons
func (s *HTTPServer) handleComparisons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CompareRequest
	if !s.decode(w, r, &req) {
		return
	}

	cm, err := s.service.Compare(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"comparison": cm})
}

// decode reads a JSON body into dst, answering 400 itself on failure
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// parseTime parses time from RFC 3339 or Unix milliseconds
func parseTime(timeStr string) (time.Time, error) {
	if unixMs, err := strconv.ParseInt(timeStr, 10, 64); err == nil {
		return time.UnixMilli(unixMs).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, timeStr)
	if err != nil {
		return time.Time{}, errors.New("expected RFC 3339 or unix milliseconds")
	}
	return t, nil
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	code := httpStatus(err)
	if code == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}
	s.writeError(w, code, err.Error())
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
