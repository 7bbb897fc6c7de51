//go:build integration
// +build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/controller"
	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/repository"
	"github.com/GoSim-25-26J-441/urban-simulation-core/internal/simd"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/config"
	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
)

// newServer wires the full stack over a file-backed SQLite store
func newServer(t *testing.T) (*httptest.Server, repository.Store) {
	t.Helper()
	ctx := context.Background()

	cfg, err := config.Load("../../config/urbansim.yaml")
	if err != nil {
		t.Fatalf("Load config: %v", err)
	}
	cfg.Repository.DSN = filepath.Join(t.TempDir(), "runs.db")
	cfg.Controller.StageDelay = 0

	store, err := repository.Open(ctx, cfg.Repository)
	if err != nil {
		t.Fatalf("Open repository: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	presets, err := config.LoadPresets("../../config/presets.yaml")
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}

	ctrl := controller.New(controller.Options{StageDelay: cfg.Controller.StageDelay})
	svc := simd.NewService(ctrl, store, simd.WithPresets(presets))
	srv := httptest.NewServer(simd.NewHTTPServer(svc).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

// TestIntegration_ScenarioLifecycle simulates presets, persists them, then
// optimizes and compares through the HTTP API.
func TestIntegration_ScenarioLifecycle(t *testing.T) {
	srv, store := newServer(t)

	ids := make(map[string]string)
	for _, preset := range []string{"current-city", "transit-first", "car-centric"} {
		var resp struct {
			Run models.SimulationRun `json:"run"`
		}
		code := postJSON(t, srv.URL+"/v1/simulations", map[string]any{"preset": preset, "persist": true}, &resp)
		if code != http.StatusCreated {
			t.Fatalf("simulate %s: status %d", preset, code)
		}
		ids[preset] = resp.Run.ID
	}

	runs, err := store.List(context.Background(), repository.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 persisted runs, got %d", len(runs))
	}

	var opt struct {
		Optimizations []models.OptimizationResult `json:"optimizations"`
	}
	code := postJSON(t, srv.URL+"/v1/optimizations", map[string]any{
		"baseline_run_id": ids["current-city"],
		"target":          "all",
	}, &opt)
	if code != http.StatusOK {
		t.Fatalf("optimize: status %d", code)
	}
	if len(opt.Optimizations) != len(models.OptimizationTypes) {
		t.Fatalf("expected %d optimizations, got %d", len(models.OptimizationTypes), len(opt.Optimizations))
	}
	for i, res := range opt.Optimizations {
		if res.OptimizationType != models.OptimizationTypes[i] {
			t.Fatalf("result %d: expected %s, got %s", i, models.OptimizationTypes[i], res.OptimizationType)
		}
		if err := res.OptimalParameters.Validate(); err != nil {
			t.Fatalf("result %d: optimal parameters out of bounds: %v", i, err)
		}
		if res.ConfidenceScore < 0 || res.ConfidenceScore > 1 {
			t.Fatalf("result %d: confidence %v outside [0,1]", i, res.ConfidenceScore)
		}
	}

	var cmp struct {
		Comparison models.ComparisonMetric `json:"comparison"`
	}
	code = postJSON(t, srv.URL+"/v1/comparisons", map[string]any{
		"baseline_run_id":  ids["current-city"],
		"compared_run_ids": []string{ids["transit-first"], ids["car-centric"]},
	}, &cmp)
	if code != http.StatusOK {
		t.Fatalf("compare: status %d", code)
	}
	if len(cmp.Comparison.Summary.KeyFindings) == 0 {
		t.Fatalf("expected key findings, got none")
	}
	for _, name := range models.MetricNames {
		if got := len(cmp.Comparison.Metrics[name].PercentageDifferences); got != 2 {
			t.Fatalf("%s: expected 2 differences, got %d", name, got)
		}
	}
}

// TestIntegration_ListRunsPagination pages through stored runs
func TestIntegration_ListRunsPagination(t *testing.T) {
	srv, _ := newServer(t)

	for i := 0; i < 5; i++ {
		params := map[string]float64{"roads": float64(i * 20), "population": 50, "housing": 50, "public_transport": 50}
		if code := postJSON(t, srv.URL+"/v1/simulations", map[string]any{"parameters": params, "persist": true}, nil); code != http.StatusCreated {
			t.Fatalf("simulate %d: status %d", i, code)
		}
	}

	resp, err := http.Get(fmt.Sprintf("%s/v1/runs?limit=2&offset=1", srv.URL))
	if err != nil {
		t.Fatalf("GET runs: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Runs []models.SimulationRun `json:"runs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(body.Runs))
	}
	if body.Runs[0].CreatedAt.Before(body.Runs[1].CreatedAt) {
		t.Fatalf("expected newest first")
	}
}
