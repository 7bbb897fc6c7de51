package simd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func doRequest(t *testing.T, srv *HTTPServer, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	srv.Handler().ServeHTTP(rr, req)

	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rr.Body.String(), err)
	}
	return rr, out
}

func TestHTTPServerHealthz(t *testing.T) {
	svc, _ := newTestService(t)
	rr, body := doRequest(t, NewHTTPServer(svc), http.MethodGet, "/healthz", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if body["timestamp"] == "" {
		t.Fatalf("expected timestamp to be set")
	}
}

func TestHTTPServerScore(t *testing.T) {
	svc, _ := newTestService(t)
	srv := NewHTTPServer(svc)

	rr, body := doRequest(t, srv, http.MethodPost, "/v1/score",
		`{"parameters":{"roads":50,"population":50,"housing":50,"public_transport":50}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rr.Code, body)
	}
	results := body["results"].(map[string]any)
	if results["congestion"] != 70.0 || results["satisfaction"] != 15.0 {
		t.Fatalf("unexpected results %v", results)
	}

	tests := []struct {
		name   string
		method string
		body   string
		code   int
	}{
		{"missing field", http.MethodPost, `{"parameters":{"roads":50,"population":50,"housing":50}}`, http.StatusBadRequest},
		{"out of range", http.MethodPost, `{"parameters":{"roads":500,"population":50,"housing":50,"public_transport":1}}`, http.StatusBadRequest},
		{"no parameters", http.MethodPost, `{}`, http.StatusBadRequest},
		{"malformed", http.MethodPost, `{`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := doRequest(t, srv, tt.method, "/v1/score", tt.body)
			if rr.Code != tt.code {
				t.Fatalf("expected %d, got %d: %v", tt.code, rr.Code, body)
			}
			if body["error"] == nil {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestHTTPServerSimulationLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	srv := NewHTTPServer(svc)

	rr, body := doRequest(t, srv, http.MethodPost, "/v1/simulations",
		`{"parameters":{"roads":50,"population":50,"housing":50,"public_transport":50},"persist":true,"metadata":{"label":"base"}}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", rr.Code, body)
	}
	run := body["run"].(map[string]any)
	id, _ := run["id"].(string)
	if id == "" {
		t.Fatalf("expected run id, got %v", run)
	}

	rr, body = doRequest(t, srv, http.MethodPost, "/v1/simulations", `{"preset":"transit-first"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for unpersisted run, got %d: %v", rr.Code, body)
	}
	if _, ok := body["run"].(map[string]any)["id"]; ok {
		t.Fatalf("unpersisted run must not carry an id")
	}

	rr, body = doRequest(t, srv, http.MethodGet, "/v1/runs/"+id, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body["run"].(map[string]any)["id"] != id {
		t.Fatalf("unexpected run %v", body["run"])
	}

	rr, _ = doRequest(t, srv, http.MethodGet, "/v1/runs/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr, body = doRequest(t, srv, http.MethodGet, "/v1/runs?limit=10", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if runs := body["runs"].([]any); len(runs) != 1 {
		t.Fatalf("expected 1 stored run, got %d", len(runs))
	}
	pagination := body["pagination"].(map[string]any)
	if pagination["limit"] != 10.0 || pagination["count"] != 1.0 {
		t.Fatalf("unexpected pagination %v", pagination)
	}

	rr, _ = doRequest(t, srv, http.MethodGet, "/v1/runs?since=yesterday", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad since, got %d", rr.Code)
	}
}

func TestHTTPServerPresets(t *testing.T) {
	svc, _ := newTestService(t)
	rr, body := doRequest(t, NewHTTPServer(svc), http.MethodGet, "/v1/presets", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	presets := body["presets"].([]any)
	if len(presets) != 1 || presets[0].(map[string]any)["name"] != "transit-first" {
		t.Fatalf("unexpected presets %v", presets)
	}
}

func TestHTTPServerOptimizations(t *testing.T) {
	svc, _ := newTestService(t)
	srv := NewHTTPServer(svc)
	base := persist(t, svc, midpoint)

	rr, body := doRequest(t, srv, http.MethodPost, "/v1/optimizations",
		`{"baseline_run_id":"`+base.ID+`","target":"emissions"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rr.Code, body)
	}
	opts := body["optimizations"].([]any)
	if len(opts) != 1 {
		t.Fatalf("expected one optimization, got %d", len(opts))
	}
	opt := opts[0].(map[string]any)
	if opt["optimization_type"] != "emissions" {
		t.Fatalf("unexpected type %v", opt["optimization_type"])
	}
	if opt["improvement_percentage"].(float64) <= 0 {
		t.Fatalf("expected positive improvement, got %v", opt["improvement_percentage"])
	}

	rr, body = doRequest(t, srv, http.MethodPost, "/v1/optimizations",
		`{"baseline_run":{"created_at":"2025-01-01T00:00:00Z","parameters":{"roads":50,"population":50,"housing":50,"public_transport":50},"results":{"congestion":70,"satisfaction":15,"emissions":31,"transit_usage":56}},"target":"all"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rr.Code, body)
	}
	if n := len(body["optimizations"].([]any)); n != 5 {
		t.Fatalf("expected 5 optimizations, got %d", n)
	}

	rr, _ = doRequest(t, srv, http.MethodPost, "/v1/optimizations", `{"baseline_run_id":"`+base.ID+`","target":"happiness"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown target, got %d", rr.Code)
	}
	rr, _ = doRequest(t, srv, http.MethodPost, "/v1/optimizations", `{"baseline_run_id":"missing","target":"balanced"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown baseline, got %d", rr.Code)
	}
}

func TestHTTPServerComparisons(t *testing.T) {
	svc, _ := newTestService(t)
	srv := NewHTTPServer(svc)
	base := persist(t, svc, midpoint)
	other := persist(t, svc, carCentric)

	rr, body := doRequest(t, srv, http.MethodPost, "/v1/comparisons",
		`{"baseline_run_id":"`+base.ID+`","compared_run_ids":["`+other.ID+`"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rr.Code, body)
	}
	cm := body["comparison"].(map[string]any)
	metrics := cm["metrics"].(map[string]any)
	for _, name := range []string{"congestion", "satisfaction", "emissions", "transit_usage"} {
		if _, ok := metrics[name]; !ok {
			t.Fatalf("missing metric %s in %v", name, metrics)
		}
	}

	rr, _ = doRequest(t, srv, http.MethodPost, "/v1/comparisons", `{"baseline_run_id":"`+base.ID+`","compared_run_ids":[]}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}
