package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRunsEndpointAcceptsThenConflicts(t *testing.T) {
	h := newHarness(t, farmsN(2), nil)
	listed := make(chan struct{})
	release := make(chan struct{})
	h.farms.listed = listed
	h.farms.release = release
	router := NewRouter(h.orch, APIConfig{})

	if w := serve(router, http.MethodPost, "/runs"); w.Code != http.StatusAccepted {
		t.Fatalf("first POST /runs: %d %s", w.Code, w.Body.String())
	}
	<-listed
	if w := serve(router, http.MethodPost, "/runs"); w.Code != http.StatusConflict {
		t.Fatalf("second POST /runs while running: %d", w.Code)
	}

	w := serve(router, http.MethodGet, "/status")
	var st Status
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.State != "running" || st.RunID == "" {
		t.Fatalf("unexpected status %+v", st)
	}

	close(release)
	waitFor(t, "run completion", func() bool { return h.orch.State() == StateCompleted })

	w = serve(router, http.MethodGet, "/status")
	st = Status{}
	_ = json.NewDecoder(w.Body).Decode(&st)
	if st.LastReport == nil || st.LastReport.Succeeded != 2 {
		t.Fatalf("status must carry the last report: %+v", st)
	}
}

func TestStatusShowsBreakerStates(t *testing.T) {
	h := newHarness(t, nil, nil)
	router := NewRouter(h.orch, APIConfig{
		Breakers: map[string]func() string{
			"bands":  func() string { return "open" },
			"vision": func() string { return "closed" },
		},
	})

	w := serve(router, http.MethodGet, "/status")
	var st Status
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Breakers["bands"] != "open" || st.Breakers["vision"] != "closed" {
		t.Fatalf("unexpected breakers %v", st.Breakers)
	}
}

func TestStopEndpoint(t *testing.T) {
	h := newHarness(t, farmsN(1), nil)
	router := NewRouter(h.orch, APIConfig{})
	if w := serve(router, http.MethodPost, "/runs/stop"); w.Code != http.StatusConflict {
		t.Fatalf("stop without a run: %d", w.Code)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	h := newHarness(t, nil, nil)
	router := NewRouter(h.orch, APIConfig{
		Ready: map[string]ReadyCheck{
			"mongo": func(context.Context) error { return nil },
			"mqtt":  func(context.Context) error { return errors.New("not connected") },
		},
	})

	if w := serve(router, http.MethodGet, "/healthz"); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", w.Code, w.Body.String())
	}
	w := serve(router, http.MethodGet, "/readyz")
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "mqtt") {
		t.Fatalf("readyz: %d %s", w.Code, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := NewMetrics()
	h := newHarness(t, farmsN(2), func(_ *harness, cfg *Config) {
		cfg.Hooks = m.Hooks()
	})
	if _, err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	router := NewRouter(h.orch, APIConfig{Metrics: m.Handler()})

	w := serve(router, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{"cropwatch_runs_total", "cropwatch_farms_processed_total", "cropwatch_run_duration_seconds"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}
