package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/LeonardoBeccarini/cropwatch/internal/model"
)

// ReadyCheck reports a dependency problem; nil means ready.
type ReadyCheck func(ctx context.Context) error

type APIConfig struct {
	// BaseContext parents runs started over HTTP (they outlive the request).
	BaseContext context.Context
	Ready       map[string]ReadyCheck
	// Breakers name upstream circuit breakers shown on /status.
	Breakers    map[string]func() string
	Metrics     http.Handler
}

// NewRouter exposes the control API of one orchestrator.
func NewRouter(o *Orchestrator, cfg APIConfig) http.Handler {
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		failures := map[string]string{}
		for name, check := range cfg.Ready {
			if err := check(ctx); err != nil {
				failures[name] = err.Error()
			}
		}
		if len(failures) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "failures": failures})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ready": true})
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		st := o.Status(req.Context())
		if len(cfg.Breakers) > 0 {
			st.Breakers = make(map[string]string, len(cfg.Breakers))
			for name, state := range cfg.Breakers {
				st.Breakers[name] = state()
			}
		}
		writeJSON(w, http.StatusOK, st)
	})

	r.Route("/runs", func(rr chi.Router) {
		rr.Post("/", func(w http.ResponseWriter, _ *http.Request) {
			err := o.Trigger(cfg.BaseContext)
			if errors.Is(err, model.ErrRunInProgress) {
				writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"state": StateRunning.String()})
		})
		rr.Post("/stop", func(w http.ResponseWriter, _ *http.Request) {
			if !o.Stop() {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "no run in progress"})
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"state": "stopping"})
		})
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
