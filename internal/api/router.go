package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/irhvac-core/internal/hvac"
)

// captiveNoContent are the connectivity-check URLs that expect an empty 204.
var captiveNoContent = []string{"/generate_204", "/gen_204"}

// captiveRedirect are the connectivity-check URLs that should land on the UI.
var captiveRedirect = []string{
	"/hotspot-detect.html",
	"/fwlink",
	"/connecttest.txt",
	"/ncsi.txt",
	"/library/test/success.html",
}

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Captive portal checks stay reachable without credentials.
	if s.cfg.CaptivePortal {
		for _, p := range captiveNoContent {
			r.HandleFunc(p, handleCaptiveNoContent)
		}
		for _, p := range captiveRedirect {
			r.HandleFunc(p, handleCaptiveRedirect)
		}
		r.NotFound(handleCaptiveRedirect)
	}

	r.Get("/api/v1/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.basicAuthMiddleware)

		r.Get("/", s.handleIndex)
		r.Post("/hvacs/test", s.handleHVACTest)
		r.Post("/raw/test", s.handleRawTest)

		r.Route("/api", func(r chi.Router) {
			r.Post("/command", s.handleCommand)
			r.Get("/state", s.handleState)
			r.Get("/config", s.handleConfig)
			r.Get("/history/{id}", s.handleDeviceHistory)
			r.Get("/commands", s.handleListCommands)
			r.Get("/v1/metrics", s.handleMetrics)
		})

		if s.metricsHandler != nil {
			r.Handle("/metrics", s.metricsHandler)
		}
		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleIndex names the controller and its device count.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var devices int
	if err := s.engine.Do(r.Context(), func(p *hvac.Processor) { devices = p.Registry().Len() }); err != nil {
		writeUnavailable(w, "control loop stopped")
		return
	}
	body := map[string]any{
		"version": s.version,
		"hvacs":   devices,
	}
	if s.site != nil {
		if cfg := s.site(); cfg != nil {
			body["hostname"] = cfg.Hostname()
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path != "" {
		return s.wsCfg.Path
	}
	return "/ws"
}

func handleCaptiveNoContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func handleCaptiveRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}
