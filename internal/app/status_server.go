package app

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// statusResponse is the payload served on /status while a run is in flight.
type statusResponse struct {
	RunID string `json:"run_id"`
	Level string `json:"level"`
	Phase string `json:"phase"`
}

// statusRouter builds the liveness and run-progress endpoints.
func (a *App) statusRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})

	router.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statusResponse{
			RunID: a.request.RunID,
			Level: string(a.request.Level),
			Phase: a.currentPhase(),
		})
	})
	return router
}

// startStatusServer serves the status endpoints for long FEAT/FLAMEO runs.
// The server lives for the duration of the process; there is no graceful
// shutdown because the process exits with the run.
func (a *App) startStatusServer(port int) {
	router := a.statusRouter()
	addr := fmt.Sprintf(":%d", port)
	go func() {
		a.logger.Info("🩺 Status server starting.", "address", fmt.Sprintf("http://localhost%s/status", addr))
		if err := http.ListenAndServe(addr, router); err != nil {
			a.logger.Error("Status server failed.", "error", err)
		}
	}()
}
