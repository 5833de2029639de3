package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tailscale.com/tsweb"
)

// AttachAdminRoutes mounts session debugging endpoints under /debug/. tsweb limits
// them to loopback and tailnet callers.
func (m *Manager) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.KVFunc("Serial session", func() any {
		s := m.Snapshot()
		if s.Port == "" {
			return s.State
		}
		return s.State + " (" + s.Port + ")"
	})

	debug.HandleFunc("session", "serial session state as JSON", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(m.Snapshot()); err != nil {
			http.Error(w, "failed to encode snapshot", http.StatusInternalServerError)
		}
	})

	// Forced release for an operator; it still queues behind an in-flight command.
	debug.HandleSilentFunc("session-release", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), m.opts.ReadWindow+time.Second)
		defer cancel()
		if err := m.Release(ctx); err != nil {
			http.Error(w, "timed out waiting for the in-flight command", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("serial session released\n"))
	})
}
