package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HandleHealth returns a handler for GET /health. With a nil pinger it only
// reports that the process is up.
func HandleHealth(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				writeJSON(w, r, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "database unreachable"})
				return
			}
		}
		writeJSON(w, r, http.StatusOK, map[string]bool{"ok": true})
	}
}
