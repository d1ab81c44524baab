package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/msomdec/library-api/internal/domain"
)

const healthPingTimeout = 2 * time.Second

// HandleHealthz reports whether the store answers a ping.
func HandleHealthz(db domain.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			slog.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
