// Package api holds the HTTP middleware shared by every route.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/models"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheckHandler reports alive when the database answers a ping
func HealthCheckHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		alive := true
		if db != nil {
			ctx, cancel := WithQueryTimeout(r.Context())
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				zap.S().Errorw("health check ping failed", "error", err)
				alive = false
			}
		}
		if alive {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		b, _ := json.Marshal(models.HealthCheckResponse{Alive: alive})
		_, _ = w.Write(b)
	}
}
