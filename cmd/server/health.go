package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ledgerreg/pkg/platform/httputil"
	"ledgerreg/pkg/platform/sentinel"
)

const healthTimeout = 2 * time.Second

// healthCheck checks one dependency the server cannot work without.
type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
	Failed string `json:"failed,omitempty"`
}

// checkHealth runs checks in order and reports the first failing dependency
// as sentinel.ErrUnavailable.
func checkHealth(ctx context.Context, checks []healthCheck) (string, error) {
	for _, c := range checks {
		if err := c.check(ctx); err != nil {
			return c.name, fmt.Errorf("%s: %w: %v", c.name, sentinel.ErrUnavailable, err)
		}
	}
	return "", nil
}

func healthHandler(log *slog.Logger, checks ...healthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if failed, err := checkHealth(ctx, checks); err != nil {
			log.WarnContext(ctx, "health check failed", "dependency", failed, "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Failed: failed})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
