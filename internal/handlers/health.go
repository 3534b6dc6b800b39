package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Mena-E/transafe-7d-inspections-sub000/pkg/utils"
)

// Check reports the health of one dependency
type Check func(ctx context.Context) error

// Health runs every check with a short deadline and reports 503 if any fail
func Health(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		utils.RespondJSON(w, status, map[string]interface{}{
			"success": status == http.StatusOK,
			"data":    results,
		})
	}
}
