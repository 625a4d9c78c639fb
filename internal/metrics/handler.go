package metrics

import (
	"encoding/json"
	"net/http"
)

// Handler serves the current snapshot as JSON. The admin HTTP layer mounts
// it; this package does not own any routes.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := c.metrics.Snapshot()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}
