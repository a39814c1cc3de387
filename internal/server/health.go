// health.go - Liveness endpoint.
package server

import "net/http"

func (cfg Config) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": cfg.Build.Version,
			"commit":  cfg.Build.Commit,
		})
	}
}
