package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// handleHealth handles health check requests. Any store failing its quick
// check turns the response into 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "fundpulse",
	}

	failing := map[string]string{}
	for _, db := range s.container.Databases() {
		if err := db.QuickCheck(r.Context()); err != nil {
			failing[db.Name()] = err.Error()
		}
	}
	if len(failing) > 0 {
		status = http.StatusServiceUnavailable
		response["status"] = "degraded"
		response["databases"] = failing
	}

	s.writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeEnvelope writes data in the {data, metadata} envelope used by the API.
func writeEnvelope(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}
