package server

import (
	"fmt"
	"net/http"

	"imgvault/internal/api"
	"imgvault/internal/metrics"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.gatherer == nil {
		s.writeErrorReq(w, r, http.StatusNotImplemented, makeAPIError(http.StatusNotImplemented, "not_implemented", ErrCodeNotImplemented, fmt.Errorf("metrics are not enabled")))
		return
	}
	metrics.Handler(s.gatherer).ServeHTTP(w, r)
}
