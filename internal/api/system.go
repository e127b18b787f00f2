package api

import (
	"net/http"

	"github.com/rileyhilliard/gitacct/internal/doctor"
)

// HealthCheck reports the API is up and whether the database answers.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if err := s.Service.Store.Ping(r.Context()); err != nil {
		dbStatus = "disconnected"
	}

	status := "ok"
	if dbStatus != "connected" {
		status = "unhealthy"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   status,
		"service":  "gitacct",
		"version":  s.Version,
		"database": dbStatus,
	})
}

// CheckPrerequisites reports which required tools are installed.
func (s *Server) CheckPrerequisites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, doctor.CheckPrerequisites(r.Context(), s.Runner))
}
