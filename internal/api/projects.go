package api

import (
	"net/http"

	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/internal/service"
)

func (s *Server) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.Service.ListProjects(r.Context())
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	if projects == nil {
		projects = []model.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	p, err := s.Service.GetProject(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) CreateProject(w http.ResponseWriter, r *http.Request) {
	var in service.ProjectInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err, nil)
		return
	}
	p, err := s.Service.CreateProject(r.Context(), in)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	var up service.ProjectUpdate
	if err := decodeBody(r, &up); err != nil {
		writeServiceError(w, err, nil)
		return
	}
	p, err := s.Service.UpdateProject(r.Context(), id, up)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	if err := s.Service.DeleteProject(r.Context(), id); err != nil {
		writeServiceError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfigureProject points the project's remote and identity at an
// account. The body may name {"account_id": n}; otherwise the project's
// own account is used.
func (s *Server) ConfigureProject(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	var body struct {
		AccountID *int64 `json:"account_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, err, nil)
		return
	}

	p, err := s.Service.ConfigureProject(r.Context(), id, body.AccountID)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) ValidateProject(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	report, err := s.Service.ValidateProject(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) ValidateAll(w http.ResponseWriter, r *http.Request) {
	reports, err := s.Service.ValidateAll(r.Context())
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	if reports == nil {
		reports = []model.ValidationReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// ScanProjects walks {"root", "depth"} for repositories and, with
// "register", adds the ones not yet known.
func (s *Server) ScanProjects(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Root     string `json:"root"`
		Depth    int    `json:"depth"`
		Register bool   `json:"register"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, err, nil)
		return
	}
	res, err := s.Service.ScanProjects(r.Context(), body.Root, body.Depth, body.Register)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
