package api

import (
	"net/http"
	"strings"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/model"
)

type accountTypeBody struct {
	Name string `json:"name"`
}

func (b accountTypeBody) validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return errors.New(errors.ErrInvalid, "Account type name is required", "")
	}
	return nil
}

func (s *Server) ListAccountTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.Service.ListAccountTypes(r.Context())
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	if types == nil {
		types = []model.AccountType{}
	}
	writeJSON(w, http.StatusOK, types)
}

func (s *Server) GetAccountType(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	t, err := s.Service.GetAccountType(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) CreateAccountType(w http.ResponseWriter, r *http.Request) {
	var body accountTypeBody
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, err, nil)
		return
	}
	if err := body.validate(); err != nil {
		writeServiceError(w, err, nil)
		return
	}

	t, err := s.Service.CreateAccountType(r.Context(), body.Name)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) RenameAccountType(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	var body accountTypeBody
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, err, nil)
		return
	}
	if err := body.validate(); err != nil {
		writeServiceError(w, err, nil)
		return
	}

	t, err := s.Service.RenameAccountType(r.Context(), id, body.Name)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteAccountType refuses types still used by an account.
func (s *Server) DeleteAccountType(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	if err := s.Service.DeleteAccountType(r.Context(), id); err != nil {
		writeServiceError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
