package api

import (
	"net/http"

	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/internal/service"
)

func (s *Server) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.Service.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	if accounts == nil {
		accounts = []model.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	acct, err := s.Service.GetAccount(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// CreateAccount generates the key unless the body names one or sets
// no_key. When the account is stored but the SSH sync fails, the error
// body carries the result in "data".
func (s *Server) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var in service.AccountInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err, nil)
		return
	}

	res, err := s.Service.CreateAccount(r.Context(), in)
	if err != nil {
		writeServiceError(w, err, partial(res))
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	var up service.AccountUpdate
	if err := decodeBody(r, &up); err != nil {
		writeServiceError(w, err, nil)
		return
	}

	res, err := s.Service.UpdateAccount(r.Context(), id, up)
	if err != nil {
		writeServiceError(w, err, partial(res))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteAccount removes an account. ?purge_key=true also deletes its key
// files.
func (s *Server) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}

	res, err := s.Service.DeleteAccount(r.Context(), id, service.DeleteOptions{
		PurgeKey: boolQuery(r, "purge_key"),
	})
	if err != nil {
		writeServiceError(w, err, partial(res))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) SyncSSHConfig(w http.ResponseWriter, r *http.Request) {
	if boolQuery(r, "dry_run") {
		plan, err := s.Service.PlanSSHConfig(r.Context())
		if err != nil {
			writeServiceError(w, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"result": plan.Result,
			"region": plan.Region,
		})
		return
	}

	res, err := s.Service.SyncSSHConfig(r.Context())
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) ImportSSHConfig(w http.ResponseWriter, r *http.Request) {
	res, err := s.Service.ImportSSHConfig(r.Context())
	if err != nil {
		writeServiceError(w, err, partial(res))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) TestConnection(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	res, err := s.Service.TestConnection(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
