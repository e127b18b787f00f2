package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rileyhilliard/gitacct/internal/errors"
)

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Detail     string `json:"detail"`
	Code       string `json:"code"`
	Suggestion string `json:"suggestion,omitempty"`
	// Data carries a partial result, e.g. an account that was stored
	// before the SSH config sync failed.
	Data interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // Client went away
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorBody{Detail: detail, Code: code})
}

// writeServiceError maps a structured error to its HTTP status. data, when
// non-nil, is returned alongside the error.
func writeServiceError(w http.ResponseWriter, err error, data interface{}) {
	body := errorBody{Detail: err.Error(), Code: errors.CodeOf(err), Data: data}
	var e *errors.Error
	if errors.As(err, &e) {
		body.Detail = e.Message
		if e.Cause != nil {
			body.Detail += ": " + e.Cause.Error()
		}
		body.Suggestion = e.Suggestion
	}
	if body.Code == "" {
		body.Code = "INTERNAL"
	}
	writeJSON(w, StatusFor(err), body)
}

// partial turns a possibly nil result into a nil interface, so it is
// omitted from error bodies.
func partial[T any](v *T) interface{} {
	if v == nil {
		return nil
	}
	return v
}

// StatusFor returns the HTTP status for an error's code.
func StatusFor(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrInvalid, errors.ErrConfig:
		return http.StatusBadRequest
	case errors.ErrConflict, errors.ErrInUse, errors.ErrKeyCollision, errors.ErrDuplicateHost:
		return http.StatusConflict
	case errors.ErrNotGitRepo, errors.ErrMalformedConfig:
		return http.StatusUnprocessableEntity
	case errors.ErrKeygenTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrLock:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrInvalid, "Invalid request body", "Send a JSON object.")
	}
	return nil
}

// idParam parses the {id} URL parameter.
func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(errors.ErrInvalid, "Invalid ID: "+raw, "IDs are positive integers.")
	}
	return id, nil
}

// boolQuery reads a boolean query parameter; anything unparsable is false.
func boolQuery(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
