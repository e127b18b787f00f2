package cli

import (
	"encoding/json"
	"io"

	"github.com/rileyhilliard/gitacct/internal/errors"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// ErrCodeUnknown is reported for errors that carry no code of their own.
// Structured errors keep theirs (NOT_FOUND, CONFLICT, ...).
const ErrCodeUnknown = "UNKNOWN"

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	env := JSONEnvelope{
		Success: true,
		Data:    data,
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONError writes an error response to the writer.
func WriteJSONError(w io.Writer, code, message, suggestion string, details interface{}) error {
	env := JSONEnvelope{
		Success: false,
		Error: &JSONError{
			Code:       code,
			Message:    message,
			Suggestion: suggestion,
			Details:    details,
		},
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	env := JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	}
	return writeJSONEnvelope(w, env)
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError. Structured errors keep
// their code and suggestion, and the cause goes into details.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var gaErr *errors.Error
	if errors.As(err, &gaErr) {
		out := &JSONError{
			Code:       gaErr.Code,
			Message:    gaErr.Message,
			Suggestion: gaErr.Suggestion,
		}
		if gaErr.Cause != nil {
			out.Details = map[string]interface{}{"cause": gaErr.Cause.Error()}
		}
		return out
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// partialError is an error whose command still produced a record worth
// reporting, like an account saved before the SSH sync failed.
type partialError struct {
	err  error
	data interface{}
}

func (e *partialError) Error() string { return e.err.Error() }
func (e *partialError) Unwrap() error { return e.err }

// withData attaches data to err for the JSON error envelope.
func withData(err error, data interface{}) error {
	if err == nil {
		return nil
	}
	return &partialError{err: err, data: data}
}

// writeJSONPartial writes err as an error envelope, carrying any data
// attached with withData.
func writeJSONPartial(w io.Writer, err error) error {
	jsonErr := ErrorToJSON(err)
	env := JSONEnvelope{Success: false, Error: jsonErr}
	var p *partialError
	if errors.As(err, &p) {
		env.Data = p.data
	}
	return writeJSONEnvelope(w, env)
}

// output prints data as a JSON envelope in machine mode, or calls human
// otherwise.
func output(w io.Writer, data interface{}, human func() error) error {
	if machineMode {
		return WriteJSONSuccess(w, data)
	}
	return human()
}
