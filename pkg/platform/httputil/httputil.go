// Package httputil writes JSON responses and maps domain errors onto them.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "ledgerreg/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies read by DecodeJSON.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err's code onto a status. Internal errors carry no
// description so storage details never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorReason(w, err, "")
}

// WriteErrorReason is WriteError with a machine-readable rejection reason.
func WriteErrorReason(w http.ResponseWriter, err error, reason string) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code), Reason: reason}
	if code != dErrors.CodeInternal {
		resp.Description = err.Error()
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// DecodeJSON reads one JSON value from r's body into v. Unknown fields and
// trailing data are rejected.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return dErrors.New(dErrors.CodeBadRequest, "request body must contain a single JSON object")
	}
	return nil
}
