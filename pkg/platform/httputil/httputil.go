// Package httputil centralizes JSON response writing so every handler emits
// the same envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "chapel/pkg/domain-errors"
	"chapel/pkg/platform/sentinel"
)

// WriteJSON writes v with the given status. Encoding failures are ignored:
// the status line is already gone.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain or sentinel error into the JSON error
// envelope. Internal errors omit the description so store details never
// reach clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := ""
	var de *dErrors.Error
	if errors.As(err, &de) {
		message = de.Message
	} else if errors.Is(err, sentinel.ErrNotFound) {
		code = dErrors.CodeNotFound
		message = "not found"
	}

	body := map[string]string{"error": string(code)}
	if message != "" && code != dErrors.CodeInternal {
		body["error_description"] = message
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
