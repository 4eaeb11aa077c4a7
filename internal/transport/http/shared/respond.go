// Package shared holds the JSON envelope helpers used by every handler.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "tradeledger/pkg/domain-errors"
	"tradeledger/pkg/requestcontext"
)

// Envelope is the success shape: the request id echoed next to the result.
type Envelope struct {
	RequestID string `json:"requestId"`
	Result    any    `json:"result"`
}

// ErrorBody is the failure shape.
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WriteResult writes a 200 envelope with the request id from the context.
func WriteResult(w http.ResponseWriter, r *http.Request, result any) {
	WriteJSON(w, http.StatusOK, Envelope{
		RequestID: requestcontext.RequestID(r.Context()),
		Result:    result,
	})
}

// WriteJSON writes any payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into its HTTP status and the failure
// envelope. Unknown errors become opaque 500s.
func WriteError(w http.ResponseWriter, err error) {
	status := dErrors.HTTPStatus(err)
	message := err.Error()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		message = "internal server error"
	}
	WriteJSON(w, status, ErrorBody{Success: false, Message: message})
}
