// Package httptransport is the thin HTTP layer. Handlers decode,
// delegate to domain services, and encode; no business logic lives here.
package httptransport

import (
	"encoding/json"
	"net/http"

	"centralledger/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError centralizes domain error translation so every handler
// returns the same JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	writeJSON(w, statusFor(code), errorResponse{
		Error:   string(code),
		Message: err.Error(),
	})
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeValidation:
		return http.StatusBadRequest
	case errors.CodeDoubleSpend, errors.CodeConflict:
		return http.StatusConflict
	case errors.CodeComplianceBlocked:
		return http.StatusForbidden
	case errors.CodeUnauthorized:
		return http.StatusUnauthorized
	case errors.CodeUnreachable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON rejects malformed or unknown-field payloads before any
// service call.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, errors.CodeValidation, "malformed request body")
	}
	return nil
}
