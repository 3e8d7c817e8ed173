// internal/api/response.go
package api

import (
	"encoding/json"
	"net/http"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

// ErrorBody is the JSON shape of every non-2xx response.
type ErrorBody struct {
	Error string      `json:"error"`
	Code  domain.Code `json:"code,omitempty"`
	Kind  string      `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	body := ErrorBody{Error: err.Error(), Code: domain.CodeOf(err)}
	if k := domain.KindOf(err); k != 0 {
		body.Kind = k.String()
	}
	writeJSON(w, statusOf(err), body)
}

func badRequest(w http.ResponseWriter, code domain.Code, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorBody{Error: msg, Code: code, Kind: domain.KindValidation.String()})
}

// statusOf maps a rejection to an HTTP status.
func statusOf(err error) int {
	if domain.CodeOf(err) == domain.CodeUnknownLaunch {
		return http.StatusNotFound
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindPrecondition, domain.KindSlippage:
		return http.StatusConflict
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindLedger:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
