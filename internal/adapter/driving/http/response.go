package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/ericfisherdev/infraconfig/internal/application"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error","code":"internal_error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code, error code and message.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// statusForCode maps an application error code to an HTTP status.
func statusForCode(code string) int {
	switch code {
	case application.CodeNotFound:
		return http.StatusNotFound
	case application.CodeInvalidInput:
		return http.StatusBadRequest
	case application.CodeOperationNotAllowed:
		return http.StatusForbidden
	case application.CodeServiceNotConfigured, application.CodeAuthProviderNotSpecified:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ConfigRequest is one element of the batch update body.
type ConfigRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ConfigResponse is the JSON representation of a config value.
type ConfigResponse struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// UpdatedResponse lists the names written by a batch update.
type UpdatedResponse struct {
	Updated []string `json:"updated"`
}

// StatusRequest is the body of the single-service toggle endpoints.
type StatusRequest struct {
	Status string `json:"status"`
}

// AuthProvidersResponse lists the enabled login providers.
type AuthProvidersResponse struct {
	Providers []string `json:"providers"`
}

// TokenResponse carries the onboarding recovery token.
type TokenResponse struct {
	Token string `json:"token"`
}

func toConfigResponses(entries []application.ConfigEntry) []ConfigResponse {
	resp := make([]ConfigResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, ConfigResponse{Name: string(e.Name), Value: e.Value})
	}
	return resp
}
