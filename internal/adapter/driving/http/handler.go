package httphandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/infraconfig/internal/application"
	"github.com/ericfisherdev/infraconfig/internal/domain/model"
)

// ConfigService is the subset of the application service the API drives.
type ConfigService interface {
	GetMany(ctx context.Context, names []model.ConfigName, enforceAllowlist bool) ([]application.ConfigEntry, error)
	UpdateMany(ctx context.Context, entries []application.ConfigEntry, enforceAllowlist bool) ([]application.ConfigEntry, error)
	Reset(ctx context.Context) error
	GetAllowedAuthProviders(ctx context.Context) ([]model.AuthProvider, error)
	EnableAndDisableSSO(ctx context.Context, toggles []application.ProviderToggle) error
	EnableAndDisableSMTP(ctx context.Context, status model.ServiceStatus) error
	ToggleAnalyticsCollection(ctx context.Context, status model.ServiceStatus) error
	EnableAndDisableUserHistory(ctx context.Context, status model.ServiceStatus) error
	GetOnboardingStatus(ctx context.Context) (application.OnboardingStatus, error)
	UpdateOnboardingConfig(ctx context.Context, draft map[string]string) (string, error)
	GetOnboardingConfig(ctx context.Context, token string) (map[model.ConfigName]*string, error)
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	svc    ConfigService
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(svc ConfigService, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with metrics, logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("GET /api/v1/infra-configs", h.GetConfigs)
	mux.HandleFunc("PUT /api/v1/infra-configs", h.UpdateConfigs)
	mux.HandleFunc("POST /api/v1/infra-configs/reset", h.ResetConfigs)
	mux.HandleFunc("GET /api/v1/infra-configs/auth-providers", h.ListAuthProviders)
	mux.HandleFunc("PUT /api/v1/infra-configs/sso", h.ToggleSSO)
	mux.HandleFunc("PUT /api/v1/infra-configs/smtp", h.toggle(h.svc.EnableAndDisableSMTP))
	mux.HandleFunc("PUT /api/v1/infra-configs/analytics", h.toggle(h.svc.ToggleAnalyticsCollection))
	mux.HandleFunc("PUT /api/v1/infra-configs/user-history", h.toggle(h.svc.EnableAndDisableUserHistory))

	mux.HandleFunc("GET /api/v1/onboarding/status", h.OnboardingStatus)
	mux.HandleFunc("POST /api/v1/onboarding/config", h.SubmitOnboardingConfig)
	mux.HandleFunc("GET /api/v1/onboarding/config", h.GetOnboardingConfig)

	mux.Handle("GET /metrics", promhttp.Handler())

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = metricsMiddleware(wrapped)

	return wrapped
}

// Health reports that the process is serving requests.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetConfigs returns the values named in the comma-separated names query parameter.
func (h *Handler) GetConfigs(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("names")
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, application.CodeInvalidInput, "names query parameter is required")
		return
	}

	var names []model.ConfigName
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, model.ConfigName(part))
		}
	}

	entries, err := h.svc.GetMany(r.Context(), names, true)
	if err != nil {
		h.writeServiceError(w, "get infra configs", err)
		return
	}

	writeJSON(w, http.StatusOK, toConfigResponses(entries))
}

// UpdateConfigs writes a batch of name/value pairs.
func (h *Handler) UpdateConfigs(w http.ResponseWriter, r *http.Request) {
	var req []ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, application.CodeInvalidInput, "invalid request body")
		return
	}

	entries := make([]application.ConfigEntry, 0, len(req))
	for _, c := range req {
		entries = append(entries, application.ConfigEntry{Name: model.ConfigName(c.Name), Value: c.Value})
	}

	updated, err := h.svc.UpdateMany(r.Context(), entries, true)
	if err != nil {
		h.writeServiceError(w, "update infra configs", err)
		return
	}

	names := make([]string, 0, len(updated))
	for _, e := range updated {
		names = append(names, string(e.Name))
	}
	writeJSON(w, http.StatusOK, UpdatedResponse{Updated: names})
}

// ResetConfigs restores every resettable value to its default.
func (h *Handler) ResetConfigs(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context()); err != nil {
		h.writeServiceError(w, "reset infra configs", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAuthProviders returns the providers users may currently log in with.
func (h *Handler) ListAuthProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.svc.GetAllowedAuthProviders(r.Context())
	if err != nil {
		h.writeServiceError(w, "list auth providers", err)
		return
	}

	resp := make([]string, 0, len(providers))
	for _, p := range providers {
		resp = append(resp, string(p))
	}
	writeJSON(w, http.StatusOK, AuthProvidersResponse{Providers: resp})
}

// ToggleSSO enables and disables login providers in one call.
func (h *Handler) ToggleSSO(w http.ResponseWriter, r *http.Request) {
	var toggles []application.ProviderToggle
	if err := json.NewDecoder(r.Body).Decode(&toggles); err != nil {
		writeError(w, http.StatusBadRequest, application.CodeInvalidInput, "invalid request body")
		return
	}

	if err := h.svc.EnableAndDisableSSO(r.Context(), toggles); err != nil {
		h.writeServiceError(w, "toggle sso", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// toggle adapts a single ENABLE/DISABLE operation to a handler reading {"status": ...}.
func (h *Handler) toggle(op func(context.Context, model.ServiceStatus) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, application.CodeInvalidInput, "invalid request body")
			return
		}

		if err := op(r.Context(), model.ServiceStatus(req.Status)); err != nil {
			h.writeServiceError(w, "toggle "+r.URL.Path, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// OnboardingStatus reports whether first-run setup is done and can be repeated.
func (h *Handler) OnboardingStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.GetOnboardingStatus(r.Context())
	if err != nil {
		h.writeServiceError(w, "get onboarding status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// SubmitOnboardingConfig stores the setup draft and returns the recovery token.
func (h *Handler) SubmitOnboardingConfig(w http.ResponseWriter, r *http.Request) {
	var draft map[string]string
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, application.CodeInvalidInput, "invalid request body")
		return
	}

	token, err := h.svc.UpdateOnboardingConfig(r.Context(), draft)
	if err != nil {
		h.writeServiceError(w, "submit onboarding config", err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// GetOnboardingConfig returns the stored setup values for a recovery token.
func (h *Handler) GetOnboardingConfig(w http.ResponseWriter, r *http.Request) {
	configs, err := h.svc.GetOnboardingConfig(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.writeServiceError(w, "get onboarding config", err)
		return
	}
	writeJSON(w, http.StatusOK, configs)
}

// writeServiceError maps a service error to its status and code. Internal
// failures are logged and reported without detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	code := application.Code(err)
	status := statusForCode(code)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "op", op, "code", code, "error", err)
		writeError(w, status, code, "internal server error")
		return
	}
	writeError(w, status, code, err.Error())
}
