package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
	"github.com/ericfisherdev/infraconfig/internal/domain/port/driven"
)

// recoveryTokenBytes is the entropy of an onboarding recovery token.
const recoveryTokenBytes = 32

// OnboardingStatus reports whether setup has finished and whether it may be
// run again.
type OnboardingStatus struct {
	OnboardingCompleted bool `json:"onboardingCompleted"`
	CanReRunOnboarding  bool `json:"canReRunOnboarding"`
}

// GetOnboardingStatus reads the completion flag and the user count. Setup can
// be re-run whenever no user exists, whatever the flag says.
func (s *InfraConfigService) GetOnboardingStatus(ctx context.Context) (OnboardingStatus, error) {
	var status OnboardingStatus

	cfg, err := s.store.FindByName(ctx, model.ConfigOnboardingCompleted)
	switch {
	case errors.Is(err, driven.ErrInfraConfigNotFound):
	case err != nil:
		return OnboardingStatus{}, fmt.Errorf("get onboarding status: %w", err)
	default:
		value, err := s.reveal(cfg)
		if err != nil {
			return OnboardingStatus{}, err
		}
		status.OnboardingCompleted = value == "true"
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return OnboardingStatus{}, fmt.Errorf("count users: %w", err)
	}
	status.CanReRunOnboarding = count == 0
	return status, nil
}

// UpdateOnboardingConfig stores the values collected during setup, marks
// onboarding complete and returns a fresh recovery token. Every provider in
// the draft's VITE_ALLOWED_AUTH_PROVIDERS, and the mailer when the draft
// enables it, must be fully configured by the draft itself.
func (s *InfraConfigService) UpdateOnboardingConfig(ctx context.Context, draft map[string]string) (_ string, err error) {
	defer observe("onboarding_update", time.Now(), &err)

	status, err := s.GetOnboardingStatus(ctx)
	if err != nil {
		return "", err
	}
	if status.OnboardingCompleted && !status.CanReRunOnboarding {
		return "", fmt.Errorf("%w: onboarding already completed", ErrOperationNotAllowed)
	}

	values := make(map[model.ConfigName]string, len(draft)+2)
	for key, value := range draft {
		name, ok := model.ParseConfigName(key)
		if !ok {
			return "", &ValidationError{Name: name, Reason: "unknown config name"}
		}
		values[name] = value
	}

	token, err := generateSecureRandomHex(recoveryTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate recovery token: %w", err)
	}
	values[model.ConfigOnboardingCompleted] = "true"
	values[model.ConfigOnboardingRecoveryToken] = token

	entries := make([]ConfigEntry, 0, len(values))
	for _, name := range model.AllConfigNames {
		if value, ok := values[name]; ok {
			entries = append(entries, ConfigEntry{Name: name, Value: value})
		}
	}
	if err := validateEntries(entries); err != nil {
		s.logger.Warn("rejected onboarding config", "error", err)
		return "", err
	}

	if values[model.ConfigMailerSMTPEnable] == "true" && !IsServiceConfigured(model.AuthProviderEmail, values) {
		return "", fmt.Errorf("%w: %s", ErrServiceNotConfigured, model.AuthProviderEmail)
	}

	providers, ok := parseAuthProviders(values[model.ConfigAllowedAuthProviders])
	if !ok {
		return "", ErrAuthProviderNotSpecified
	}
	for _, p := range providers {
		if !IsServiceConfigured(p, values) {
			return "", fmt.Errorf("%w: %s", ErrServiceNotConfigured, p)
		}
	}

	if _, err := s.UpdateMany(ctx, entries, false); err != nil {
		return "", err
	}
	s.logger.Info("onboarding completed", "providers", joinAuthProviders(providers))
	return token, nil
}

// GetOnboardingConfig returns every config value except the derived
// signing secrets when token matches the stored recovery token. On a
// mismatch the same keys come back with nil values, so callers cannot discover
// which names exist.
func (s *InfraConfigService) GetOnboardingConfig(ctx context.Context, token string) (map[model.ConfigName]*string, error) {
	configs, err := s.GetAllConfigsAsMap(ctx)
	if err != nil {
		return nil, err
	}

	stored := configs[model.ConfigOnboardingRecoveryToken]
	match := token != "" && stored != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(stored)) == 1

	out := make(map[model.ConfigName]*string, len(configs))
	for name, value := range configs {
		if slices.Contains(derivedSecrets, name) {
			continue
		}
		if match {
			v := value
			out[name] = &v
		} else {
			out[name] = nil
		}
	}
	if !match {
		s.logger.Warn("onboarding config requested with invalid recovery token")
	}
	return out, nil
}

// generateSecureRandomHex produces a hex-encoded string of n random bytes.
func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}
