package application

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
	"github.com/ericfisherdev/infraconfig/internal/domain/port/driven"
)

// ProviderToggle asks for one auth provider to be switched on or off.
type ProviderToggle struct {
	Provider model.AuthProvider  `json:"provider"`
	Status   model.ServiceStatus `json:"status"`
}

// EnableAndDisableSSO applies toggles to the allowed provider list. Every
// enable is checked against the configuration as it was when the call
// started, so the order of toggles within one call does not matter. The
// read and the write of the list share one transaction.
func (s *InfraConfigService) EnableAndDisableSSO(ctx context.Context, toggles []ProviderToggle) (err error) {
	defer observe("sso", time.Now(), &err)

	for _, t := range toggles {
		if !t.Provider.Valid() || !t.Status.Valid() {
			return fmt.Errorf("%w: invalid provider toggle %q=%q", ErrInvalidInput, t.Provider, t.Status)
		}
	}

	entries, written, err := s.mutateInTx(ctx, func(ctx context.Context, q driven.InfraConfigQueries) ([]ConfigEntry, error) {
		snapshot, err := s.configMap(ctx, q)
		if err != nil {
			return nil, err
		}

		providers, _ := parseAuthProviders(snapshot[model.ConfigAllowedAuthProviders])
		for _, t := range toggles {
			if t.Status == model.ServiceStatusDisable {
				providers = slices.DeleteFunc(providers, func(p model.AuthProvider) bool { return p == t.Provider })
				continue
			}
			if !IsServiceConfigured(t.Provider, snapshot) {
				return nil, fmt.Errorf("%w: %s", ErrServiceNotConfigured, t.Provider)
			}
			if !slices.Contains(providers, t.Provider) {
				providers = append(providers, t.Provider)
			}
		}
		if len(providers) == 0 {
			return nil, ErrAuthProviderNotSpecified
		}

		return []ConfigEntry{{Name: model.ConfigAllowedAuthProviders, Value: joinAuthProviders(providers)}}, nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, written, entries)
	s.restarter.Restart("auth providers changed")
	return nil
}

// EnableAndDisableSMTP switches the mailer on or off. Enabling requires the
// mail settings to be complete. Disabling also removes EMAIL from the
// allowed providers, which fails when it is the last one.
func (s *InfraConfigService) EnableAndDisableSMTP(ctx context.Context, status model.ServiceStatus) (err error) {
	defer observe("smtp", time.Now(), &err)

	if !status.Valid() {
		return fmt.Errorf("%w: invalid status %q", ErrInvalidInput, status)
	}

	entries, written, err := s.mutateInTx(ctx, func(ctx context.Context, q driven.InfraConfigQueries) ([]ConfigEntry, error) {
		snapshot, err := s.configMap(ctx, q)
		if err != nil {
			return nil, err
		}

		if status == model.ServiceStatusEnable {
			candidate := make(map[model.ConfigName]string, len(snapshot))
			for k, v := range snapshot {
				candidate[k] = v
			}
			candidate[model.ConfigMailerSMTPEnable] = "true"
			if !IsServiceConfigured(model.AuthProviderEmail, candidate) {
				return nil, fmt.Errorf("%w: %s", ErrServiceNotConfigured, model.AuthProviderEmail)
			}
			return []ConfigEntry{{Name: model.ConfigMailerSMTPEnable, Value: "true"}}, nil
		}

		entries := []ConfigEntry{{Name: model.ConfigMailerSMTPEnable, Value: "false"}}
		providers, _ := parseAuthProviders(snapshot[model.ConfigAllowedAuthProviders])
		if slices.Contains(providers, model.AuthProviderEmail) {
			providers = slices.DeleteFunc(providers, func(p model.AuthProvider) bool { return p == model.AuthProviderEmail })
			if len(providers) == 0 {
				return nil, ErrAuthProviderNotSpecified
			}
			entries = append(entries, ConfigEntry{Name: model.ConfigAllowedAuthProviders, Value: joinAuthProviders(providers)})
		}
		return entries, nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, written, entries)
	s.restarter.Restart("smtp " + string(status))
	return nil
}

// ToggleAnalyticsCollection sets the analytics opt-in and requests a restart.
func (s *InfraConfigService) ToggleAnalyticsCollection(ctx context.Context, status model.ServiceStatus) error {
	return s.setFlag(ctx, "analytics", model.ConfigAllowAnalyticsCollection, status, true)
}

// EnableAndDisableUserHistory sets the history store flag. It is read on
// demand, so no restart is needed.
func (s *InfraConfigService) EnableAndDisableUserHistory(ctx context.Context, status model.ServiceStatus) error {
	return s.setFlag(ctx, "user_history", model.ConfigUserHistoryStoreEnabled, status, false)
}

// CompleteFirstTimeSetup clears the first-run marker.
func (s *InfraConfigService) CompleteFirstTimeSetup(ctx context.Context) error {
	return s.setFlag(ctx, "first_time_setup", model.ConfigIsFirstTimeInfraSetup, model.ServiceStatusDisable, false)
}

func (s *InfraConfigService) setFlag(ctx context.Context, op string, name model.ConfigName, status model.ServiceStatus, restart bool) (err error) {
	defer observe(op, time.Now(), &err)

	if !status.Valid() {
		return fmt.Errorf("%w: invalid status %q", ErrInvalidInput, status)
	}

	entries, written, err := s.mutateInTx(ctx, func(context.Context, driven.InfraConfigQueries) ([]ConfigEntry, error) {
		return []ConfigEntry{{Name: name, Value: status.BoolString()}}, nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, written, entries)
	if restart {
		s.restarter.Restart(fmt.Sprintf("%s set to %s", name, status))
	}
	return nil
}

// mutateInTx runs plan inside a transaction and writes the entries it
// returns. Service errors from plan pass through unchanged; anything else is
// reported as ErrUpdateFailed.
func (s *InfraConfigService) mutateInTx(
	ctx context.Context,
	plan func(ctx context.Context, q driven.InfraConfigQueries) ([]ConfigEntry, error),
) ([]ConfigEntry, []model.InfraConfig, error) {
	var (
		entries []ConfigEntry
		written []model.InfraConfig
		planErr error
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, q driven.InfraConfigQueries) error {
		entries, planErr = plan(ctx, q)
		if planErr != nil {
			return planErr
		}
		var err error
		written, err = s.writeEntries(ctx, q, entries)
		return err
	})
	if planErr != nil && Code(planErr) != CodeInternal {
		return nil, nil, planErr
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}
	return entries, written, nil
}
