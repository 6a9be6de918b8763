// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
	"github.com/ericfisherdev/infraconfig/internal/domain/port/driven"
	"github.com/ericfisherdev/infraconfig/internal/metrics"
)

// ConfigEntry is the externally visible form of a config value: decrypted
// and transformed, never ciphertext.
type ConfigEntry struct {
	Name  model.ConfigName `json:"name"`
	Value string           `json:"value"`
}

// DefaultSource provides the default value of every config name.
type DefaultSource interface {
	Values() map[model.ConfigName]string
}

// Cipher encrypts sensitive values before they reach the store.
type Cipher interface {
	model.Encrypter
	model.Decrypter
}

// fetchExcluded names are only readable through dedicated accessors.
var fetchExcluded = map[model.ConfigName]bool{
	model.ConfigAllowedAuthProviders:    true,
	model.ConfigAnalyticsUserID:         true,
	model.ConfigIsFirstTimeInfraSetup:   true,
	model.ConfigJWTSecret:               true,
	model.ConfigSessionSecret:           true,
	model.ConfigOnboardingRecoveryToken: true,
}

// updateExcluded names have dedicated mutation flows.
var updateExcluded = map[model.ConfigName]bool{
	model.ConfigAllowedAuthProviders:     true,
	model.ConfigAllowAnalyticsCollection: true,
	model.ConfigAnalyticsUserID:          true,
	model.ConfigIsFirstTimeInfraSetup:    true,
	model.ConfigMailerSMTPEnable:         true,
	model.ConfigUserHistoryStoreEnabled:  true,
	model.ConfigOnboardingCompleted:      true,
	model.ConfigOnboardingRecoveryToken:  true,
	model.ConfigJWTSecret:                true,
	model.ConfigSessionSecret:            true,
}

// nonResettable names keep their value across Reset. The derived secrets
// sign live sessions, so they are only ever changed by Initialize.
var nonResettable = map[model.ConfigName]bool{
	model.ConfigIsFirstTimeInfraSetup:    true,
	model.ConfigAllowAnalyticsCollection: true,
	model.ConfigAnalyticsUserID:          true,
	model.ConfigJWTSecret:                true,
	model.ConfigSessionSecret:            true,
}

// derivedSecrets are generated at startup when neither the environment nor
// the store supplies a value.
var derivedSecrets = []model.ConfigName{model.ConfigJWTSecret, model.ConfigSessionSecret}

// InfraConfigService owns the lifecycle of infra config values: seeding,
// validated reads and writes, toggles, onboarding and reset. It depends only
// on port interfaces.
type InfraConfigService struct {
	store     driven.InfraConfigStore
	users     driven.UserStore
	notifier  driven.ConfigNotifier
	restarter driven.Restarter
	cipher    Cipher
	defaults  DefaultSource
	logger    *slog.Logger
}

// NewInfraConfigService creates a new InfraConfigService with the required dependencies.
func NewInfraConfigService(
	store driven.InfraConfigStore,
	users driven.UserStore,
	notifier driven.ConfigNotifier,
	restarter driven.Restarter,
	cipher Cipher,
	defaults DefaultSource,
	logger *slog.Logger,
) *InfraConfigService {
	return &InfraConfigService{
		store:     store,
		users:     users,
		notifier:  notifier,
		restarter: restarter,
		cipher:    cipher,
		defaults:  defaults,
		logger:    logger,
	}
}

// observe records the outcome of a service operation. Call it deferred with
// a pointer to the named error result.
func observe(op string, start time.Time, err *error) {
	status := metrics.StatusSuccess
	if *err != nil {
		status = metrics.StatusError
	}
	metrics.ConfigOperationsTotal.WithLabelValues(op, status).Inc()
	metrics.ConfigOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ValidateEnvValues checks the default set against the rule table. Empty
// values mean "not configured" and are skipped.
func (s *InfraConfigService) ValidateEnvValues() error {
	defaults := s.defaults.Values()
	for _, name := range model.AllConfigNames {
		value := defaults[name]
		if value == "" {
			continue
		}
		if err := validateValue(name, value); err != nil {
			s.logger.Error("invalid environment value", "name", name, "error", err)
			return fmt.Errorf("environment value: %w", err)
		}
	}
	return nil
}

// Initialize seeds missing rows, encrypts sensitive rows stored as plaintext
// and reconciles derived secrets, all in one transaction. A restart is
// requested when any of that changed the store.
//
// An unreachable database is logged and ignored so the process can start
// before the database is provisioned. A missing table is fatal.
func (s *InfraConfigService) Initialize(ctx context.Context) (err error) {
	defer observe("initialize", time.Now(), &err)

	defaults := s.defaults.Values()

	var changed bool
	err = s.store.WithinTx(ctx, func(ctx context.Context, q driven.InfraConfigQueries) error {
		existing, err := q.FindAll(ctx)
		if err != nil {
			return fmt.Errorf("load infra configs: %w", err)
		}

		inserted, err := s.insertMissing(ctx, q, existing, defaults)
		if err != nil {
			return err
		}
		encrypted, err := s.encryptPlaintextSecrets(ctx, q, existing)
		if err != nil {
			return err
		}
		derived, err := s.syncDerivedSecrets(ctx, q, defaults)
		if err != nil {
			return err
		}

		changed = inserted > 0 || encrypted > 0 || derived > 0
		if changed {
			s.logger.Info("infra config initialized",
				"inserted", inserted,
				"encrypted", encrypted,
				"derived", derived,
			)
		}
		return nil
	})

	switch {
	case errors.Is(err, driven.ErrDatabaseUnreachable):
		s.logger.Warn("database unreachable, skipping infra config initialization", "error", err)
		return nil
	case errors.Is(err, driven.ErrTableMissing):
		return fmt.Errorf("initialize infra config: schema not migrated: %w", err)
	case err != nil:
		return fmt.Errorf("initialize infra config: %w", err)
	}

	if changed {
		s.restarter.Restart("infra config initialized")
	}
	return nil
}

func (s *InfraConfigService) insertMissing(ctx context.Context, q driven.InfraConfigQueries, existing []model.InfraConfig, defaults map[model.ConfigName]string) (int, error) {
	present := make(map[model.ConfigName]bool, len(existing))
	for _, cfg := range existing {
		present[cfg.Name] = true
	}

	var missing []model.InfraConfig
	for _, name := range model.AllConfigNames {
		if present[name] {
			continue
		}
		value, err := model.SealValue(name, defaults[name], s.cipher)
		if err != nil {
			return 0, fmt.Errorf("encrypt %s: %w", name, err)
		}
		missing = append(missing, model.InfraConfig{Name: name, Value: value})
	}
	if len(missing) == 0 {
		return 0, nil
	}

	if err := q.InsertMany(ctx, missing); err != nil {
		return 0, fmt.Errorf("insert missing infra configs: %w", err)
	}
	metrics.ConfigValuesWritten.Add(float64(len(missing)))
	return len(missing), nil
}

func (s *InfraConfigService) encryptPlaintextSecrets(ctx context.Context, q driven.InfraConfigQueries, existing []model.InfraConfig) (int, error) {
	var n int
	for _, cfg := range existing {
		if !cfg.Name.Sensitive() || cfg.Value.IsEncrypted() {
			continue
		}
		plaintext, _ := cfg.Value.Stored()
		sealed, err := model.SealValue(cfg.Name, plaintext, s.cipher)
		if err != nil {
			return 0, fmt.Errorf("encrypt %s: %w", cfg.Name, err)
		}
		if _, err := q.UpdateByName(ctx, cfg.Name, sealed); err != nil {
			return 0, fmt.Errorf("re-encrypt %s: %w", cfg.Name, err)
		}
		n++
	}
	metrics.ConfigValuesWritten.Add(float64(n))
	return n, nil
}

// syncDerivedSecrets sets each derived secret to the environment value when
// one is given, keeps a non-empty stored value otherwise, and generates a
// fresh secret as a last resort.
func (s *InfraConfigService) syncDerivedSecrets(ctx context.Context, q driven.InfraConfigQueries, defaults map[model.ConfigName]string) (int, error) {
	var n int
	for _, name := range derivedSecrets {
		current := ""
		cfg, err := q.FindByName(ctx, name)
		switch {
		case errors.Is(err, driven.ErrInfraConfigNotFound):
		case err != nil:
			return 0, fmt.Errorf("load %s: %w", name, err)
		default:
			current, err = cfg.Value.Reveal(s.cipher)
			if err != nil {
				return 0, fmt.Errorf("%w: %s: %w", ErrCorrupted, name, err)
			}
		}

		desired := defaults[name]
		if desired == "" {
			desired = current
		}
		if desired == "" {
			desired, err = generateSecureRandomHex(32)
			if err != nil {
				return 0, fmt.Errorf("generate %s: %w", name, err)
			}
		}
		if cfg.Name != "" && desired == current {
			continue
		}

		sealed, err := model.SealValue(name, desired, s.cipher)
		if err != nil {
			return 0, fmt.Errorf("encrypt %s: %w", name, err)
		}
		if cfg.Name == "" {
			err = q.InsertMany(ctx, []model.InfraConfig{{Name: name, Value: sealed}})
		} else {
			_, err = q.UpdateByName(ctx, name, sealed)
		}
		if err != nil {
			return 0, fmt.Errorf("store %s: %w", name, err)
		}
		n++
	}
	metrics.ConfigValuesWritten.Add(float64(n))
	return n, nil
}

// Get returns one config value, decrypted. USER_HISTORY_STORE_ENABLED is
// reported as ENABLE or DISABLE.
func (s *InfraConfigService) Get(ctx context.Context, name model.ConfigName) (_ ConfigEntry, err error) {
	defer observe("get", time.Now(), &err)

	if !name.Valid() {
		return ConfigEntry{}, &ValidationError{Name: name, Reason: "unknown config name"}
	}

	cfg, err := s.store.FindByName(ctx, name)
	if errors.Is(err, driven.ErrInfraConfigNotFound) {
		return ConfigEntry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return ConfigEntry{}, fmt.Errorf("get %s: %w", name, err)
	}

	value, err := s.reveal(cfg)
	if err != nil {
		return ConfigEntry{}, err
	}
	if name == model.ConfigUserHistoryStoreEnabled {
		value = string(model.ServiceStatusFromFlag(value))
	}
	return ConfigEntry{Name: name, Value: value}, nil
}

// GetMany returns the decrypted values of names that exist. With
// enforceAllowlist set, names reserved for dedicated accessors are refused.
func (s *InfraConfigService) GetMany(ctx context.Context, names []model.ConfigName, enforceAllowlist bool) (_ []ConfigEntry, err error) {
	defer observe("get_many", time.Now(), &err)

	for _, name := range names {
		if !name.Valid() {
			return nil, &ValidationError{Name: name, Reason: "unknown config name"}
		}
		if enforceAllowlist && fetchExcluded[name] {
			return nil, fmt.Errorf("%w: %s cannot be fetched directly", ErrOperationNotAllowed, name)
		}
	}

	configs, err := s.store.FindByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("get infra configs: %w", err)
	}

	entries := make([]ConfigEntry, 0, len(configs))
	for _, cfg := range configs {
		value, err := s.reveal(cfg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ConfigEntry{Name: cfg.Name, Value: value})
	}
	return entries, nil
}

// GetAllConfigsAsMap returns every stored value, decrypted, keyed by name.
func (s *InfraConfigService) GetAllConfigsAsMap(ctx context.Context) (map[model.ConfigName]string, error) {
	return s.configMap(ctx, s.store)
}

func (s *InfraConfigService) configMap(ctx context.Context, q driven.InfraConfigQueries) (map[model.ConfigName]string, error) {
	configs, err := q.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load infra configs: %w", err)
	}

	out := make(map[model.ConfigName]string, len(configs))
	for _, cfg := range configs {
		value, err := s.reveal(cfg)
		if err != nil {
			return nil, err
		}
		out[cfg.Name] = value
	}
	return out, nil
}

func (s *InfraConfigService) reveal(cfg model.InfraConfig) (string, error) {
	value, err := cfg.Value.Reveal(s.cipher)
	if err != nil {
		s.logger.Error("decrypt infra config", "name", cfg.Name, "error", err)
		return "", fmt.Errorf("%w: %s: %w", ErrCorrupted, cfg.Name, err)
	}
	return value, nil
}

// GetAllowedAuthProviders returns the enabled login methods.
func (s *InfraConfigService) GetAllowedAuthProviders(ctx context.Context) ([]model.AuthProvider, error) {
	cfg, err := s.store.FindByName(ctx, model.ConfigAllowedAuthProviders)
	if errors.Is(err, driven.ErrInfraConfigNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, model.ConfigAllowedAuthProviders)
	}
	if err != nil {
		return nil, fmt.Errorf("get allowed auth providers: %w", err)
	}

	value, err := s.reveal(cfg)
	if err != nil {
		return nil, err
	}
	providers, ok := parseAuthProviders(value)
	if !ok {
		return nil, fmt.Errorf("%w: stored provider list %q", ErrCorrupted, value)
	}
	return providers, nil
}

// IsUserHistoryEnabled reports whether user history storage is switched on.
func (s *InfraConfigService) IsUserHistoryEnabled(ctx context.Context) (bool, error) {
	entry, err := s.Get(ctx, model.ConfigUserHistoryStoreEnabled)
	if err != nil {
		return false, err
	}
	return entry.Value == string(model.ServiceStatusEnable), nil
}

// IsFirstTimeInfraSetup reports whether the first-run marker is still set.
// A missing row counts as first run.
func (s *InfraConfigService) IsFirstTimeInfraSetup(ctx context.Context) (bool, error) {
	entry, err := s.Get(ctx, model.ConfigIsFirstTimeInfraSetup)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return entry.Value == "true", nil
}

// Update validates and writes a single value. The restart flag asks for a
// process restart once the write has committed.
func (s *InfraConfigService) Update(ctx context.Context, name model.ConfigName, value string, restart bool) (_ ConfigEntry, err error) {
	defer observe("update", time.Now(), &err)

	if err := validateValue(name, value); err != nil {
		s.logger.Warn("rejected infra config value", "name", name, "error", err)
		return ConfigEntry{}, err
	}

	entries := []ConfigEntry{{Name: name, Value: value}}
	var written []model.InfraConfig
	err = s.store.WithinTx(ctx, func(ctx context.Context, q driven.InfraConfigQueries) error {
		var err error
		written, err = s.writeEntries(ctx, q, entries)
		return err
	})
	if err != nil {
		return ConfigEntry{}, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	s.publish(ctx, written, entries)
	if restart {
		s.restarter.Restart("infra config updated: " + string(name))
	}
	return entries[0], nil
}

// UpdateMany validates the whole batch, then writes it in one transaction
// and requests a restart. With enforceAllowlist set, names that have a
// dedicated mutation flow are refused.
func (s *InfraConfigService) UpdateMany(ctx context.Context, entries []ConfigEntry, enforceAllowlist bool) (_ []ConfigEntry, err error) {
	defer observe("update_many", time.Now(), &err)

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries to update", ErrInvalidInput)
	}
	if enforceAllowlist {
		for _, e := range entries {
			if updateExcluded[e.Name] {
				return nil, fmt.Errorf("%w: %s cannot be updated directly", ErrOperationNotAllowed, e.Name)
			}
		}
	}
	if err := validateEntries(entries); err != nil {
		s.logger.Warn("rejected infra config batch", "error", err)
		return nil, err
	}

	var written []model.InfraConfig
	err = s.store.WithinTx(ctx, func(ctx context.Context, q driven.InfraConfigQueries) error {
		var err error
		written, err = s.writeEntries(ctx, q, entries)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	s.publish(ctx, written, entries)
	s.restarter.Restart("infra configs updated")
	return entries, nil
}

// writeEntries stores each entry, encrypting when the row is already
// encrypted or the name is sensitive. It does not validate.
func (s *InfraConfigService) writeEntries(ctx context.Context, q driven.InfraConfigQueries, entries []ConfigEntry) ([]model.InfraConfig, error) {
	written := make([]model.InfraConfig, 0, len(entries))
	for _, e := range entries {
		current, err := q.FindByName(ctx, e.Name)
		if errors.Is(err, driven.ErrInfraConfigNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, e.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", e.Name, err)
		}

		value := model.PlainValue(e.Value)
		if current.Value.IsEncrypted() || e.Name.Sensitive() {
			ciphertext, err := s.cipher.Encrypt(e.Value)
			if err != nil {
				return nil, fmt.Errorf("encrypt %s: %w", e.Name, err)
			}
			value = model.EncryptedValue(ciphertext)
		}

		updated, err := q.UpdateByName(ctx, e.Name, value)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", e.Name, err)
		}
		written = append(written, updated)
	}
	metrics.ConfigValuesWritten.Add(float64(len(written)))
	return written, nil
}

// publish announces each written row. Values of encrypted rows are left
// out of the payload.
func (s *InfraConfigService) publish(ctx context.Context, written []model.InfraConfig, entries []ConfigEntry) {
	plaintext := make(map[model.ConfigName]string, len(entries))
	for _, e := range entries {
		plaintext[e.Name] = e.Value
	}

	for _, cfg := range written {
		update := driven.ConfigUpdate{Name: string(cfg.Name), Encrypted: cfg.Value.IsEncrypted()}
		if !update.Encrypted {
			update.Value = plaintext[cfg.Name]
		}
		s.notifier.Publish(ctx, cfg.Name.Topic(), update)
	}
}

// Reset restores every resettable name to its default in one transaction
// and requests a restart.
func (s *InfraConfigService) Reset(ctx context.Context) (err error) {
	defer observe("reset", time.Now(), &err)

	defaults := s.defaults.Values()

	var (
		names   []model.ConfigName
		entries []ConfigEntry
		rows    []model.InfraConfig
	)
	for _, name := range model.AllConfigNames {
		if nonResettable[name] {
			continue
		}
		value, err := model.SealValue(name, defaults[name], s.cipher)
		if err != nil {
			return fmt.Errorf("%w: encrypt %s: %w", ErrResetFailed, name, err)
		}
		names = append(names, name)
		entries = append(entries, ConfigEntry{Name: name, Value: defaults[name]})
		rows = append(rows, model.InfraConfig{Name: name, Value: value})
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, q driven.InfraConfigQueries) error {
		if err := q.DeleteByNames(ctx, names); err != nil {
			return err
		}
		return q.InsertMany(ctx, rows)
	})
	if err != nil {
		s.logger.Error("reset infra configs", "error", err)
		return fmt.Errorf("%w: %w", ErrResetFailed, err)
	}
	metrics.ConfigValuesWritten.Add(float64(len(rows)))

	s.logger.Info("infra configs reset", "count", len(rows))
	s.publish(ctx, rows, entries)
	s.restarter.Restart("infra configs reset")
	return nil
}
