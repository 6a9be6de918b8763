package model

import "time"

// ConfigName identifies one infrastructure configuration value. The set of
// names is closed; ParseConfigName rejects anything not listed here.
type ConfigName string

const (
	ConfigGoogleClientID     ConfigName = "GOOGLE_CLIENT_ID"
	ConfigGoogleClientSecret ConfigName = "GOOGLE_CLIENT_SECRET"
	ConfigGoogleCallbackURL  ConfigName = "GOOGLE_CALLBACK_URL"
	ConfigGoogleScope        ConfigName = "GOOGLE_SCOPE"

	ConfigGitHubClientID     ConfigName = "GITHUB_CLIENT_ID"
	ConfigGitHubClientSecret ConfigName = "GITHUB_CLIENT_SECRET"
	ConfigGitHubCallbackURL  ConfigName = "GITHUB_CALLBACK_URL"
	ConfigGitHubScope        ConfigName = "GITHUB_SCOPE"

	ConfigMicrosoftClientID     ConfigName = "MICROSOFT_CLIENT_ID"
	ConfigMicrosoftClientSecret ConfigName = "MICROSOFT_CLIENT_SECRET"
	ConfigMicrosoftCallbackURL  ConfigName = "MICROSOFT_CALLBACK_URL"
	ConfigMicrosoftScope        ConfigName = "MICROSOFT_SCOPE"
	ConfigMicrosoftTenant       ConfigName = "MICROSOFT_TENANT"

	ConfigMailerSMTPEnable            ConfigName = "MAILER_SMTP_ENABLE"
	ConfigMailerUseCustomConfigs      ConfigName = "MAILER_USE_CUSTOM_CONFIGS"
	ConfigMailerSMTPURL               ConfigName = "MAILER_SMTP_URL"
	ConfigMailerAddressFrom           ConfigName = "MAILER_ADDRESS_FROM"
	ConfigMailerSMTPHost              ConfigName = "MAILER_SMTP_HOST"
	ConfigMailerSMTPPort              ConfigName = "MAILER_SMTP_PORT"
	ConfigMailerSMTPSecure            ConfigName = "MAILER_SMTP_SECURE"
	ConfigMailerSMTPUser              ConfigName = "MAILER_SMTP_USER"
	ConfigMailerSMTPPassword          ConfigName = "MAILER_SMTP_PASSWORD"
	ConfigMailerTLSRejectUnauthorized ConfigName = "MAILER_TLS_REJECT_UNAUTHORIZED"

	ConfigAllowedAuthProviders     ConfigName = "VITE_ALLOWED_AUTH_PROVIDERS"
	ConfigAllowAnalyticsCollection ConfigName = "ALLOW_ANALYTICS_COLLECTION"
	ConfigAnalyticsUserID          ConfigName = "ANALYTICS_USER_ID"
	ConfigIsFirstTimeInfraSetup    ConfigName = "IS_FIRST_TIME_INFRA_SETUP"
	ConfigUserHistoryStoreEnabled  ConfigName = "USER_HISTORY_STORE_ENABLED"

	ConfigJWTSecret              ConfigName = "JWT_SECRET"
	ConfigSessionSecret          ConfigName = "SESSION_SECRET"
	ConfigTokenSaltComplexity    ConfigName = "TOKEN_SALT_COMPLEXITY"
	ConfigMagicLinkTokenValidity ConfigName = "MAGIC_LINK_TOKEN_VALIDITY"
	ConfigRefreshTokenValidity   ConfigName = "REFRESH_TOKEN_VALIDITY"
	ConfigAccessTokenValidity    ConfigName = "ACCESS_TOKEN_VALIDITY"
	ConfigAllowSecureCookies     ConfigName = "ALLOW_SECURE_COOKIES"
	ConfigRateLimitTTL           ConfigName = "RATE_LIMIT_TTL"
	ConfigRateLimitMax           ConfigName = "RATE_LIMIT_MAX"

	ConfigOnboardingCompleted     ConfigName = "ONBOARDING_COMPLETED"
	ConfigOnboardingRecoveryToken ConfigName = "ONBOARDING_RECOVERY_TOKEN"
)

// AllConfigNames lists every known name in a stable order.
var AllConfigNames = []ConfigName{
	ConfigGoogleClientID, ConfigGoogleClientSecret, ConfigGoogleCallbackURL, ConfigGoogleScope,
	ConfigGitHubClientID, ConfigGitHubClientSecret, ConfigGitHubCallbackURL, ConfigGitHubScope,
	ConfigMicrosoftClientID, ConfigMicrosoftClientSecret, ConfigMicrosoftCallbackURL,
	ConfigMicrosoftScope, ConfigMicrosoftTenant,
	ConfigMailerSMTPEnable, ConfigMailerUseCustomConfigs, ConfigMailerSMTPURL, ConfigMailerAddressFrom,
	ConfigMailerSMTPHost, ConfigMailerSMTPPort, ConfigMailerSMTPSecure, ConfigMailerSMTPUser,
	ConfigMailerSMTPPassword, ConfigMailerTLSRejectUnauthorized,
	ConfigAllowedAuthProviders, ConfigAllowAnalyticsCollection, ConfigAnalyticsUserID,
	ConfigIsFirstTimeInfraSetup, ConfigUserHistoryStoreEnabled,
	ConfigJWTSecret, ConfigSessionSecret, ConfigTokenSaltComplexity, ConfigMagicLinkTokenValidity,
	ConfigRefreshTokenValidity, ConfigAccessTokenValidity, ConfigAllowSecureCookies,
	ConfigRateLimitTTL, ConfigRateLimitMax,
	ConfigOnboardingCompleted, ConfigOnboardingRecoveryToken,
}

var knownConfigNames = func() map[ConfigName]bool {
	m := make(map[ConfigName]bool, len(AllConfigNames))
	for _, n := range AllConfigNames {
		m[n] = true
	}
	return m
}()

// sensitiveConfigNames are always persisted as ciphertext.
var sensitiveConfigNames = map[ConfigName]bool{
	ConfigGoogleClientSecret:      true,
	ConfigGitHubClientSecret:      true,
	ConfigMicrosoftClientSecret:   true,
	ConfigMailerSMTPURL:           true,
	ConfigMailerSMTPUser:          true,
	ConfigMailerSMTPPassword:      true,
	ConfigJWTSecret:               true,
	ConfigSessionSecret:           true,
	ConfigOnboardingRecoveryToken: true,
}

// ParseConfigName returns the ConfigName for s and whether it is a known name.
func ParseConfigName(s string) (ConfigName, bool) {
	n := ConfigName(s)
	return n, knownConfigNames[n]
}

// Valid reports whether n belongs to the closed set of config names.
func (n ConfigName) Valid() bool {
	return knownConfigNames[n]
}

// Sensitive reports whether values stored under n must be encrypted at rest.
func (n ConfigName) Sensitive() bool {
	return sensitiveConfigNames[n]
}

// Topic returns the pub/sub topic announcing updates to n.
func (n ConfigName) Topic() string {
	return "infra_config/" + string(n) + "/updated"
}

// InfraConfig is one persisted configuration row.
type InfraConfig struct {
	Name      ConfigName
	Value     StoredValue
	UpdatedAt time.Time
}

// Decrypter turns ciphertext produced by the configured cipher back into plaintext.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Encrypter produces ciphertext for a plaintext value.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// StoredValue is the persisted form of a config value: either plaintext or
// ciphertext. The zero value is an empty plaintext.
type StoredValue struct {
	text      string
	encrypted bool
}

// PlainValue wraps a plaintext value.
func PlainValue(s string) StoredValue {
	return StoredValue{text: s}
}

// EncryptedValue wraps ciphertext produced by an Encrypter.
func EncryptedValue(ciphertext string) StoredValue {
	return StoredValue{text: ciphertext, encrypted: true}
}

// SealValue stores plaintext for name, encrypting it when name is sensitive.
func SealValue(name ConfigName, plaintext string, enc Encrypter) (StoredValue, error) {
	if !name.Sensitive() {
		return PlainValue(plaintext), nil
	}
	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		return StoredValue{}, err
	}
	return EncryptedValue(ciphertext), nil
}

// IsEncrypted reports whether the stored text is ciphertext.
func (v StoredValue) IsEncrypted() bool {
	return v.encrypted
}

// Reveal returns the plaintext, decrypting when needed.
func (v StoredValue) Reveal(dec Decrypter) (string, error) {
	if !v.encrypted {
		return v.text, nil
	}
	return dec.Decrypt(v.text)
}

// Stored returns the raw persisted text and encryption flag. Only store
// adapters should need this.
func (v StoredValue) Stored() (text string, encrypted bool) {
	return v.text, v.encrypted
}
