package config

import (
	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
)

// Defaults is the read-only default source for infra config values. Each
// name resolves to its environment variable when set, otherwise to the
// built-in default below.
type Defaults struct {
	v *viper.Viper
}

// NewDefaults binds every known config name. ANALYTICS_USER_ID defaults to a
// UUID generated once per Defaults.
func NewDefaults() *Defaults {
	v := viper.New()
	v.AutomaticEnv()

	for _, name := range model.AllConfigNames {
		v.SetDefault(string(name), "")
	}

	v.SetDefault(string(model.ConfigGoogleScope), "profile,email")
	v.SetDefault(string(model.ConfigGitHubScope), "user:email")
	v.SetDefault(string(model.ConfigMicrosoftScope), "user.read")
	v.SetDefault(string(model.ConfigMicrosoftTenant), "common")

	v.SetDefault(string(model.ConfigMailerSMTPEnable), "false")
	v.SetDefault(string(model.ConfigMailerUseCustomConfigs), "false")
	v.SetDefault(string(model.ConfigMailerSMTPSecure), "false")
	v.SetDefault(string(model.ConfigMailerTLSRejectUnauthorized), "true")

	v.SetDefault(string(model.ConfigAllowedAuthProviders), string(model.AuthProviderEmail))
	v.SetDefault(string(model.ConfigAllowAnalyticsCollection), "false")
	v.SetDefault(string(model.ConfigAnalyticsUserID), uuid.NewString())
	v.SetDefault(string(model.ConfigIsFirstTimeInfraSetup), "true")
	v.SetDefault(string(model.ConfigUserHistoryStoreEnabled), "true")

	v.SetDefault(string(model.ConfigTokenSaltComplexity), "10")
	v.SetDefault(string(model.ConfigMagicLinkTokenValidity), "3")
	v.SetDefault(string(model.ConfigAccessTokenValidity), "86400000")
	v.SetDefault(string(model.ConfigRefreshTokenValidity), "604800000")
	v.SetDefault(string(model.ConfigAllowSecureCookies), "false")
	v.SetDefault(string(model.ConfigRateLimitTTL), "60")
	v.SetDefault(string(model.ConfigRateLimitMax), "100")

	v.SetDefault(string(model.ConfigOnboardingCompleted), "false")

	return &Defaults{v: v}
}

// Values returns the default value of every known config name.
func (d *Defaults) Values() map[model.ConfigName]string {
	out := make(map[model.ConfigName]string, len(model.AllConfigNames))
	for _, name := range model.AllConfigNames {
		out[name] = d.v.GetString(string(name))
	}
	return out
}
