package application

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
)

func TestValidateValue(t *testing.T) {
	tests := []struct {
		name  model.ConfigName
		value string
		ok    bool
	}{
		{model.ConfigMailerSMTPURL, "smtps://user:pw@smtp.example.com:465", true},
		{model.ConfigMailerSMTPURL, "https://smtp.example.com", false},
		{model.ConfigMailerAddressFrom, "Infra <noreply@example.com>", true},
		{model.ConfigMailerAddressFrom, "noreply", false},
		{model.ConfigMailerSMTPHost, "smtp.example.com", true},
		{model.ConfigMailerSMTPHost, "", false},
		{model.ConfigMicrosoftTenant, "", false},
		{model.ConfigGitHubCallbackURL, "https://app.example.com/cb", true},
		{model.ConfigGitHubCallbackURL, "app.example.com/cb", false},
		{model.ConfigAllowedAuthProviders, "GOOGLE,EMAIL", true},
		{model.ConfigAllowedAuthProviders, "GOOGLE, EMAIL", true},
		{model.ConfigAllowedAuthProviders, "", false},
		{model.ConfigAllowedAuthProviders, "GOOGLE,,EMAIL", false},
		{model.ConfigAllowedAuthProviders, "google", false},
		{model.ConfigAnalyticsUserID, "anything goes", true},
		{model.ConfigName("UNKNOWN"), "x", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.name)+"="+tt.value, func(t *testing.T) {
			err := validateValue(tt.name, tt.value)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidInput)
			}
		})
	}
}

func TestValidateEntries_FailFast(t *testing.T) {
	err := validateEntries([]ConfigEntry{
		{Name: model.ConfigRateLimitMax, Value: "10"},
		{Name: model.ConfigRateLimitTTL, Value: "0"},
		{Name: model.ConfigMailerSMTPEnable, Value: "yes"},
	})

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, model.ConfigRateLimitTTL, verr.Name)
}

func TestParseAuthProviders(t *testing.T) {
	providers, ok := parseAuthProviders("GITHUB,MICROSOFT")
	assert.True(t, ok)
	assert.Equal(t, []model.AuthProvider{model.AuthProviderGitHub, model.AuthProviderMicrosoft}, providers)
	assert.Equal(t, "GITHUB,MICROSOFT", joinAuthProviders(providers))

	_, ok = parseAuthProviders("")
	assert.False(t, ok)
}
