package application

import "github.com/ericfisherdev/infraconfig/internal/domain/model"

var oauthPrerequisites = map[model.AuthProvider][]model.ConfigName{
	model.AuthProviderGoogle: {
		model.ConfigGoogleClientID, model.ConfigGoogleClientSecret,
		model.ConfigGoogleCallbackURL, model.ConfigGoogleScope,
	},
	model.AuthProviderGitHub: {
		model.ConfigGitHubClientID, model.ConfigGitHubClientSecret,
		model.ConfigGitHubCallbackURL, model.ConfigGitHubScope,
	},
	model.AuthProviderMicrosoft: {
		model.ConfigMicrosoftClientID, model.ConfigMicrosoftClientSecret,
		model.ConfigMicrosoftCallbackURL, model.ConfigMicrosoftScope,
		model.ConfigMicrosoftTenant,
	},
}

var customSMTPPrerequisites = []model.ConfigName{
	model.ConfigMailerSMTPHost,
	model.ConfigMailerSMTPPort,
	model.ConfigMailerSMTPSecure,
	model.ConfigMailerSMTPUser,
	model.ConfigMailerSMTPPassword,
	model.ConfigMailerTLSRejectUnauthorized,
	model.ConfigMailerAddressFrom,
}

var urlSMTPPrerequisites = []model.ConfigName{
	model.ConfigMailerSMTPURL,
	model.ConfigMailerAddressFrom,
}

// IsServiceConfigured reports whether every field provider needs is present
// in configs. Email additionally requires MAILER_SMTP_ENABLE to be "true".
func IsServiceConfigured(provider model.AuthProvider, configs map[model.ConfigName]string) bool {
	if provider == model.AuthProviderEmail {
		if configs[model.ConfigMailerSMTPEnable] != "true" {
			return false
		}
		if configs[model.ConfigMailerUseCustomConfigs] == "true" {
			return allPresent(customSMTPPrerequisites, configs)
		}
		return allPresent(urlSMTPPrerequisites, configs)
	}

	names, ok := oauthPrerequisites[provider]
	if !ok {
		return false
	}
	return allPresent(names, configs)
}

func allPresent(names []model.ConfigName, configs map[model.ConfigName]string) bool {
	for _, n := range names {
		if configs[n] == "" {
			return false
		}
	}
	return true
}
