package application

import (
	"strconv"
	"strings"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
	"github.com/ericfisherdev/infraconfig/internal/validate"
)

type ruleKind int

const (
	ruleBoolean ruleKind = iota + 1
	ruleNonEmpty
	ruleURL
	ruleSMTPURL
	ruleSMTPEmail
	ruleAuthProviders
	ruleMinInt
)

type rule struct {
	kind ruleKind
	min  int
}

var (
	booleanRule  = rule{kind: ruleBoolean}
	nonEmptyRule = rule{kind: ruleNonEmpty}
	urlRule      = rule{kind: ruleURL}
	positiveRule = rule{kind: ruleMinInt, min: 1}
)

// valueRules holds the constraint for each name. Names not listed accept any value.
var valueRules = map[model.ConfigName]rule{
	model.ConfigMailerSMTPEnable:            booleanRule,
	model.ConfigMailerUseCustomConfigs:      booleanRule,
	model.ConfigMailerSMTPSecure:            booleanRule,
	model.ConfigMailerTLSRejectUnauthorized: booleanRule,
	model.ConfigAllowAnalyticsCollection:    booleanRule,
	model.ConfigIsFirstTimeInfraSetup:       booleanRule,
	model.ConfigUserHistoryStoreEnabled:     booleanRule,
	model.ConfigAllowSecureCookies:          booleanRule,
	model.ConfigOnboardingCompleted:         booleanRule,

	model.ConfigMailerSMTPURL:     {kind: ruleSMTPURL},
	model.ConfigMailerAddressFrom: {kind: ruleSMTPEmail},

	model.ConfigMailerSMTPHost:        nonEmptyRule,
	model.ConfigMailerSMTPPort:        nonEmptyRule,
	model.ConfigMailerSMTPUser:        nonEmptyRule,
	model.ConfigMailerSMTPPassword:    nonEmptyRule,
	model.ConfigGoogleClientID:        nonEmptyRule,
	model.ConfigGoogleClientSecret:    nonEmptyRule,
	model.ConfigGoogleScope:           nonEmptyRule,
	model.ConfigGitHubClientID:        nonEmptyRule,
	model.ConfigGitHubClientSecret:    nonEmptyRule,
	model.ConfigGitHubScope:           nonEmptyRule,
	model.ConfigMicrosoftClientID:     nonEmptyRule,
	model.ConfigMicrosoftClientSecret: nonEmptyRule,
	model.ConfigMicrosoftScope:        nonEmptyRule,
	model.ConfigMicrosoftTenant:       nonEmptyRule,

	model.ConfigGoogleCallbackURL:    urlRule,
	model.ConfigGitHubCallbackURL:    urlRule,
	model.ConfigMicrosoftCallbackURL: urlRule,

	model.ConfigAllowedAuthProviders: {kind: ruleAuthProviders},

	model.ConfigTokenSaltComplexity:    positiveRule,
	model.ConfigMagicLinkTokenValidity: positiveRule,
	model.ConfigRefreshTokenValidity:   positiveRule,
	model.ConfigAccessTokenValidity:    positiveRule,
	model.ConfigRateLimitTTL:           positiveRule,
	model.ConfigRateLimitMax:           positiveRule,
}

// check returns a reason when value breaks r, or "" when it is acceptable.
func (r rule) check(value string) string {
	switch r.kind {
	case ruleBoolean:
		if value != "true" && value != "false" {
			return `must be "true" or "false"`
		}
	case ruleNonEmpty:
		if value == "" {
			return "must not be empty"
		}
	case ruleURL:
		if !validate.IsValidURL(value) {
			return "must be an http or https URL"
		}
	case ruleSMTPURL:
		if !validate.IsValidSMTPURL(value) {
			return "must be an smtp or smtps URL"
		}
	case ruleSMTPEmail:
		if !validate.IsValidSMTPEmail(value) {
			return "must be an email address"
		}
	case ruleAuthProviders:
		if _, ok := parseAuthProviders(value); !ok {
			return "must list at least one of GOOGLE, GITHUB, MICROSOFT, EMAIL"
		}
	case ruleMinInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < r.min {
			return "must be an integer of at least " + strconv.Itoa(r.min)
		}
	}
	return ""
}

// validateValue checks a single value against the rule table.
func validateValue(name model.ConfigName, value string) error {
	if !name.Valid() {
		return &ValidationError{Name: name, Reason: "unknown config name"}
	}
	r, ok := valueRules[name]
	if !ok {
		return nil
	}
	if reason := r.check(value); reason != "" {
		return &ValidationError{Name: name, Reason: reason}
	}
	return nil
}

// validateEntries stops at the first invalid entry.
func validateEntries(entries []ConfigEntry) error {
	for _, e := range entries {
		if err := validateValue(e.Name, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// parseAuthProviders splits a comma-joined provider list. It reports false
// when the list is empty or names an unknown provider.
func parseAuthProviders(value string) ([]model.AuthProvider, bool) {
	parts := strings.Split(value, ",")
	providers := make([]model.AuthProvider, 0, len(parts))
	for _, p := range parts {
		provider := model.AuthProvider(strings.TrimSpace(p))
		if !provider.Valid() {
			return nil, false
		}
		providers = append(providers, provider)
	}
	return providers, len(providers) > 0
}

func joinAuthProviders(providers []model.AuthProvider) string {
	parts := make([]string, len(providers))
	for i, p := range providers {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}
