package model

// AuthProvider identifies a login method that can be offered to users.
type AuthProvider string

const (
	AuthProviderGoogle    AuthProvider = "GOOGLE"
	AuthProviderGitHub    AuthProvider = "GITHUB"
	AuthProviderMicrosoft AuthProvider = "MICROSOFT"
	AuthProviderEmail     AuthProvider = "EMAIL"
)

// AllAuthProviders is the closed provider enumeration.
var AllAuthProviders = []AuthProvider{
	AuthProviderGoogle,
	AuthProviderGitHub,
	AuthProviderMicrosoft,
	AuthProviderEmail,
}

// Valid reports whether p is one of the known providers.
func (p AuthProvider) Valid() bool {
	switch p {
	case AuthProviderGoogle, AuthProviderGitHub, AuthProviderMicrosoft, AuthProviderEmail:
		return true
	}
	return false
}

// ServiceStatus is the requested or reported state of an optional service.
type ServiceStatus string

const (
	ServiceStatusEnable  ServiceStatus = "ENABLE"
	ServiceStatusDisable ServiceStatus = "DISABLE"
)

// Valid reports whether s is ENABLE or DISABLE.
func (s ServiceStatus) Valid() bool {
	return s == ServiceStatusEnable || s == ServiceStatusDisable
}

// BoolString renders the status as the "true"/"false" flag stored in config rows.
func (s ServiceStatus) BoolString() string {
	if s == ServiceStatusEnable {
		return "true"
	}
	return "false"
}

// ServiceStatusFromFlag maps a stored boolean flag to a ServiceStatus.
func ServiceStatusFromFlag(flag string) ServiceStatus {
	if flag == "true" {
		return ServiceStatusEnable
	}
	return ServiceStatusDisable
}
