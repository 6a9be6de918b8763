package application

import (
	"errors"
	"fmt"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
)

// Error kinds returned by InfraConfigService. Callers branch with errors.Is;
// Code maps them to the stable identifiers exposed over the API.
var (
	ErrNotFound                 = errors.New("infra config not found")
	ErrInvalidInput             = errors.New("invalid infra config input")
	ErrUpdateFailed             = errors.New("infra config update failed")
	ErrResetFailed              = errors.New("infra config reset failed")
	ErrServiceNotConfigured     = errors.New("service is not configured")
	ErrAuthProviderNotSpecified = errors.New("at least one auth provider must be enabled")
	ErrOperationNotAllowed      = errors.New("operation not allowed")
	ErrCorrupted                = errors.New("stored infra config cannot be decrypted")
)

// Stable error codes.
const (
	CodeNotFound                 = "infra_config/not_found"
	CodeInvalidInput             = "infra_config/invalid_input"
	CodeUpdateFailed             = "infra_config/update_failed"
	CodeResetFailed              = "infra_config/reset_failed"
	CodeServiceNotConfigured     = "infra_config/service_not_configured"
	CodeAuthProviderNotSpecified = "auth/provider_not_specified"
	CodeOperationNotAllowed      = "infra_config/operation_not_allowed"
	CodeCorrupted                = "infra_config/corrupted"
	CodeInternal                 = "internal_error"
)

// codeOrder is checked top to bottom; the more specific kinds come first
// because store failures are wrapped in UpdateFailed or ResetFailed too.
var codeOrder = []struct {
	err  error
	code string
}{
	{ErrInvalidInput, CodeInvalidInput},
	{ErrOperationNotAllowed, CodeOperationNotAllowed},
	{ErrServiceNotConfigured, CodeServiceNotConfigured},
	{ErrAuthProviderNotSpecified, CodeAuthProviderNotSpecified},
	{ErrNotFound, CodeNotFound},
	{ErrCorrupted, CodeCorrupted},
	{ErrUpdateFailed, CodeUpdateFailed},
	{ErrResetFailed, CodeResetFailed},
}

// Code returns the stable code for err, or CodeInternal when err is not one
// of the service's error kinds.
func Code(err error) string {
	for _, c := range codeOrder {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// ValidationError reports the first config value that failed validation.
type ValidationError struct {
	Name   model.ConfigName
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Reason)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
