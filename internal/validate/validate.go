// Package validate holds the pure predicates used to check config values.
// None of them panic; malformed input is reported as false.
package validate

import (
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New()

// IsValidURL reports whether s is an absolute http or https URL with a host.
func IsValidURL(s string) bool {
	if v.Var(s, "required,url") != nil {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return validHost(u)
}

// IsValidSMTPURL reports whether s looks like smtp[s]://[user[:pass]@]host[:port].
func IsValidSMTPURL(s string) bool {
	if v.Var(s, "required,url") != nil {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "smtp" && u.Scheme != "smtps" {
		return false
	}
	return validHost(u)
}

// IsValidSMTPEmail accepts a bare address ("no-reply@example.com") or a
// display-name form ("Example <no-reply@example.com>").
func IsValidSMTPEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return v.Var(addr.Address, "email") == nil
}

func validHost(u *url.URL) bool {
	host := u.Hostname()
	if host == "" {
		return false
	}
	if v.Var(host, "hostname_rfc1123|ip") != nil {
		return false
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return false
		}
	}
	return true
}
