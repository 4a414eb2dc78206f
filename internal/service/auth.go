package service

import (
	"crypto/subtle"
	"strings"
)

// Authorizer checks admin tokens against the configured shared secret.
type Authorizer struct {
	secret string
}

// NewAuthorizer creates an authorizer. Surrounding whitespace is ignored.
func NewAuthorizer(secret string) *Authorizer {
	return &Authorizer{secret: strings.TrimSpace(secret)}
}

// Configured reports whether a secret is set.
func (a *Authorizer) Configured() bool {
	return a != nil && a.secret != ""
}

// Authorize returns ErrNotConfigured when no secret is set and
// ErrUnauthorized when token does not match it exactly.
func (a *Authorizer) Authorize(token string) error {
	if !a.Configured() {
		return ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
