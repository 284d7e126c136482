// Package auth provides authentication for the item management API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AuthMethod represents the authentication method used.
type AuthMethod string

const (
	// AuthMethodNone indicates no authentication.
	AuthMethodNone AuthMethod = "none"
	// AuthMethodBasic indicates HTTP Basic authentication.
	AuthMethodBasic AuthMethod = "basic"
	// AuthMethodAPIKey indicates API key authentication.
	AuthMethodAPIKey AuthMethod = "apikey"
	// AuthMethodMTLS indicates TLS client certificate authentication.
	AuthMethodMTLS AuthMethod = "mtls"
	// AuthMethodOIDC indicates OIDC bearer token authentication.
	AuthMethodOIDC AuthMethod = "oidc"
	// AuthMethodMulti indicates multi-method authentication.
	AuthMethodMulti AuthMethod = "multi"
)

// Scope limits what an authenticated client may do with the inventory.
type Scope string

const (
	// ScopeRead allows listing, fetching, exporting and dry-run validation.
	ScopeRead Scope = "read"
	// ScopeWrite additionally allows adding and removing items.
	ScopeWrite Scope = "write"
)

// AuthInfo holds authenticated identity information.
type AuthInfo struct {
	Method  AuthMethod
	Subject string
	Scope   Scope
	Claims  map[string]any
}

// CanWrite reports whether the identity may change the inventory.
func (i *AuthInfo) CanWrite() bool {
	return i != nil && i.Scope == ScopeWrite
}

// Authenticator validates a request and returns auth info.
type Authenticator interface {
	Authenticate(r *http.Request) (*AuthInfo, error)
	Method() AuthMethod
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCert        = errors.New("invalid client certificate")
	ErrInvalidToken       = errors.New("invalid bearer token")
	ErrForbidden          = errors.New("credentials do not allow changing the inventory")
)

// contextKey is the type for context keys in this package.
type contextKey string

// authInfoKey is the context key for AuthInfo.
const authInfoKey contextKey = "auth_info"

// FromContext retrieves AuthInfo from the context.
func FromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authInfoKey).(*AuthInfo)
	return info, ok
}

// WithAuthInfo stores AuthInfo in the context.
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoKey, info)
}

// credential is one parsed "secret-or-name:value[:scope]" entry.
type credential struct {
	first  string
	second string
	scope  Scope
}

// parseCredentials parses a comma-separated list of "a:b" or "a:b:scope"
// entries. A missing scope means ScopeWrite.
func parseCredentials(kind, config string) ([]credential, error) {
	trimmed := strings.TrimSpace(config)
	if trimmed == "" {
		return nil, fmt.Errorf("%s auth: config must not be empty", kind)
	}

	var creds []credential
	for _, entry := range strings.Split(trimmed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf(
				"%s auth: invalid entry format, expected a:b or a:b:scope", kind,
			)
		}

		c := credential{
			first:  strings.TrimSpace(parts[0]),
			second: strings.TrimSpace(parts[1]),
			scope:  ScopeWrite,
		}
		if c.first == "" || c.second == "" {
			return nil, fmt.Errorf("%s auth: entry fields must not be empty", kind)
		}

		if len(parts) == 3 {
			switch s := Scope(strings.TrimSpace(parts[2])); s {
			case ScopeRead, ScopeWrite:
				c.scope = s
			default:
				return nil, fmt.Errorf("%s auth: unknown scope %q", kind, s)
			}
		}

		creds = append(creds, c)
	}

	if len(creds) == 0 {
		return nil, fmt.Errorf("%s auth: no valid entries found", kind)
	}

	return creds, nil
}
