package auth

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
)

// Token scopes recognized in the "scope" claim.
const (
	TokenScopeRead  = "inventory:read"
	TokenScopeWrite = "inventory:write"
)

// TokenVerifier verifies a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*TokenClaims, error)
}

// TokenClaims holds the claims of a verified token.
type TokenClaims struct {
	Subject  string
	Audience []string
	Issuer   string
	Expiry   time.Time
	Claims   map[string]any
}

// OIDCAuthenticator authenticates requests with OIDC bearer tokens.
type OIDCAuthenticator struct {
	verifier TokenVerifier
	audience string
}

// NewOIDCAuthenticator creates an OIDC authenticator. An empty audience
// skips the audience check.
func NewOIDCAuthenticator(verifier TokenVerifier, audience string) *OIDCAuthenticator {
	return &OIDCAuthenticator{
		verifier: verifier,
		audience: audience,
	}
}

// Authenticate verifies the Bearer token of the Authorization header. A
// request without a bearer token is ErrUnauthenticated so that other
// authenticators of a multi chain still get their turn.
func (a *OIDCAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	token, ok := bearerToken(r)
	if !ok {
		return nil, ErrUnauthenticated
	}

	claims, err := a.verifier.Verify(r.Context(), token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if a.audience != "" && !slices.Contains(claims.Audience, a.audience) {
		return nil, fmt.Errorf("%w: audience %v does not contain %s",
			ErrInvalidToken, claims.Audience, a.audience)
	}

	return &AuthInfo{
		Method:  AuthMethodOIDC,
		Subject: claims.Subject,
		Scope:   tokenScope(claims.Claims),
		Claims:  claims.Claims,
	}, nil
}

// Method returns the authentication method type.
func (a *OIDCAuthenticator) Method() AuthMethod {
	return AuthMethodOIDC
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// tokenScope maps the space separated "scope" claim. Tokens without the
// claim keep the write default of the other methods; a claim that lists
// scopes but not TokenScopeWrite is read-only.
func tokenScope(claims map[string]any) Scope {
	raw, ok := claims["scope"].(string)
	if !ok {
		return ScopeWrite
	}
	if slices.Contains(strings.Fields(raw), TokenScopeWrite) {
		return ScopeWrite
	}
	return ScopeRead
}
