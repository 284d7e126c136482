package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vyrodovalexey/item-management/internal/auth"
)

// mockTokenVerifier is a test double for auth.TokenVerifier.
type mockTokenVerifier struct {
	claims *auth.TokenClaims
	err    error
	got    string
}

func (m *mockTokenVerifier) Verify(_ context.Context, rawToken string) (*auth.TokenClaims, error) {
	m.got = rawToken
	return m.claims, m.err
}

func tokenClaims(aud []string, claims map[string]any) *auth.TokenClaims {
	return &auth.TokenClaims{
		Subject:  "clerk@shop.local",
		Audience: aud,
		Issuer:   "https://issuer.shop.local",
		Expiry:   time.Now().Add(time.Hour),
		Claims:   claims,
	}
}

func TestOIDCAuthenticator_Authenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		authorization string
		verifier      *mockTokenVerifier
		audience      string
		wantScope     auth.Scope
		wantErr       error
	}{
		{
			name:     "no header",
			verifier: &mockTokenVerifier{},
			wantErr:  auth.ErrUnauthenticated,
		},
		{
			name:          "basic credentials are not a bearer token",
			authorization: "Basic dXNlcjpwYXNz",
			verifier:      &mockTokenVerifier{},
			wantErr:       auth.ErrUnauthenticated,
		},
		{
			name:          "empty bearer token",
			authorization: "Bearer   ",
			verifier:      &mockTokenVerifier{},
			wantErr:       auth.ErrUnauthenticated,
		},
		{
			name:          "verifier rejects",
			authorization: "Bearer tok",
			verifier:      &mockTokenVerifier{err: auth.ErrTokenExpired},
			wantErr:       auth.ErrInvalidToken,
		},
		{
			name:          "audience mismatch",
			authorization: "Bearer tok",
			verifier:      &mockTokenVerifier{claims: tokenClaims([]string{"billing"}, nil)},
			audience:      "inventory",
			wantErr:       auth.ErrInvalidToken,
		},
		{
			name:          "no scope claim writes",
			authorization: "Bearer tok",
			verifier:      &mockTokenVerifier{claims: tokenClaims([]string{"inventory"}, map[string]any{})},
			audience:      "inventory",
			wantScope:     auth.ScopeWrite,
		},
		{
			name:          "read scope only",
			authorization: "Bearer tok",
			verifier: &mockTokenVerifier{claims: tokenClaims(nil, map[string]any{
				"scope": "openid " + auth.TokenScopeRead,
			})},
			wantScope: auth.ScopeRead,
		},
		{
			name:          "write scope",
			authorization: "Bearer tok",
			verifier: &mockTokenVerifier{claims: tokenClaims(nil, map[string]any{
				"scope": auth.TokenScopeRead + " " + auth.TokenScopeWrite,
			})},
			wantScope: auth.ScopeWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			a := auth.NewOIDCAuthenticator(tt.verifier, tt.audience)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}

			// Act
			info, err := a.Authenticate(req)

			// Assert
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() unexpected error = %v", err)
			}
			if tt.verifier.got != "tok" {
				t.Errorf("verifier got token %q, want %q", tt.verifier.got, "tok")
			}
			if info.Method != auth.AuthMethodOIDC || info.Subject != "clerk@shop.local" {
				t.Errorf("info = %+v", info)
			}
			if info.Scope != tt.wantScope {
				t.Errorf("Scope = %q, want %q", info.Scope, tt.wantScope)
			}
		})
	}
}

func TestOIDCAuthenticator_Method(t *testing.T) {
	a := auth.NewOIDCAuthenticator(&mockTokenVerifier{}, "")
	if got := a.Method(); got != auth.AuthMethodOIDC {
		t.Errorf("Method() = %s, want %s", got, auth.AuthMethodOIDC)
	}
}
