package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vyrodovalexey/item-management/internal/auth"
	"github.com/vyrodovalexey/item-management/internal/config"
	"github.com/vyrodovalexey/item-management/internal/seed"
)

func TestInitLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "invalid"} {
		t.Run(level, func(t *testing.T) {
			// Act
			logger, err := initLogger(level)

			// Assert
			if err != nil {
				t.Fatalf("initLogger() error = %v", err)
			}
			if logger == nil {
				t.Error("initLogger() returned nil logger")
			}
		})
	}
}

// newIssuer serves a discovery document and a one-key JWKS.
func newIssuer(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}

	var url string
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"issuer": url, "jwks_uri": url + "/jwks"})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "k1",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	url = server.URL

	return url
}

func TestCreateAuthenticator(t *testing.T) {
	issuer := newIssuer(t)
	unreachable := httptest.NewServer(http.NotFoundHandler())
	unreachable.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users := "clerk:" + string(hash)

	tests := []struct {
		name       string
		cfg        config.Config
		wantNil    bool
		wantMethod auth.AuthMethod
		wantErr    bool
	}{
		{name: "none", cfg: config.Config{AuthMode: "none"}, wantNil: true},
		{name: "empty mode", cfg: config.Config{}, wantNil: true},
		{name: "basic", cfg: config.Config{AuthMode: "basic", BasicAuthUsers: users}, wantMethod: auth.AuthMethodBasic},
		{name: "basic without users", cfg: config.Config{AuthMode: "basic"}, wantErr: true},
		{name: "apikey", cfg: config.Config{AuthMode: "apikey", APIKeys: "k:form"}, wantMethod: auth.AuthMethodAPIKey},
		{name: "apikey malformed", cfg: config.Config{AuthMode: "apikey", APIKeys: "nocolon"}, wantErr: true},
		{
			name:       "multi",
			cfg:        config.Config{AuthMode: "multi", BasicAuthUsers: users, APIKeys: "k:form:read"},
			wantMethod: auth.AuthMethodMulti,
		},
		{name: "multi api key only", cfg: config.Config{AuthMode: "multi", APIKeys: "k:form"}, wantMethod: auth.AuthMethodMulti},
		{name: "multi bad key", cfg: config.Config{AuthMode: "multi", APIKeys: ":"}, wantErr: true},
		{name: "multi bad users", cfg: config.Config{AuthMode: "multi", BasicAuthUsers: "x"}, wantErr: true},
		{name: "mtls", cfg: config.Config{AuthMode: "mtls"}, wantMethod: auth.AuthMethodMTLS},
		{
			name:       "oidc",
			cfg:        config.Config{AuthMode: "oidc", OIDCIssuerURL: issuer, OIDCClientID: "inventory"},
			wantMethod: auth.AuthMethodOIDC,
		},
		{
			name:    "oidc issuer down",
			cfg:     config.Config{AuthMode: "oidc", OIDCIssuerURL: unreachable.URL, OIDCClientID: "inventory"},
			wantErr: true,
		},
		{
			name: "multi with client certificates and tokens",
			cfg: config.Config{
				AuthMode:      "multi",
				TLSEnabled:    true,
				TLSClientAuth: "require",
				OIDCIssuerURL: issuer,
				OIDCClientID:  "inventory",
			},
			wantMethod: auth.AuthMethodMulti,
		},
		{
			name: "multi oidc issuer down",
			cfg: config.Config{
				AuthMode:      "multi",
				APIKeys:       "k:form",
				OIDCIssuerURL: unreachable.URL,
				OIDCClientID:  "inventory",
			},
			wantErr: true,
		},
		{name: "unknown", cfg: config.Config{AuthMode: "saml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			authenticator, closeAuth, err := createAuthenticator(context.Background(), &tt.cfg, zap.NewNop())
			if closeAuth == nil {
				t.Fatal("createAuthenticator() returned nil close func")
			}
			defer closeAuth()

			// Assert
			if tt.wantErr {
				if err == nil {
					t.Error("createAuthenticator() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("createAuthenticator() error = %v", err)
			}
			if tt.wantNil {
				if authenticator != nil {
					t.Errorf("createAuthenticator() = %v, want nil", authenticator)
				}
				return
			}
			if authenticator.Method() != tt.wantMethod {
				t.Errorf("Method() = %s, want %s", authenticator.Method(), tt.wantMethod)
			}
		})
	}
}

func TestCreateMultiAuthenticator_NoneConfigured(t *testing.T) {
	_, _, err := createMultiAuthenticator(context.Background(), &config.Config{AuthMode: "multi"}, zap.NewNop())

	if !errors.Is(err, errNoAuthenticators) {
		t.Errorf("error = %v, want %v", err, errNoAuthenticators)
	}
}

func TestBuildInventory(t *testing.T) {
	t.Run("built-in seed", func(t *testing.T) {
		svc, err := buildInventory("", zap.NewNop())
		if err != nil {
			t.Fatalf("buildInventory() error = %v", err)
		}

		items, err := svc.List(context.Background())
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(items) != len(seed.Default()) {
			t.Errorf("len(items) = %d, want %d", len(items), len(seed.Default()))
		}
	})

	t.Run("seed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "items.yaml")
		data := "items:\n  - id: 7\n    name: Whisk\n    category: Kitchenware\n    price: 3.5\n"
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatalf("write seed: %v", err)
		}

		svc, err := buildInventory(path, zap.NewNop())
		if err != nil {
			t.Fatalf("buildInventory() error = %v", err)
		}

		items, _ := svc.List(context.Background())
		if len(items) != 1 || items[0].ID != 7 || items[0].Name != "Whisk" {
			t.Errorf("items = %+v", items)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := buildInventory(filepath.Join(t.TempDir(), "absent.yaml"), zap.NewNop()); err == nil {
			t.Error("buildInventory() error = nil, want error")
		}
	})
}

func TestSeedSource(t *testing.T) {
	if got := seedSource(""); got != "built-in" {
		t.Errorf("seedSource(\"\") = %s", got)
	}
	if got := seedSource("/etc/items.yaml"); got != "/etc/items.yaml" {
		t.Errorf("seedSource() = %s", got)
	}
}
