package auth

import (
	"context"
	"crypto"
	"crypto/rsa"
	_ "crypto/sha256" // registers SHA-256 for crypto.Hash.New
	_ "crypto/sha512" // registers SHA-384 and SHA-512
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Token verification errors.
var (
	ErrJWKSFetch        = errors.New("failed to fetch JWKS")
	ErrTokenMalformed   = errors.New("malformed JWT")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not valid yet")
	ErrIssuerMismatch   = errors.New("token issuer mismatch")
	ErrKeyNotFound      = errors.New("signing key not found in JWKS")
	ErrUnsupportedAlgo  = errors.New("unsupported signing algorithm")
	ErrSignatureInvalid = errors.New("token signature is invalid")
)

const (
	jwksRefreshInterval = 5 * time.Minute
	// minRefreshGap bounds how often an unknown kid can force a refetch.
	minRefreshGap     = 10 * time.Second
	maxFetchAttempts  = 3
	initialRetryDelay = 500 * time.Millisecond
	httpClientTimeout = 10 * time.Second
)

type discoveryDocument struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwtHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

type jwtPayload struct {
	Sub string   `json:"sub"`
	Iss string   `json:"iss"`
	Aud audience `json:"aud"`
	Exp float64  `json:"exp"`
	Nbf float64  `json:"nbf"`
}

// audience accepts both forms of the "aud" claim: a string or a list.
type audience []string

func (a *audience) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = []string{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("aud must be a string or a list of strings: %w", err)
	}
	*a = list
	return nil
}

// JWKSVerifier verifies RS256/RS384/RS512 tokens against the key set
// published by an OIDC issuer. Keys are refreshed in the background and on
// demand when a token names an unknown key id.
type JWKSVerifier struct {
	issuer  string
	jwksURI string
	client  *http.Client
	logger  *zap.Logger

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastRefresh time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewJWKSVerifier reads the issuer's discovery document, fetches its key
// set and starts the background refresh. Close stops it.
func NewJWKSVerifier(ctx context.Context, issuerURL string, logger *zap.Logger) (*JWKSVerifier, error) {
	client := &http.Client{Timeout: httpClientTimeout}

	discoveryURL := strings.TrimRight(issuerURL, "/") + "/.well-known/openid-configuration"
	var doc discoveryDocument
	if err := getJSON(ctx, client, discoveryURL, &doc); err != nil {
		return nil, fmt.Errorf("fetching OIDC discovery document: %w", err)
	}
	if doc.JWKSURI == "" {
		return nil, errors.New("fetching OIDC discovery document: jwks_uri is missing")
	}

	v := &JWKSVerifier{
		issuer:  issuerURL,
		jwksURI: doc.JWKSURI,
		client:  client,
		logger:  logger,
		keys:    make(map[string]*rsa.PublicKey),
		done:    make(chan struct{}),
	}

	if err := v.refresh(ctx); err != nil {
		return nil, fmt.Errorf("initial JWKS fetch: %w", err)
	}

	refreshCtx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	go v.refreshLoop(refreshCtx)

	return v, nil
}

// Close stops the background refresh and waits for it to exit.
func (v *JWKSVerifier) Close() {
	v.cancel()
	<-v.done
}

// Verify checks the signature, issuer, expiry and not-before time of
// rawToken and returns its claims. The audience is left to the caller.
func (v *JWKSVerifier) Verify(ctx context.Context, rawToken string) (*TokenClaims, error) {
	parts := strings.Split(rawToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 parts, got %d", ErrTokenMalformed, len(parts))
	}

	var header jwtHeader
	if err := decodeSegment(parts[0], &header); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrTokenMalformed, err)
	}

	hash, err := hashForAlgorithm(header.Alg)
	if err != nil {
		return nil, err
	}

	key, err := v.key(ctx, header.Kid)
	if err != nil {
		return nil, err
	}

	signature, err := decodeBase64URL(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %w", ErrTokenMalformed, err)
	}

	h := hash.New()
	h.Write([]byte(parts[0] + "." + parts[1]))
	if err := rsa.VerifyPKCS1v15(key, hash, h.Sum(nil), signature); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}

	var payload jwtPayload
	if err := decodeSegment(parts[1], &payload); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrTokenMalformed, err)
	}
	var claims map[string]any
	if err := decodeSegment(parts[1], &claims); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrTokenMalformed, err)
	}

	if payload.Iss != v.issuer {
		return nil, fmt.Errorf("%w: expected %q, got %q", ErrIssuerMismatch, v.issuer, payload.Iss)
	}

	now := time.Now()
	expiry := time.Unix(int64(payload.Exp), 0)
	if !now.Before(expiry) {
		return nil, fmt.Errorf("%w: expired at %v", ErrTokenExpired, expiry)
	}
	if payload.Nbf != 0 && now.Before(time.Unix(int64(payload.Nbf), 0)) {
		return nil, ErrTokenNotYetValid
	}

	return &TokenClaims{
		Subject:  payload.Sub,
		Audience: []string(payload.Aud),
		Issuer:   payload.Iss,
		Expiry:   expiry,
		Claims:   claims,
	}, nil
}

// key returns the public key for kid, refetching the key set once when the
// kid is unknown and the last fetch is older than minRefreshGap.
func (v *JWKSVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	stale := time.Since(v.lastRefresh) >= minRefreshGap
	v.mu.RUnlock()

	if ok {
		return key, nil
	}
	if !stale {
		return nil, fmt.Errorf("%w: kid=%q", ErrKeyNotFound, kid)
	}

	if err := v.refresh(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyNotFound, err)
	}

	v.mu.RLock()
	key, ok = v.keys[kid]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: kid=%q", ErrKeyNotFound, kid)
	}
	return key, nil
}

// refresh fetches the key set with exponential backoff between attempts.
func (v *JWKSVerifier) refresh(ctx context.Context) error {
	var lastErr error
	delay := initialRetryDelay

	for attempt := range maxFetchAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", ErrJWKSFetch, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		keys, err := v.fetchKeys(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		v.mu.Lock()
		v.keys = keys
		v.lastRefresh = time.Now()
		v.mu.Unlock()
		return nil
	}

	return fmt.Errorf("%w: after %d attempts: %w", ErrJWKSFetch, maxFetchAttempts, lastErr)
}

func (v *JWKSVerifier) refreshLoop(ctx context.Context) {
	defer close(v.done)

	ticker := time.NewTicker(jwksRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// The cached keys stay in use until a refresh succeeds.
			if err := v.refresh(ctx); err != nil && ctx.Err() == nil {
				v.logger.Warn("JWKS refresh failed", zap.String("jwks_uri", v.jwksURI), zap.Error(err))
			}
		}
	}
}

func (v *JWKSVerifier) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	var set jwkSet
	if err := getJSON(ctx, v.client, v.jwksURI, &set); err != nil {
		return nil, err
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			v.logger.Debug("skipping unusable JWK", zap.String("kid", k.Kid), zap.Error(err))
			continue
		}
		keys[k.Kid] = pub
	}
	return keys, nil
}

func (k jwk) publicKey() (*rsa.PublicKey, error) {
	n, err := decodeBase64URL(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	e, err := decodeBase64URL(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	exponent := new(big.Int).SetBytes(e)
	if len(n) == 0 || !exponent.IsInt64() || exponent.Int64() < 3 {
		return nil, errors.New("invalid RSA key parameters")
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exponent.Int64())}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

func hashForAlgorithm(alg string) (crypto.Hash, error) {
	switch alg {
	case "RS256":
		return crypto.SHA256, nil
	case "RS384":
		return crypto.SHA384, nil
	case "RS512":
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgo, alg)
	}
}

// decodeBase64URL accepts base64url with or without padding.
func decodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

func decodeSegment(segment string, out any) error {
	data, err := decodeBase64URL(segment)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
