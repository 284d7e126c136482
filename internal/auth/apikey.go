package auth

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader is the HTTP header name for API key authentication.
const APIKeyHeader = "X-API-Key"

type apiKey struct {
	value string
	name  string
	scope Scope
}

// APIKeyAuthenticator authenticates requests by the X-API-Key header.
type APIKeyAuthenticator struct {
	keys []apiKey
}

// NewAPIKeyAuthenticator creates an API key authenticator from a configuration
// string in the format "key1:name1,key2:name2:read".
func NewAPIKeyAuthenticator(keysConfig string) (*APIKeyAuthenticator, error) {
	creds, err := parseCredentials("apikey", keysConfig)
	if err != nil {
		return nil, err
	}

	keys := make([]apiKey, 0, len(creds))
	for _, c := range creds {
		keys = append(keys, apiKey{value: c.first, name: c.second, scope: c.scope})
	}

	return &APIKeyAuthenticator{keys: keys}, nil
}

// Authenticate compares the presented key with every configured key in
// constant time.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	presented := r.Header.Get(APIKeyHeader)
	if presented == "" {
		return nil, ErrUnauthenticated
	}

	var match *apiKey
	for i := range a.keys {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(a.keys[i].value)) == 1 {
			match = &a.keys[i]
		}
	}
	if match == nil {
		return nil, ErrInvalidAPIKey
	}

	return &AuthInfo{
		Method:  AuthMethodAPIKey,
		Subject: match.name,
		Scope:   match.scope,
	}, nil
}

// Method returns the authentication method type.
func (a *APIKeyAuthenticator) Method() AuthMethod {
	return AuthMethodAPIKey
}
