package auth

import (
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

type basicUser struct {
	hash  string
	scope Scope
}

// BasicAuthenticator authenticates requests using HTTP Basic authentication
// with bcrypt-hashed passwords.
type BasicAuthenticator struct {
	users map[string]basicUser
}

// NewBasicAuthenticator creates a Basic authenticator from a configuration
// string in the format "user1:hash1,user2:hash2:read".
func NewBasicAuthenticator(usersConfig string) (*BasicAuthenticator, error) {
	creds, err := parseCredentials("basic", usersConfig)
	if err != nil {
		return nil, err
	}

	users := make(map[string]basicUser, len(creds))
	for _, c := range creds {
		users[c.first] = basicUser{hash: c.second, scope: c.scope}
	}

	return &BasicAuthenticator{users: users}, nil
}

// Authenticate verifies the Basic credentials against the stored bcrypt hash.
func (a *BasicAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrUnauthenticated
	}

	user, exists := a.users[username]
	if !exists {
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.hash), []byte(password),
	); err != nil {
		return nil, fmt.Errorf("%w: wrong password", ErrInvalidCredentials)
	}

	return &AuthInfo{
		Method:  AuthMethodBasic,
		Subject: username,
		Scope:   user.scope,
	}, nil
}

// Method returns the authentication method type.
func (a *BasicAuthenticator) Method() AuthMethod {
	return AuthMethodBasic
}
