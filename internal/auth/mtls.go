package auth

import (
	"net/http"
	"slices"
)

// ReadOnlyUnit is the certificate organizational unit that limits a client
// to ScopeRead.
const ReadOnlyUnit = "inventory-read"

// MTLSAuthenticator authenticates requests by the verified TLS client
// certificate. The TLS listener does the chain verification; this only maps
// the leaf certificate to an identity.
type MTLSAuthenticator struct{}

// NewMTLSAuthenticator creates a new mTLS authenticator.
func NewMTLSAuthenticator() *MTLSAuthenticator {
	return &MTLSAuthenticator{}
}

// Authenticate uses the certificate common name as the subject. A
// certificate carrying the ReadOnlyUnit organizational unit gets read scope.
func (a *MTLSAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
		return nil, ErrUnauthenticated
	}

	cert := r.TLS.PeerCertificates[0]
	if cert.Subject.CommonName == "" {
		return nil, ErrInvalidCert
	}

	scope := ScopeWrite
	if slices.Contains(cert.Subject.OrganizationalUnit, ReadOnlyUnit) {
		scope = ScopeRead
	}

	claims := make(map[string]any)
	if len(cert.Subject.Organization) > 0 {
		claims["organizations"] = cert.Subject.Organization
	}
	if len(cert.DNSNames) > 0 {
		claims["dns_names"] = cert.DNSNames
	}

	return &AuthInfo{
		Method:  AuthMethodMTLS,
		Subject: cert.Subject.CommonName,
		Scope:   scope,
		Claims:  claims,
	}, nil
}

// Method returns the authentication method type.
func (a *MTLSAuthenticator) Method() AuthMethod {
	return AuthMethodMTLS
}
