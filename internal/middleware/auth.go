package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/item-management/internal/auth"
)

// publicPaths never require credentials.
var publicPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// readOnlyPosts are POST routes that do not change the inventory.
var readOnlyPosts = map[string]bool{
	"/api/v1/items/validate": true,
}

// Auth returns a middleware that authenticates requests and requires the
// write scope for requests that change the inventory. Public paths, CORS
// preflights and WebSocket upgrades pass through.
func Auth(authenticator auth.Authenticator, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) || r.Method == http.MethodOptions || isWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}

			info, err := authenticator.Authenticate(r)
			if err != nil {
				logger.Warn("authentication failed",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeAuthError(w, http.StatusUnauthorized, err)
				return
			}

			if changesInventory(r) && !info.CanWrite() {
				logger.Warn("write denied",
					zap.String("subject", info.Subject),
					zap.String("scope", string(info.Scope)),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
				)
				writeAuthError(w, http.StatusForbidden, auth.ErrForbidden)
				return
			}

			logger.Debug("authentication successful",
				zap.String("subject", info.Subject),
				zap.String("method", string(info.Method)),
				zap.String("path", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(auth.WithAuthInfo(r.Context(), info)))
		})
	}
}

// isPublicPath matches a public path and its sub-paths, but not paths that
// only share a prefix (/healthz is not public).
func isPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}
	for p := range publicPaths {
		if strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func changesInventory(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost:
		return !readOnlyPosts[r.URL.Path]
	case http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

type authErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeAuthError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", challenge(err))
	}
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(authErrorResponse{
		Code:    status,
		Message: err.Error(),
	})
}

func challenge(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return `Basic realm="inventory"`
	case errors.Is(err, auth.ErrInvalidAPIKey):
		return "API-Key"
	case errors.Is(err, auth.ErrInvalidToken):
		return `Bearer realm="inventory", error="invalid_token"`
	default:
		return `Basic realm="inventory", API-Key`
	}
}
