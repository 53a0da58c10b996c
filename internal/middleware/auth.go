package middleware

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// KeySource returns the API key clients must present. An empty key turns
// authentication off.
type KeySource interface {
	ServerAPIKey() string
}

type KeySourceFunc func() string

func (f KeySourceFunc) ServerAPIKey() string { return f() }

type AuthMiddleware struct {
	keys   KeySource
	logger *slog.Logger
}

func NewAuthMiddleware(keys KeySource, logger *slog.Logger) Middleware {
	am := &AuthMiddleware{
		keys:   keys,
		logger: logger,
	}

	return am.middleware
}

func (am *AuthMiddleware) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := am.authenticate(r); err != nil {
			am.logger.Warn("Authentication failed", "error", err, "remote_addr", r.RemoteAddr)
			http.Error(w, "API key not authorized", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (am *AuthMiddleware) authenticate(r *http.Request) error {
	expected := am.keys.ServerAPIKey()
	if r.Method == http.MethodOptions || expected == "" {
		return nil
	}

	var token string

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	} else if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		token = apiKey
	}

	if token == "" {
		return errors.New("no authentication token provided")
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return errors.New("invalid API key")
	}

	return nil
}
