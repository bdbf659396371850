package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/auth"
)

// publicPaths bypass authentication, along with their sub-paths.
var publicPaths = []string{"/health", "/metrics"}

// Auth rejects requests the authenticator does not accept. Public paths and
// CORS preflight pass through; websocket upgrades are authenticated like any
// other request. A nil authenticator disables the check.
func Auth(authenticator auth.Authenticator, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if authenticator == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := authenticator.Authenticate(r)
			if err != nil {
				logger.Warn("authentication failed",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				w.Header().Set("WWW-Authenticate", challenge(err))
				writeJSONError(w, http.StatusUnauthorized, err.Error())
				return
			}

			logger.Debug("authentication successful",
				zap.String("subject", principal.Subject),
				zap.String("method", string(principal.Method)),
			)
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// isPublicPath matches /health and /health/live but not /healthz.
func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// challenge picks the WWW-Authenticate value for err.
func challenge(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return `Basic realm="inventory"`
	case errors.Is(err, auth.ErrInvalidAPIKey):
		return "API-Key"
	default:
		return `Basic realm="inventory", API-Key`
	}
}
