package middleware

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/ytvaala/ytvaala/internal/apperr"
	"github.com/ytvaala/ytvaala/internal/auth"
	"github.com/ytvaala/ytvaala/internal/router"
)

var (
	bearerPattern = regexp.MustCompile(`(?i)^Bearer\s+(.+)$`)

	errMissingToken = apperr.Unauthorized("Missing authorization token")
	errInvalidToken = apperr.Unauthorized("Invalid or expired token")
)

// AuthConfig holds configuration for the auth gate.
type AuthConfig struct {
	Logger   *slog.Logger
	Verifier auth.TokenVerifier
}

// AuthGate returns an auth-tagged router middleware that requires a valid
// bearer token. On success the identity is attached to both the router
// context and the request's context.Context. It never reads persistence.
func AuthGate(cfg AuthConfig) router.Middleware {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return router.NewAuthMiddleware("auth", func(c *router.Context, next router.Next) (any, error) {
		r := c.Request

		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			logger.Warn("authentication failed",
				slog.String("reason", "missing_token"),
				slog.String("ip", r.RemoteAddr),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)
			return nil, errMissingToken
		}

		identity, err := cfg.Verifier.Verify(token)
		if err != nil {
			logger.Warn("authentication failed",
				slog.String("reason", "invalid_token"),
				slog.String("ip", r.RemoteAddr),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)
			return nil, errInvalidToken.Wrap(err)
		}

		c.Identity = identity
		c.Request = r.WithContext(auth.ContextWithIdentity(r.Context(), identity))

		return next()
	})
}

// extractBearerToken returns the token of an "Authorization: Bearer <token>"
// header value, or "" when the header is absent or uses another scheme.
func extractBearerToken(header string) string {
	m := bearerPattern.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
