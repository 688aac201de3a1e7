package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/idtoken"
)

// PushAuthMiddleware authenticates Pub/Sub push deliveries to the
// dead-letter endpoint. Pub/Sub signs pushes with an OIDC token for the
// configured service account; anything else is rejected before the body
// is read. Local development has no Pub/Sub in front of the endpoint, so
// the check is skipped there.
func PushAuthMiddleware(isLocalDev bool, audience, serviceAccount string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isLocalDev {
				logger.Debug().Msg("Skipping push authentication for local environment")
				next.ServeHTTP(w, r)
				return
			}

			if audience == "" || serviceAccount == "" {
				logger.Error().Msg("Push auth middleware configured without an audience or service account; deliveries will be denied")
				http.Error(w, "Configuration error: audience or service account not set", http.StatusInternalServerError)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				logger.Warn().Msg("Push delivery without a valid bearer token")
				http.Error(w, "Unauthorized: missing or malformed authorization header", http.StatusUnauthorized)
				return
			}

			payload, err := idtoken.Validate(r.Context(), token, audience)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to validate push delivery OIDC token")
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			email, _ := payload.Claims["email"].(string)
			if email == "" {
				logger.Error().Msg("Email claim missing in push delivery token")
				http.Error(w, "Forbidden: invalid email claim in token", http.StatusForbidden)
				return
			}
			if email != serviceAccount {
				logger.Warn().
					Str("token_email", email).
					Str("expected_email", serviceAccount).
					Msg("Push delivery token issued for a different service account")
				http.Error(w, "Forbidden: token email does not match expected service account", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
