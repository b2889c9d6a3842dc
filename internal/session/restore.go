package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dymgr/internal/logging"
	"dymgr/internal/services"
)

// Restore validates a token restored from the credential slot according to
// the configured Validation and reports whether the session was demoted to
// Anonymous. With ValidateNone the token is trusted as-is.
func (s *Store) Restore(ctx context.Context) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	token, ok := s.Token()
	if !ok {
		return false
	}
	switch s.validation {
	case ValidateExpiry:
		expiry, known := TokenExpiry(token)
		if !known || s.now().Before(expiry) {
			return false
		}
		s.logger.Info("persisted token expired",
			logging.String("expired_at", expiry.Format(time.RFC3339)),
		)
		s.clear("token expired")
		return true
	case ValidateProfile:
		err := s.fetchProfile(ctx)
		if err == nil {
			return false
		}
		if !errors.Is(err, services.ErrUnauthorized) {
			// Keep the session on timeouts and server errors; only a
			// definitive rejection demotes it.
			logging.WarnWithContext(ctx, s.logger, "startup profile check failed", "profile_fetch_failed",
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.String(logging.FieldImpact, "persisted token kept without validation"),
				logging.Error(err),
			)
			return false
		}
		s.logger.Info("persisted token rejected by backend")
		s.clear("token rejected")
		return true
	default:
		return false
	}
}

// TokenExpiry reads the exp claim of a JWT bearer token without verifying its
// signature. known is false for opaque tokens or tokens without exp.
func TokenExpiry(token string) (expiry time.Time, known bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
