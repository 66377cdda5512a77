package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/honeynil/TrustPay/internal/handler/respond"
	"github.com/honeynil/TrustPay/internal/infrastructure/redis"
	"github.com/honeynil/TrustPay/internal/models"
	pkgerrors "github.com/honeynil/TrustPay/pkg/errors"
)

type contextKey struct{}

// AuthMiddleware is the single guard in front of every owner-scoped route.
// It rejects requests without a valid, unrevoked bearer token and stores the
// caller's claims in the request context.
func AuthMiddleware(tokens *TokenManager, cache redis.RedisClient) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respond.Error(w, pkgerrors.ErrMissingToken)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
				respond.Error(w, pkgerrors.ErrMissingToken)
				return
			}

			claims, err := tokens.Validate(strings.TrimSpace(parts[1]))
			if err != nil {
				slog.Warn("token rejected", "path", r.URL.Path, "error", err)
				respond.Error(w, err)
				return
			}

			revoked, err := cache.Exists(r.Context(), RevokedKey(claims.ID))
			if err != nil {
				slog.Error("failed to check token revocation", "user_id", claims.UserID, "error", err)
			}
			if revoked {
				slog.Warn("revoked token used", "user_id", claims.UserID)
				respond.Error(w, pkgerrors.ErrTokenRevoked)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func WithClaims(ctx context.Context, claims *models.Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// ClaimsFromContext returns the identity stored by AuthMiddleware.
func ClaimsFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*models.Claims)
	return claims, ok && claims != nil
}
