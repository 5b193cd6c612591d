package auth

import (
	"context"
	"net/http"
	"strings"

	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	"github.com/oshokin/boiler-alarm/internal/logger"
)

type contextKey struct{}

// WithActor stores the authenticated operator in ctx.
func WithActor(ctx context.Context, actor *domain.Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// ActorFromContext returns the authenticated operator, or nil.
func ActorFromContext(ctx context.Context) *domain.Actor {
	actor, _ := ctx.Value(contextKey{}).(*domain.Actor)

	return actor
}

// Middleware rejects requests without a valid bearer token and stores the
// operator in the request context.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := Parse(extractBearer(r), secret)
			if err != nil {
				logger.WarnKV(r.Context(), "Operator request rejected", "path", r.URL.Path, "error", err)
				http.Error(w, "unauthorized", http.StatusUnauthorized)

				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), claims.Actor())))
		})
	}
}

func extractBearer(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return parts[1]
}
