// Package jwtauth authenticates requests by their bearer access token.
package jwtauth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	resp "pet_adoption/internal/lib/api/response"
	"pet_adoption/internal/lib/jwt"
	"pet_adoption/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
)

type ctxKey struct{}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
}

// New rejects requests without a valid token with 401 and stores the claims
// of accepted ones in the request context.
func New(log *slog.Logger, authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.jwtauth"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := bearerToken(r)
			if !ok {
				log.Debug("missing bearer token")
				resp.Unauthorized(w, r)
				return
			}

			claims, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				log.Debug("token rejected", sl.Err(err))
				resp.Unauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by New.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*jwt.Claims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
