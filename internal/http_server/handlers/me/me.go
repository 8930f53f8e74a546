package me

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pet_adoption/internal/auth"
	resp "pet_adoption/internal/lib/api/response"
	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/middleware/jwtauth"
	"pet_adoption/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type UserProvider interface {
	Me(ctx context.Context, username string) (models.User, error)
}

// New godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      401  {object}  response.Response
// @Router       /api/auth/me [get]
func New(log *slog.Logger, provider UserProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.me.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		claims, ok := jwtauth.ClaimsFromContext(r.Context())
		if !ok {
			resp.Unauthorized(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		user, err := provider.Me(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				resp.Unauthorized(w, r)
				return
			}

			log.Error("failed to load user", sl.Err(err))
			resp.DomainError(w, r, err)

			return
		}

		render.JSON(w, r, user)
	}
}
