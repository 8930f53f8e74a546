package logout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "pet_adoption/internal/lib/api/response"
	"pet_adoption/internal/lib/jwt"
	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/middleware/jwtauth"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

const msgLoggedOut = "Logged out"

type LogoutProvider interface {
	Logout(ctx context.Context, claims *jwt.Claims) error
}

// New godoc
// @Summary      Log out
// @Description  Revokes the presented access token until it expires. Without a revocation store the call succeeds but the token stays valid.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Router       /api/auth/logout [post]
func New(log *slog.Logger, logoutProvider LogoutProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

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

		if err := logoutProvider.Logout(ctx, claims); err != nil {
			log.Error("failed to logout user", sl.Err(err))

			resp.DomainError(w, r, err)

			return
		}

		log.Info("user logged out successfully")

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, resp.Message(msgLoggedOut))
}
