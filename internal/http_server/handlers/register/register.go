package register

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"pet_adoption/internal/auth"
	resp "pet_adoption/internal/lib/api/response"
	"pet_adoption/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

const msgRegistered = "Registration successful. Please check your email to verify your account."

type Request struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Pass     string `json:"password"`
}

type Registerer interface {
	Register(ctx context.Context, username, email, password string) (int64, error)
}

// New godoc
// @Summary      Register a new account
// @Description  Creates an unverified user with ROLE_USER and emails a verification link valid for 24 hours.
// @Description  Blank fields, a taken username and a taken email are rejected with 400.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  register.Request  true  "Account data"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      429  {object}  response.Response
// @Router       /api/auth/register [post]
func New(log *slog.Logger, registerer Registerer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			resp.BadRequest(w, r, resp.MsgDecodeFailed)

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		userID, err := registerer.Register(ctx, req.Username, req.Email, req.Pass)
		if err != nil {
			log.Info("registration rejected", sl.Err(err))

			resp.DomainError(w, r, err,
				auth.ErrUsernameRequired,
				auth.ErrEmailRequired,
				auth.ErrPasswordRequired,
				auth.ErrUsernameExists,
				auth.ErrEmailExists,
			)

			return
		}

		log.Info("User registered", slog.Int64("id", userID))

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, resp.Message(msgRegistered))
}
