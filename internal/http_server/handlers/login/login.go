package login

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"pet_adoption/internal/auth"
	resp "pet_adoption/internal/lib/api/response"
	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Username string `json:"username" validate:"required"`
	Pass     string `json:"password" validate:"required"`
}

type Response struct {
	resp.Response
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type LoginProvider interface {
	Login(ctx context.Context, username, password, ip string) (string, models.User, error)
}

// New godoc
// @Summary      Log in
// @Description  Exchanges username and password for an HS512 access token.
// @Description  Unknown users and wrong passwords share one error message; unverified accounts are rejected.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  login.Request  true  "Credentials"
// @Success      200  {object}  login.Response
// @Failure      400  {object}  response.Response
// @Failure      429  {object}  response.Response
// @Router       /api/auth/login [post]
func New(log *slog.Logger, validate *validator.Validate, loginProvider LoginProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

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

		if err := validate.Struct(req); err != nil {
			log.Info("Invalid request", sl.Err(err))

			resp.BadRequest(w, r, auth.ErrInvalidCredentials.Error())

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		token, user, err := loginProvider.Login(ctx, req.Username, req.Pass, clientIP(r))
		if err != nil {
			log.Info("login rejected", sl.Err(err))

			resp.DomainError(w, r, err,
				auth.ErrInvalidCredentials,
				auth.ErrEmailNotVerified,
			)

			return
		}

		log.Info("User logged in successfully")

		ResponseOK(w, r, token, user)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, token string, user models.User) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
		Token:    token,
		User:     user,
	})
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
