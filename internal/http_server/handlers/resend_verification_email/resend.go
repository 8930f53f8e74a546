package resendEmail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pet_adoption/internal/auth"
	resp "pet_adoption/internal/lib/api/response"
	"pet_adoption/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const msgResent = "If the account exists and is not verified yet, a new verification email has been sent."

type Request struct {
	Email string `json:"email" validate:"required,email"`
}

type Resender interface {
	ResendVerification(ctx context.Context, email string) error
}

// New godoc
// @Summary      Resend the verification email
// @Description  Issues a new 24 hour token and invalidates the previous one.
// @Description  The answer is the same whether or not the address belongs to an unverified account.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  resendEmail.Request  true  "Email address"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      429  {object}  response.Response
// @Router       /api/auth/verify-email/resend [post]
func New(log *slog.Logger, validate *validator.Validate, resender Resender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resendEmail.New"

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
			var validateErr validator.ValidationErrors
			if !errors.As(err, &validateErr) {
				resp.BadRequest(w, r, resp.MsgUnexpectedError)
				return
			}

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := resender.ResendVerification(ctx, req.Email); err != nil {
			log.Error("failed to resend verification email", sl.Err(err))

			resp.DomainError(w, r, err, auth.ErrEmailRequired)

			return
		}

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, resp.Message(msgResent))
}
