package verify

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

const msgVerified = "Email verified successfully! You can now login."

type Verifier interface {
	VerifyEmail(ctx context.Context, token string) error
}

// New godoc
// @Summary      Verify email
// @Description  Consumes the token from the verification email. A token works once and expires after 24 hours.
// @Tags         auth
// @Produce      json
// @Param        token  query  string  true  "Verification token"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/auth/verify-email [get]
func New(log *slog.Logger, verifier Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := r.URL.Query().Get("token")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := verifier.VerifyEmail(ctx, token); err != nil {
			log.Info("verification rejected", sl.Err(err))

			resp.DomainError(w, r, err,
				auth.ErrInvalidVerificationToken,
				auth.ErrVerificationTokenExpired,
			)

			return
		}

		log.Info("email verified")

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, resp.Message(msgVerified))
}
