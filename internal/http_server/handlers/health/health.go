package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "pet_adoption/internal/lib/api/response"
	"pet_adoption/internal/lib/logger/sl"

	"github.com/go-chi/render"
)

// Checker reports whether a backing store is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// New godoc
// @Summary   Health check
// @Tags      health
// @Produce   json
// @Success   200  {object}  response.Response
// @Failure   503  {object}  response.Response
// @Router    /health [get]
func New(log *slog.Logger, checker Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.Ping(ctx); err != nil {
			log.Error("health check failed", slog.String("op", "handlers.health.New"), sl.Err(err))

			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, resp.Error("storage unavailable"))

			return
		}

		render.JSON(w, r, resp.OK())
	}
}
