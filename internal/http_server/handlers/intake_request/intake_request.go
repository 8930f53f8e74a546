// Package intakeRequest serves /api/requests.
package intakeRequest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pet_adoption/internal/intake"
	"pet_adoption/internal/lib/api/params"
	resp "pet_adoption/internal/lib/api/response"
	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Age    int    `json:"age" validate:"gte=0"`
	Gender string `json:"gender" validate:"required,oneof=Male Female"`
	Type   string `json:"type"`
	Name   string `json:"name" validate:"required"`
}

type IntakeService interface {
	List(ctx context.Context) ([]models.IntakeRequest, error)
	Get(ctx context.Context, id int64) (models.IntakeRequest, error)
	Create(ctx context.Context, req models.IntakeRequest) (models.IntakeRequest, error)
	Update(ctx context.Context, id int64, req models.IntakeRequest) (models.IntakeRequest, error)
	Delete(ctx context.Context, id int64) error
}

func handle(
	log *slog.Logger,
	op string,
	fn func(ctx context.Context, w http.ResponseWriter, r *http.Request) (any, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		out, err := fn(ctx, w, r)
		if err != nil {
			var validateErr validator.ValidationErrors
			switch {
			case errors.As(err, &validateErr):
				log.Info("Invalid request", sl.Err(err))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.ValidationError(validateErr))
			case errors.Is(err, errDecode):
				log.Error("Failed to decode request body", sl.Err(err))
				resp.BadRequest(w, r, resp.MsgDecodeFailed)
			default:
				log.Info("request rejected", sl.Err(err))
				resp.DomainError(w, r, err, intake.ErrRequestNotFound, params.ErrInvalidID)
			}

			return
		}

		if out == nil {
			render.NoContent(w, r)
			return
		}

		render.JSON(w, r, out)
	}
}

var errDecode = errors.New("decode request")

func decode(validate *validator.Validate, r *http.Request) (models.IntakeRequest, error) {
	var req Request

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		return models.IntakeRequest{}, errors.Join(errDecode, err)
	}

	if err := validate.Struct(req); err != nil {
		return models.IntakeRequest{}, err
	}

	return models.IntakeRequest{
		Age:    req.Age,
		Gender: models.Gender(req.Gender),
		Type:   req.Type,
		Name:   req.Name,
	}, nil
}

// List godoc
// @Summary   List intake requests
// @Tags      requests
// @Produce   json
// @Security  BearerAuth
// @Success   200  {array}  models.IntakeRequest
// @Router    /api/requests [get]
func List(log *slog.Logger, svc IntakeService) http.HandlerFunc {
	return handle(log, "handlers.intakeRequest.List", func(ctx context.Context, _ http.ResponseWriter, _ *http.Request) (any, error) {
		return svc.List(ctx)
	})
}

// Get godoc
// @Summary   Get an intake request
// @Tags      requests
// @Produce   json
// @Security  BearerAuth
// @Param     id   path      int  true  "Request id"
// @Success   200  {object}  models.IntakeRequest
// @Failure   400  {object}  response.Response
// @Router    /api/requests/{id} [get]
func Get(log *slog.Logger, svc IntakeService) http.HandlerFunc {
	return handle(log, "handlers.intakeRequest.Get", func(ctx context.Context, _ http.ResponseWriter, r *http.Request) (any, error) {
		id, err := params.ID(r, "id")
		if err != nil {
			return nil, err
		}

		return svc.Get(ctx, id)
	})
}

// Create godoc
// @Summary   Propose an animal for intake
// @Tags      requests
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     body  body      intakeRequest.Request  true  "Intake request"
// @Success   200   {object}  models.IntakeRequest
// @Failure   400   {object}  response.Response
// @Router    /api/requests [post]
func Create(log *slog.Logger, validate *validator.Validate, svc IntakeService) http.HandlerFunc {
	return handle(log, "handlers.intakeRequest.Create", func(ctx context.Context, _ http.ResponseWriter, r *http.Request) (any, error) {
		req, err := decode(validate, r)
		if err != nil {
			return nil, err
		}

		return svc.Create(ctx, req)
	})
}

// Update godoc
// @Summary   Update an intake request
// @Tags      requests
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     id    path      int                    true  "Request id"
// @Param     body  body      intakeRequest.Request  true  "Intake request"
// @Success   200   {object}  models.IntakeRequest
// @Failure   400   {object}  response.Response
// @Router    /api/requests/{id} [put]
func Update(log *slog.Logger, validate *validator.Validate, svc IntakeService) http.HandlerFunc {
	return handle(log, "handlers.intakeRequest.Update", func(ctx context.Context, _ http.ResponseWriter, r *http.Request) (any, error) {
		id, err := params.ID(r, "id")
		if err != nil {
			return nil, err
		}

		req, err := decode(validate, r)
		if err != nil {
			return nil, err
		}

		return svc.Update(ctx, id, req)
	})
}

// Delete godoc
// @Summary   Delete an intake request
// @Tags      requests
// @Security  BearerAuth
// @Param     id   path  int  true  "Request id"
// @Success   204
// @Failure   400  {object}  response.Response
// @Router    /api/requests/{id} [delete]
func Delete(log *slog.Logger, svc IntakeService) http.HandlerFunc {
	return handle(log, "handlers.intakeRequest.Delete", func(ctx context.Context, _ http.ResponseWriter, r *http.Request) (any, error) {
		id, err := params.ID(r, "id")
		if err != nil {
			return nil, err
		}

		return nil, svc.Delete(ctx, id)
	})
}
