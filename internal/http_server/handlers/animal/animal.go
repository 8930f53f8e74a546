// Package animal serves /api/animals, including the adoption workflow.
package animal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pet_adoption/internal/animals"
	"pet_adoption/internal/lib/api/params"
	resp "pet_adoption/internal/lib/api/response"
	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/middleware/jwtauth"
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

func (req Request) toAnimal() models.Animal {
	return models.Animal{
		Age:    req.Age,
		Gender: models.Gender(req.Gender),
		Type:   req.Type,
		Name:   req.Name,
	}
}

type AnimalService interface {
	List(ctx context.Context) ([]models.Animal, error)
	Get(ctx context.Context, id int64) (models.Animal, error)
	Create(ctx context.Context, a models.Animal) (models.Animal, error)
	Update(ctx context.Context, id int64, a models.Animal) (models.Animal, error)
	Delete(ctx context.Context, id int64) error
	RequestAdoption(ctx context.Context, id int64, username string) (models.Animal, error)
	DenyAdoption(ctx context.Context, id int64) (models.Animal, error)
	AcceptAdoption(ctx context.Context, id int64) error
}

var knownErrors = []error{
	animals.ErrAnimalNotFound,
	animals.ErrUserNotFound,
	params.ErrInvalidID,
}

func logger(log *slog.Logger, op string, r *http.Request) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func fail(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, animals.ErrAnimalNotFound) || errors.Is(err, params.ErrInvalidID) {
		log.Info("request rejected", sl.Err(err))
	} else {
		log.Error("request failed", sl.Err(err))
	}

	resp.DomainError(w, r, err, knownErrors...)
}

func decode(log *slog.Logger, validate *validator.Validate, w http.ResponseWriter, r *http.Request) (Request, bool) {
	var req Request

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("Failed to decode request body", sl.Err(err))
		resp.BadRequest(w, r, resp.MsgDecodeFailed)
		return Request{}, false
	}

	if err := validate.Struct(req); err != nil {
		var validateErr validator.ValidationErrors
		if !errors.As(err, &validateErr) {
			resp.BadRequest(w, r, resp.MsgDecodeFailed)
			return Request{}, false
		}

		log.Info("Invalid request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.ValidationError(validateErr))
		return Request{}, false
	}

	return req, true
}

// List godoc
// @Summary   List animals
// @Tags      animals
// @Produce   json
// @Security  BearerAuth
// @Success   200  {array}   models.Animal
// @Failure   401  {object}  response.Response
// @Router    /api/animals [get]
func List(log *slog.Logger, svc AnimalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger(log, "handlers.animal.List", r)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := svc.List(ctx)
		if err != nil {
			fail(log, w, r, err)
			return
		}

		render.JSON(w, r, list)
	}
}

// Get godoc
// @Summary   Get an animal
// @Tags      animals
// @Produce   json
// @Security  BearerAuth
// @Param     id   path      int  true  "Animal id"
// @Success   200  {object}  models.Animal
// @Failure   400  {object}  response.Response
// @Router    /api/animals/{id} [get]
func Get(log *slog.Logger, svc AnimalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger(log, "handlers.animal.Get", r)

		id, err := params.ID(r, "id")
		if err != nil {
			fail(log, w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		a, err := svc.Get(ctx, id)
		if err != nil {
			fail(log, w, r, err)
			return
		}

		render.JSON(w, r, a)
	}
}

// Create godoc
// @Summary   Add an animal
// @Tags      animals
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     body  body      animal.Request  true  "Animal"
// @Success   200   {object}  models.Animal
// @Failure   400   {object}  response.Response
// @Router    /api/animals [post]
func Create(log *slog.Logger, validate *validator.Validate, svc AnimalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger(log, "handlers.animal.Create", r)

		req, ok := decode(log, validate, w, r)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		a, err := svc.Create(ctx, req.toAnimal())
		if err != nil {
			fail(log, w, r, err)
			return
		}

		render.JSON(w, r, a)
	}
}

// Update godoc
// @Summary      Update an animal
// @Description  Replaces age, gender, type and name. The adoption state is not touched.
// @Tags         animals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int             true  "Animal id"
// @Param        body  body      animal.Request  true  "Animal"
// @Success      200   {object}  models.Animal
// @Failure      400   {object}  response.Response
// @Router       /api/animals/{id} [put]
func Update(log *slog.Logger, validate *validator.Validate, svc AnimalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger(log, "handlers.animal.Update", r)

		id, err := params.ID(r, "id")
		if err != nil {
			fail(log, w, r, err)
			return
		}

		req, ok := decode(log, validate, w, r)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		a, err := svc.Update(ctx, id, req.toAnimal())
		if err != nil {
			fail(log, w, r, err)
			return
		}

		render.JSON(w, r, a)
	}
}

// Delete godoc
// @Summary   Delete an animal
// @Tags      animals
// @Security  BearerAuth
// @Param     id   path  int  true  "Animal id"
// @Success   204
// @Failure   400  {object}  response.Response
// @Router    /api/animals/{id} [delete]
func Delete(log *slog.Logger, svc AnimalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger(log, "handlers.animal.Delete", r)

		id, err := params.ID(r, "id")
		if err != nil {
			fail(log, w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := svc.Delete(ctx, id); err != nil {
			fail(log, w, r, err)
			return
		}

		render.NoContent(w, r)
	}
}

// RequestAdoption godoc
// @Summary      Request an adoption
// @Description  Marks the animal as requested by the calling user.
// @Tags         adoption
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Animal id"
// @Success      200  {object}  models.Animal
// @Failure      400  {object}  response.Response
// @Router       /api/animals/Request/{id} [put]
func RequestAdoption(log *slog.Logger, svc AnimalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger(log, "handlers.animal.RequestAdoption", r)

		claims, ok := jwtauth.ClaimsFromContext(r.Context())
		if !ok {
			resp.Unauthorized(w, r)
			return
		}

		id, err := params.ID(r, "id")
		if err != nil {
			fail(log, w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		a, err := svc.RequestAdoption(ctx, id, claims.Subject)
		if err != nil {
			fail(log, w, r, err)
			return
		}

		render.JSON(w, r, a)
	}
}

// DenyAdoption godoc
// @Summary   Deny an adoption request
// @Tags      adoption
// @Produce   json
// @Security  BearerAuth
// @Param     id   path      int  true  "Animal id"
// @Success   200  {object}  models.Animal
// @Failure   400  {object}  response.Response
// @Router    /api/animals/Deny/{id} [put]
func DenyAdoption(log *slog.Logger, svc AnimalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger(log, "handlers.animal.DenyAdoption", r)

		id, err := params.ID(r, "id")
		if err != nil {
			fail(log, w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		a, err := svc.DenyAdoption(ctx, id)
		if err != nil {
			fail(log, w, r, err)
			return
		}

		render.JSON(w, r, a)
	}
}

// AcceptAdoption godoc
// @Summary      Accept an adoption
// @Description  Emails the requesting user, if any, and deletes the animal.
// @Tags         adoption
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Animal id"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/animals/{id}/accept-adoption [post]
func AcceptAdoption(log *slog.Logger, svc AnimalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger(log, "handlers.animal.AcceptAdoption", r)

		id, err := params.ID(r, "id")
		if err != nil {
			fail(log, w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := svc.AcceptAdoption(ctx, id); err != nil {
			fail(log, w, r, err)
			return
		}

		log.Info("adoption accepted", slog.Int64("id", id))

		render.JSON(w, r, resp.Message(animals.AcceptedMessage))
	}
}
