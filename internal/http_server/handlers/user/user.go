// Package user serves user listing and role management.
package user

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"pet_adoption/internal/lib/api/params"
	resp "pet_adoption/internal/lib/api/response"
	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/models"
	"pet_adoption/internal/users"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

const msgRoleAdded = "Role added"

type UserService interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id int64) (models.User, error)
	Roles(ctx context.Context) ([]models.Role, error)
	AddRole(ctx context.Context, userID int64, roleName string) error
}

var knownErrors = []error{
	users.ErrUserNotFound,
	users.ErrRoleNotFound,
	params.ErrInvalidID,
}

func logger(log *slog.Logger, op string, r *http.Request) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// List godoc
// @Summary   List users
// @Tags      users
// @Produce   json
// @Security  BearerAuth
// @Success   200  {array}  models.User
// @Router    /api/users [get]
func List(log *slog.Logger, svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger(log, "handlers.user.List", r)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := svc.List(ctx)
		if err != nil {
			log.Error("failed to list users", sl.Err(err))
			resp.DomainError(w, r, err)
			return
		}

		render.JSON(w, r, list)
	}
}

// Get godoc
// @Summary   Get a user
// @Tags      users
// @Produce   json
// @Security  BearerAuth
// @Param     id   path      int  true  "User id"
// @Success   200  {object}  models.User
// @Failure   400  {object}  response.Response
// @Router    /api/users/{id} [get]
func Get(log *slog.Logger, svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger(log, "handlers.user.Get", r)

		id, err := params.ID(r, "id")
		if err != nil {
			resp.BadRequest(w, r, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		u, err := svc.Get(ctx, id)
		if err != nil {
			log.Info("request rejected", sl.Err(err))
			resp.DomainError(w, r, err, knownErrors...)
			return
		}

		render.JSON(w, r, u)
	}
}

// Roles godoc
// @Summary   List roles
// @Tags      users
// @Produce   json
// @Security  BearerAuth
// @Success   200  {array}  models.Role
// @Router    /api/roles [get]
func Roles(log *slog.Logger, svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger(log, "handlers.user.Roles", r)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		roles, err := svc.Roles(ctx)
		if err != nil {
			log.Error("failed to list roles", sl.Err(err))
			resp.DomainError(w, r, err)
			return
		}

		render.JSON(w, r, roles)
	}
}

// AddRole godoc
// @Summary      Attach a role to a user
// @Description  Idempotent. Any authenticated caller may use it.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        userId    path      int     true  "User id"
// @Param        roleName  path      string  true  "Role name, e.g. ROLE_SHELTER"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/user/role/add/{userId}/{roleName} [post]
func AddRole(log *slog.Logger, svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger(log, "handlers.user.AddRole", r)

		userID, err := params.ID(r, "userId")
		if err != nil {
			resp.BadRequest(w, r, err.Error())
			return
		}

		roleName := chi.URLParam(r, "roleName")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := svc.AddRole(ctx, userID, roleName); err != nil {
			log.Info("request rejected", sl.Err(err))
			resp.DomainError(w, r, err, knownErrors...)
			return
		}

		render.JSON(w, r, resp.Message(msgRoleAdded))
	}
}
