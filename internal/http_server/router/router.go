// Package router assembles the HTTP surface of the service.
package router

import (
	"log/slog"
	"net/http"

	_ "pet_adoption/docs"
	"pet_adoption/internal/animals"
	"pet_adoption/internal/auth"
	"pet_adoption/internal/http_server/handlers/animal"
	"pet_adoption/internal/http_server/handlers/health"
	intakeRequest "pet_adoption/internal/http_server/handlers/intake_request"
	"pet_adoption/internal/http_server/handlers/login"
	"pet_adoption/internal/http_server/handlers/logout"
	"pet_adoption/internal/http_server/handlers/me"
	"pet_adoption/internal/http_server/handlers/register"
	resendEmail "pet_adoption/internal/http_server/handlers/resend_verification_email"
	"pet_adoption/internal/http_server/handlers/user"
	"pet_adoption/internal/http_server/handlers/verify"
	"pet_adoption/internal/intake"
	"pet_adoption/internal/middleware/jwtauth"
	rateLimit "pet_adoption/internal/middleware/ratelimit"
	"pet_adoption/internal/users"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Deps struct {
	Auth           *auth.Auth
	Animals        *animals.Service
	Intake         *intake.Service
	Users          *users.Service
	Health         health.Checker
	AllowedOrigins []string
	// DisableRateLimit is set by tests that hit the auth routes repeatedly.
	DisableRateLimit bool
}

func New(log *slog.Logger, d Deps) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	limit := func(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
		if d.DisableRateLimit {
			return func(next http.Handler) http.Handler { return next }
		}
		return mw
	}

	r.Get("/health", health.New(log, d.Health))
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(limit(rateLimit.Register())).Post("/register", register.New(log, d.Auth))
			r.With(limit(rateLimit.Login())).Post("/login", login.New(log, validate, d.Auth))
			r.With(limit(rateLimit.Verify())).Get("/verify-email", verify.New(log, d.Auth))
			r.With(limit(rateLimit.Resend())).Post("/verify-email/resend", resendEmail.New(log, validate, d.Auth))

			r.Group(func(r chi.Router) {
				r.Use(jwtauth.New(log, d.Auth))

				r.With(limit(rateLimit.Logout())).Post("/logout", logout.New(log, d.Auth))
				r.Get("/me", me.New(log, d.Auth))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.New(log, d.Auth))

			r.Route("/animals", func(r chi.Router) {
				r.Get("/", animal.List(log, d.Animals))
				r.Post("/", animal.Create(log, validate, d.Animals))
				r.Put("/Request/{id}", animal.RequestAdoption(log, d.Animals))
				r.Put("/Deny/{id}", animal.DenyAdoption(log, d.Animals))
				r.Get("/{id}", animal.Get(log, d.Animals))
				r.Put("/{id}", animal.Update(log, validate, d.Animals))
				r.Delete("/{id}", animal.Delete(log, d.Animals))
				r.Post("/{id}/accept-adoption", animal.AcceptAdoption(log, d.Animals))
			})

			r.Route("/requests", func(r chi.Router) {
				r.Get("/", intakeRequest.List(log, d.Intake))
				r.Post("/", intakeRequest.Create(log, validate, d.Intake))
				r.Get("/{id}", intakeRequest.Get(log, d.Intake))
				r.Put("/{id}", intakeRequest.Update(log, validate, d.Intake))
				r.Delete("/{id}", intakeRequest.Delete(log, d.Intake))
			})

			r.Get("/users", user.List(log, d.Users))
			r.Get("/users/{id}", user.Get(log, d.Users))
			r.Get("/roles", user.Roles(log, d.Users))
			r.Post("/user/role/add/{userId}/{roleName}", user.AddRole(log, d.Users))
		})
	})

	return r
}
