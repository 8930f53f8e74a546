// Package storagetest holds the behaviour every storage driver must share.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"
)

type Repository interface {
	SaveUser(ctx context.Context, u models.User) (int64, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
	UserByVerificationToken(ctx context.Context, token string) (models.User, error)
	Users(ctx context.Context) ([]models.User, error)
	UsersByRole(ctx context.Context, role string) ([]models.User, error)
	ConsumeVerificationToken(ctx context.Context, userID int64, token string) error
	SetVerificationToken(ctx context.Context, userID int64, token string, expiry time.Time) error
	SetLastLogin(ctx context.Context, userID int64, at time.Time) error
	AddUserRole(ctx context.Context, userID int64, roleName string) error

	SaveRole(ctx context.Context, name string) (models.Role, error)
	RoleByName(ctx context.Context, name string) (models.Role, error)
	Roles(ctx context.Context) ([]models.Role, error)

	SaveAnimal(ctx context.Context, a models.Animal) (int64, error)
	Animal(ctx context.Context, id int64) (models.Animal, error)
	AnimalByName(ctx context.Context, name string) (models.Animal, error)
	Animals(ctx context.Context) ([]models.Animal, error)
	AnimalsByState(ctx context.Context, state models.AdoptionState) ([]models.Animal, error)
	UpdateAnimal(ctx context.Context, a models.Animal) error
	SetAdoptionState(ctx context.Context, id int64, state models.AdoptionState, ownerID *int64) error
	DeleteAnimal(ctx context.Context, id int64) error

	SaveRequest(ctx context.Context, req models.IntakeRequest) (int64, error)
	Request(ctx context.Context, id int64) (models.IntakeRequest, error)
	RequestByName(ctx context.Context, name string) (models.IntakeRequest, error)
	Requests(ctx context.Context) ([]models.IntakeRequest, error)
	UpdateRequest(ctx context.Context, req models.IntakeRequest) error
	DeleteRequest(ctx context.Context, id int64) error
}

// Run exercises repo, which must be freshly migrated and empty.
func Run(t *testing.T, repo Repository) {
	t.Run("Roles", func(t *testing.T) { testRoles(t, repo) })
	t.Run("Users", func(t *testing.T) { testUsers(t, repo) })
	t.Run("Animals", func(t *testing.T) { testAnimals(t, repo) })
	t.Run("Requests", func(t *testing.T) { testRequests(t, repo) })
}

func testRoles(t *testing.T, repo Repository) {
	ctx := context.Background()

	first, err := repo.SaveRole(ctx, models.RoleUser)
	if err != nil {
		t.Fatalf("save role: %v", err)
	}

	again, err := repo.SaveRole(ctx, models.RoleUser)
	if err != nil {
		t.Fatalf("save role twice: %v", err)
	}
	if first.ID != again.ID {
		t.Fatalf("expected same role id, got %d and %d", first.ID, again.ID)
	}

	if _, err := repo.SaveRole(ctx, models.RoleShelter); err != nil {
		t.Fatalf("save role: %v", err)
	}

	roles, err := repo.Roles(ctx)
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(roles))
	}

	if _, err := repo.RoleByName(ctx, "ROLE_NOPE"); !errors.Is(err, storage.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func testUsers(t *testing.T, repo Repository) {
	ctx := context.Background()

	token := "token-1"
	expiry := time.Now().Add(24 * time.Hour).Truncate(time.Second)

	id, err := repo.SaveUser(ctx, models.User{
		Username:                "alice",
		Email:                   "alice@example.com",
		PassHash:                []byte("hash"),
		Roles:                   []string{models.RoleUser},
		VerificationToken:       &token,
		VerificationTokenExpiry: &expiry,
	})
	if err != nil {
		t.Fatalf("save user: %v", err)
	}

	_, err = repo.SaveUser(ctx, models.User{Username: "alice", Email: "other@example.com", PassHash: []byte("x")})
	if !errors.Is(err, storage.ErrUsernameExists) {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}

	_, err = repo.SaveUser(ctx, models.User{Username: "other", Email: "alice@example.com", PassHash: []byte("x")})
	if !errors.Is(err, storage.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	_, err = repo.SaveUser(ctx, models.User{Username: "ghost", Email: "ghost@example.com", PassHash: []byte("x"), Roles: []string{"ROLE_NOPE"}})
	if !errors.Is(err, storage.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
	if _, err := repo.UserByUsername(ctx, "ghost"); !errors.Is(err, storage.ErrUserNotFound) {
		t.Fatalf("user with unknown role must not be persisted, got %v", err)
	}

	u, err := repo.UserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("user by username: %v", err)
	}
	if u.ID != id || u.Email != "alice@example.com" || string(u.PassHash) != "hash" || u.EmailVerified {
		t.Fatalf("unexpected user %+v", u)
	}
	if len(u.Roles) != 1 || u.Roles[0] != models.RoleUser {
		t.Fatalf("unexpected roles %v", u.Roles)
	}
	if u.VerificationTokenExpiry == nil || !u.VerificationTokenExpiry.Equal(expiry) {
		t.Fatalf("expiry = %v, want %v", u.VerificationTokenExpiry, expiry)
	}

	if _, err := repo.UserByEmail(ctx, "alice@example.com"); err != nil {
		t.Fatalf("user by email: %v", err)
	}
	if _, err := repo.UserByID(ctx, 99999); !errors.Is(err, storage.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	byToken, err := repo.UserByVerificationToken(ctx, token)
	if err != nil || byToken.ID != id {
		t.Fatalf("user by token: %+v, %v", byToken, err)
	}

	reissued := "token-2"
	if err := repo.SetVerificationToken(ctx, id, reissued, expiry.Add(time.Hour)); err != nil {
		t.Fatalf("set verification token: %v", err)
	}
	if _, err := repo.UserByVerificationToken(ctx, token); !errors.Is(err, storage.ErrTokenNotFound) {
		t.Fatalf("replaced token: expected ErrTokenNotFound, got %v", err)
	}
	if err := repo.SetVerificationToken(ctx, 99999, "token-x", expiry); !errors.Is(err, storage.ErrUserNotFound) {
		t.Fatalf("unknown user: expected ErrUserNotFound, got %v", err)
	}
	token = reissued

	if err := repo.ConsumeVerificationToken(ctx, id, token); err != nil {
		t.Fatalf("consume token: %v", err)
	}
	if err := repo.ConsumeVerificationToken(ctx, id, token); !errors.Is(err, storage.ErrTokenNotFound) {
		t.Fatalf("second consume: expected ErrTokenNotFound, got %v", err)
	}
	if _, err := repo.UserByVerificationToken(ctx, token); !errors.Is(err, storage.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}

	verified, err := repo.UserByID(ctx, id)
	if err != nil {
		t.Fatalf("user by id: %v", err)
	}
	if !verified.EmailVerified || verified.VerificationToken != nil || verified.VerificationTokenExpiry != nil {
		t.Fatalf("token fields not cleared: %+v", verified)
	}

	at := time.Now().Truncate(time.Second)
	if err := repo.SetLastLogin(ctx, id, at); err != nil {
		t.Fatalf("set last login: %v", err)
	}
	logged, _ := repo.UserByID(ctx, id)
	if logged.LastLogin == nil || !logged.LastLogin.Equal(at) {
		t.Fatalf("last login = %v, want %v", logged.LastLogin, at)
	}

	if err := repo.AddUserRole(ctx, id, models.RoleShelter); err != nil {
		t.Fatalf("add role: %v", err)
	}
	if err := repo.AddUserRole(ctx, id, models.RoleShelter); err != nil {
		t.Fatalf("add role twice: %v", err)
	}
	if err := repo.AddUserRole(ctx, id, "ROLE_NOPE"); !errors.Is(err, storage.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
	if err := repo.AddUserRole(ctx, 99999, models.RoleUser); !errors.Is(err, storage.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	shelters, err := repo.UsersByRole(ctx, models.RoleShelter)
	if err != nil {
		t.Fatalf("users by role: %v", err)
	}
	if len(shelters) != 1 || len(shelters[0].Roles) != 2 {
		t.Fatalf("unexpected shelter users %+v", shelters)
	}

	all, err := repo.Users(ctx)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 user, got %d", len(all))
	}
}

func testAnimals(t *testing.T, repo Repository) {
	ctx := context.Background()

	owner, err := repo.UserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("owner: %v", err)
	}

	id, err := repo.SaveAnimal(ctx, models.Animal{Age: 2, Gender: models.GenderFemale, Type: "Cat", Name: "Pepper"})
	if err != nil {
		t.Fatalf("save animal: %v", err)
	}

	a, err := repo.Animal(ctx, id)
	if err != nil {
		t.Fatalf("animal: %v", err)
	}
	if a.AdoptionState != models.AdoptionNone || a.OwnerID != nil || a.Name != "Pepper" {
		t.Fatalf("unexpected animal %+v", a)
	}

	if err := repo.SetAdoptionState(ctx, id, models.AdoptionPending, &owner.ID); err != nil {
		t.Fatalf("set state: %v", err)
	}

	pending, err := repo.AnimalsByState(ctx, models.AdoptionPending)
	if err != nil {
		t.Fatalf("by state: %v", err)
	}
	if len(pending) != 1 || pending[0].OwnerID == nil || *pending[0].OwnerID != owner.ID {
		t.Fatalf("unexpected pending animals %+v", pending)
	}

	a.Age = 3
	a.Name = "Pepper II"
	if err := repo.UpdateAnimal(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}

	updated, err := repo.AnimalByName(ctx, "Pepper II")
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	if updated.Age != 3 || updated.AdoptionState != models.AdoptionPending {
		t.Fatalf("update must keep adoption state: %+v", updated)
	}

	if err := repo.UpdateAnimal(ctx, models.Animal{ID: 99999, Gender: models.GenderMale}); !errors.Is(err, storage.ErrAnimalNotFound) {
		t.Fatalf("expected ErrAnimalNotFound, got %v", err)
	}
	if err := repo.SetAdoptionState(ctx, 99999, models.AdoptionDenied, nil); !errors.Is(err, storage.ErrAnimalNotFound) {
		t.Fatalf("expected ErrAnimalNotFound, got %v", err)
	}

	all, err := repo.Animals(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("animals: %v, %v", all, err)
	}

	if err := repo.DeleteAnimal(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteAnimal(ctx, id); !errors.Is(err, storage.ErrAnimalNotFound) {
		t.Fatalf("expected ErrAnimalNotFound, got %v", err)
	}
	if _, err := repo.Animal(ctx, id); !errors.Is(err, storage.ErrAnimalNotFound) {
		t.Fatalf("expected ErrAnimalNotFound, got %v", err)
	}
}

func testRequests(t *testing.T, repo Repository) {
	ctx := context.Background()

	id, err := repo.SaveRequest(ctx, models.IntakeRequest{Age: 8, Gender: models.GenderMale, Type: "Dog", Name: "Alex"})
	if err != nil {
		t.Fatalf("save request: %v", err)
	}

	got, err := repo.RequestByName(ctx, "Alex")
	if err != nil || got.ID != id {
		t.Fatalf("by name: %+v, %v", got, err)
	}

	got.Type = "Wolf"
	if err := repo.UpdateRequest(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	updated, err := repo.Request(ctx, id)
	if err != nil || updated.Type != "Wolf" {
		t.Fatalf("request: %+v, %v", updated, err)
	}

	all, err := repo.Requests(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("requests: %v, %v", all, err)
	}

	if err := repo.DeleteRequest(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Request(ctx, id); !errors.Is(err, storage.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
	if err := repo.UpdateRequest(ctx, models.IntakeRequest{ID: id, Gender: models.GenderMale}); !errors.Is(err, storage.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}
