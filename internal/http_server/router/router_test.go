package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pet_adoption/internal/animals"
	"pet_adoption/internal/auth"
	"pet_adoption/internal/http_server/router"
	"pet_adoption/internal/intake"
	resp "pet_adoption/internal/lib/api/response"
	"pet_adoption/internal/models"
	"pet_adoption/internal/notification"
	"pet_adoption/internal/seed"
	"pet_adoption/internal/storage/sqlite"
	"pet_adoption/internal/users"
)

type outbox struct {
	mu   sync.Mutex
	msgs []models.Message
}

func (o *outbox) SendMessage(_ context.Context, msg models.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) find(purpose, to string) (models.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.msgs) - 1; i >= 0; i-- {
		if m := o.msgs[i]; m.Purpose == purpose && m.Email == to {
			return m, true
		}
	}
	return models.Message{}, false
}

type env struct {
	h    http.Handler
	repo *sqlite.SQLiteRepo
	box  *outbox
}

func setup(t *testing.T) env {
	t.Helper()

	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(repo.Close)

	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := seed.Run(ctx, log, repo); err != nil {
		t.Fatalf("seed: %v", err)
	}

	box := &outbox{}
	notifier := notification.New(log, box, "http://localhost:8081", time.Second)

	h := router.New(log, router.Deps{
		Auth:             auth.New(log, repo, repo, notifier, nil, "test-secret", time.Hour, 24*time.Hour),
		Animals:          animals.New(log, repo, repo, notifier),
		Intake:           intake.New(log, repo),
		Users:            users.New(log, repo),
		Health:           repo,
		AllowedOrigins:   []string{"*"},
		DisableRateLimit: true,
	})

	return env{h: h, repo: repo, box: box}
}

func (e env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func (e env) login(t *testing.T, username, password string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, rec.Code, rec.Body)
	}

	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decode(t, rec, &out)
	if out.Token == "" {
		t.Fatalf("login %s: empty token", username)
	}

	return out.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, code int, msg string) {
	t.Helper()

	if rec.Code != code {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, code, rec.Body)
	}

	var r resp.Response
	decode(t, rec, &r)
	if r.Status != resp.StatusError || r.Error != msg {
		t.Fatalf("got %+v, want error %q", r, msg)
	}
}

// animalJSON mirrors the wire shape, including the derived req flag.
type animalJSON struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Gender        string `json:"gender"`
	AdoptionState string `json:"adoptionState"`
	Req           int    `json:"req"`
	UserID        *int64 `json:"userId"`
}

func TestRegisterVerifyLogin(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "s3cret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: status %d body %s", rec.Code, rec.Body)
	}

	rec = e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "s3cret",
	})
	expectError(t, rec, http.StatusBadRequest, auth.ErrUsernameExists.Error())

	rec = e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "bob",
		"email":    "alice@example.com",
		"password": "s3cret",
	})
	expectError(t, rec, http.StatusBadRequest, auth.ErrEmailExists.Error())

	rec = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "s3cret",
	})
	expectError(t, rec, http.StatusBadRequest, auth.ErrEmailNotVerified.Error())

	rec = e.do(t, http.MethodPost, "/api/auth/verify-email/resend", "", map[string]string{
		"email": "alice@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("resend: status %d body %s", rec.Code, rec.Body)
	}

	rec = e.do(t, http.MethodPost, "/api/auth/verify-email/resend", "", map[string]string{
		"email": "not-an-email",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("resend with bad email: status %d", rec.Code)
	}

	msg, ok := e.box.find(notification.PurposeVerification, "alice@example.com")
	if !ok {
		t.Fatal("verification email was not published")
	}

	u, err := e.repo.UserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("load alice: %v", err)
	}
	if u.VerificationToken == nil {
		t.Fatal("alice has no verification token")
	}
	token := *u.VerificationToken
	if !strings.Contains(msg.Body, token) {
		t.Fatalf("verification email does not carry the token: %q", msg.Body)
	}

	rec = e.do(t, http.MethodGet, "/api/auth/verify-email?token="+token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: status %d body %s", rec.Code, rec.Body)
	}

	rec = e.do(t, http.MethodGet, "/api/auth/verify-email?token="+token, "", nil)
	expectError(t, rec, http.StatusBadRequest, auth.ErrInvalidVerificationToken.Error())

	rec = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	expectError(t, rec, http.StatusBadRequest, auth.ErrInvalidCredentials.Error())

	access := e.login(t, "alice", "s3cret")

	rec = e.do(t, http.MethodGet, "/api/auth/me", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status %d body %s", rec.Code, rec.Body)
	}

	var me models.User
	decode(t, rec, &me)
	if me.Username != "alice" || !me.EmailVerified {
		t.Fatalf("me = %+v", me)
	}
	if len(me.Roles) != 1 || me.Roles[0] != models.RoleUser {
		t.Fatalf("roles = %v, want [%s]", me.Roles, models.RoleUser)
	}
}

func TestProtectedRoutesRejectMissingOrBadToken(t *testing.T) {
	e := setup(t)

	for _, token := range []string{"", "not-a-jwt"} {
		rec := e.do(t, http.MethodGet, "/api/animals", token, nil)
		expectError(t, rec, http.StatusUnauthorized, resp.MsgUnauthorized)
	}

	rec := e.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status %d", rec.Code)
	}
}

func TestLogoutWithoutRevokerKeepsTokenValid(t *testing.T) {
	e := setup(t)
	token := e.login(t, "user", "user")

	rec := e.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d body %s", rec.Code, rec.Body)
	}

	rec = e.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me after stateless logout: status %d", rec.Code)
	}
}

func TestAdoptionWorkflow(t *testing.T) {
	e := setup(t)
	token := e.login(t, "user", "user")

	rec := e.do(t, http.MethodGet, "/api/animals", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}

	var list []animalJSON
	decode(t, rec, &list)
	if len(list) != 2 {
		t.Fatalf("seeded animals = %d, want 2", len(list))
	}

	var pepper animalJSON
	for _, a := range list {
		if a.Name == "Pepper" {
			pepper = a
		}
	}
	if pepper.ID == 0 || pepper.Req != 0 || pepper.UserID != nil {
		t.Fatalf("unexpected seeded Pepper: %+v", pepper)
	}

	path := func(format string) string { return fmt.Sprintf(format, pepper.ID) }

	rec = e.do(t, http.MethodPut, path("/api/animals/Request/%d"), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("request: status %d body %s", rec.Code, rec.Body)
	}
	var got animalJSON
	decode(t, rec, &got)
	if got.Req != 1 || got.UserID == nil || got.AdoptionState != string(models.AdoptionPending) {
		t.Fatalf("after request: %+v", got)
	}

	rec = e.do(t, http.MethodPut, path("/api/animals/Deny/%d"), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deny: status %d body %s", rec.Code, rec.Body)
	}
	got = animalJSON{}
	decode(t, rec, &got)
	if got.Req != 0 || got.UserID != nil {
		t.Fatalf("after deny: %+v", got)
	}

	e.do(t, http.MethodPut, path("/api/animals/Request/%d"), token, nil)

	rec = e.do(t, http.MethodPost, path("/api/animals/%d/accept-adoption"), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: status %d body %s", rec.Code, rec.Body)
	}
	var ok resp.Response
	decode(t, rec, &ok)
	if ok.Message != animals.AcceptedMessage {
		t.Fatalf("accept message = %q", ok.Message)
	}

	if _, sent := e.box.find(notification.PurposeAdoptionAccepted, "user@hua.gr"); !sent {
		t.Fatal("adoption email was not published")
	}

	rec = e.do(t, http.MethodGet, path("/api/animals/%d"), token, nil)
	expectError(t, rec, http.StatusBadRequest, animals.ErrAnimalNotFound.Error())

	rec = e.do(t, http.MethodPut, path("/api/animals/Request/%d"), token, nil)
	expectError(t, rec, http.StatusBadRequest, animals.ErrAnimalNotFound.Error())
}

func TestAnimalCRUD(t *testing.T) {
	e := setup(t)
	token := e.login(t, "shelter", "shelter")

	rec := e.do(t, http.MethodPost, "/api/animals", token, map[string]any{
		"name": "Rex", "age": 3, "gender": "Male", "type": "Dog",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body)
	}
	var rex animalJSON
	decode(t, rec, &rex)
	if rex.ID == 0 || rex.Req != 0 {
		t.Fatalf("created: %+v", rex)
	}

	rec = e.do(t, http.MethodPut, fmt.Sprintf("/api/animals/%d", rex.ID), token, map[string]any{
		"name": "Rex II", "age": 4, "gender": "Male", "type": "Dog",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", rec.Code, rec.Body)
	}
	var updated animalJSON
	decode(t, rec, &updated)
	if updated.Name != "Rex II" {
		t.Fatalf("updated: %+v", updated)
	}

	rec = e.do(t, http.MethodPost, "/api/animals", token, map[string]any{
		"name": "Blob", "gender": "Other",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid gender: status %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/api/animals/abc", token, nil)
	expectError(t, rec, http.StatusBadRequest, "Invalid id")

	rec = e.do(t, http.MethodDelete, fmt.Sprintf("/api/animals/%d", rex.ID), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}

	rec = e.do(t, http.MethodDelete, fmt.Sprintf("/api/animals/%d", rex.ID), token, nil)
	expectError(t, rec, http.StatusBadRequest, animals.ErrAnimalNotFound.Error())
}

func TestIntakeRequests(t *testing.T) {
	e := setup(t)
	token := e.login(t, "user", "user")

	rec := e.do(t, http.MethodGet, "/api/requests", token, nil)
	var seeded []models.IntakeRequest
	decode(t, rec, &seeded)
	if len(seeded) != 2 {
		t.Fatalf("seeded requests = %d, want 2", len(seeded))
	}

	rec = e.do(t, http.MethodPost, "/api/requests", token, map[string]any{
		"name": "Milo", "age": 1, "gender": "Male", "type": "Cat",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body)
	}
	var milo models.IntakeRequest
	decode(t, rec, &milo)

	path := fmt.Sprintf("/api/requests/%d", milo.ID)

	rec = e.do(t, http.MethodPut, path, token, map[string]any{
		"name": "Milo", "age": 2, "gender": "Male", "type": "Cat",
	})
	var updated models.IntakeRequest
	decode(t, rec, &updated)
	if updated.Age != 2 {
		t.Fatalf("updated: %+v", updated)
	}

	rec = e.do(t, http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, path, token, nil)
	expectError(t, rec, http.StatusBadRequest, intake.ErrRequestNotFound.Error())
}

func TestUsersAndRoles(t *testing.T) {
	e := setup(t)
	token := e.login(t, "admin", "admin")

	rec := e.do(t, http.MethodGet, "/api/roles", token, nil)
	var roles []models.Role
	decode(t, rec, &roles)
	if len(roles) != 4 {
		t.Fatalf("roles = %d, want 4", len(roles))
	}

	u, err := e.repo.UserByUsername(context.Background(), "doctor")
	if err != nil {
		t.Fatalf("load doctor: %v", err)
	}

	add := fmt.Sprintf("/api/user/role/add/%d/%s", u.ID, models.RoleShelter)
	for i := 0; i < 2; i++ {
		rec = e.do(t, http.MethodPost, add, token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("add role (attempt %d): status %d body %s", i+1, rec.Code, rec.Body)
		}
	}

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", u.ID), token, nil)
	var doctor models.User
	decode(t, rec, &doctor)
	if len(doctor.Roles) != 2 {
		t.Fatalf("doctor roles = %v", doctor.Roles)
	}

	rec = e.do(t, http.MethodPost, fmt.Sprintf("/api/user/role/add/%d/ROLE_NOPE", u.ID), token, nil)
	expectError(t, rec, http.StatusBadRequest, users.ErrRoleNotFound.Error())

	rec = e.do(t, http.MethodGet, "/api/users", token, nil)
	var all []models.User
	decode(t, rec, &all)
	if len(all) != 4 {
		t.Fatalf("users = %d, want 4", len(all))
	}
}
