package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"pet_adoption/internal/lib/jwt"
	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"
)

const testSecret = "test-secret"

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*models.User{}}
}

func (f *fakeUsers) SaveUser(_ context.Context, u models.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.byID {
		if existing.Username == u.Username {
			return 0, storage.ErrUsernameExists
		}
		if existing.Email == u.Email {
			return 0, storage.ErrEmailExists
		}
	}

	f.nextID++
	u.ID = f.nextID
	f.byID[u.ID] = &u

	return u.ID, nil
}

func (f *fakeUsers) find(match func(*models.User) bool) (models.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.byID {
		if match(u) {
			return *u, true
		}
	}

	return models.User{}, false
}

func (f *fakeUsers) UserByUsername(_ context.Context, username string) (models.User, error) {
	if u, ok := f.find(func(u *models.User) bool { return u.Username == username }); ok {
		return u, nil
	}
	return models.User{}, storage.ErrUserNotFound
}

func (f *fakeUsers) UserByEmail(_ context.Context, email string) (models.User, error) {
	if u, ok := f.find(func(u *models.User) bool { return u.Email == email }); ok {
		return u, nil
	}
	return models.User{}, storage.ErrUserNotFound
}

func (f *fakeUsers) UserByVerificationToken(_ context.Context, token string) (models.User, error) {
	match := func(u *models.User) bool {
		return u.VerificationToken != nil && *u.VerificationToken == token
	}
	if u, ok := f.find(match); ok {
		return u, nil
	}
	return models.User{}, storage.ErrTokenNotFound
}

func (f *fakeUsers) ConsumeVerificationToken(_ context.Context, userID int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[userID]
	if !ok || u.VerificationToken == nil || *u.VerificationToken != token {
		return storage.ErrTokenNotFound
	}

	u.EmailVerified = true
	u.VerificationToken = nil
	u.VerificationTokenExpiry = nil

	return nil
}

func (f *fakeUsers) SetVerificationToken(_ context.Context, userID int64, token string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.VerificationToken = &token
	u.VerificationTokenExpiry = &expiry

	return nil
}

func (f *fakeUsers) SetLastLogin(_ context.Context, userID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.LastLogin = &at

	return nil
}

type sentMail struct {
	kind, to, username, token string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *fakeNotifier) add(m sentMail) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
}

func (n *fakeNotifier) SendVerification(_ context.Context, to, username, token string) {
	n.add(sentMail{kind: "verification", to: to, username: username, token: token})
}

func (n *fakeNotifier) SendLoginAlert(_ context.Context, to, username string, _ time.Time, _ string) {
	n.add(sentMail{kind: "login", to: to, username: username})
}

func (n *fakeNotifier) SendWelcome(_ context.Context, to, username string) {
	n.add(sentMail{kind: "welcome", to: to, username: username})
}

func (n *fakeNotifier) last() sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

type fakeRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (r *fakeRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.revoked[jti]; ok {
		return false, nil
	}
	r.revoked[jti] = ttl

	return true, nil
}

func (r *fakeRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.revoked[jti]
	return ok, nil
}

type fixture struct {
	auth     *Auth
	users    *fakeUsers
	notifier *fakeNotifier
	revoker  *fakeRevoker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := newFakeUsers()
	notifier := &fakeNotifier{}
	revoker := &fakeRevoker{revoked: map[string]time.Duration{}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a := New(log, users, users, notifier, revoker, testSecret, time.Hour, 24*time.Hour)

	return &fixture{auth: a, users: users, notifier: notifier, revoker: revoker}
}

// registerVerified registers a user and consumes the mailed token.
func (f *fixture) registerVerified(t *testing.T, username, password string) {
	t.Helper()

	ctx := context.Background()

	if _, err := f.auth.Register(ctx, username, username+"@example.com", password); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.auth.VerifyEmail(ctx, f.notifier.last().token); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"missing username", " ", "a@example.com", "pw", ErrUsernameRequired},
		{"missing email", "alice", "", "pw", ErrEmailRequired},
		{"missing password", "alice", "a@example.com", "", ErrPasswordRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.auth.Register(context.Background(), tt.username, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegisterPersistsUnverifiedUserAndMailsToken(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f.auth.now = func() time.Time { return now }

	id, err := f.auth.Register(context.Background(), "alice", "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	u := f.users.byID[id]
	if u.EmailVerified {
		t.Fatal("new user must be unverified")
	}
	if !u.HasRole(models.RoleUser) {
		t.Fatalf("expected ROLE_USER, got %v", u.Roles)
	}
	if string(u.PassHash) == "secret" {
		t.Fatal("password stored in clear text")
	}
	if u.VerificationTokenExpiry == nil || !u.VerificationTokenExpiry.Equal(now.Add(24*time.Hour)) {
		t.Fatalf("unexpected expiry %v", u.VerificationTokenExpiry)
	}

	mail := f.notifier.last()
	if mail.kind != "verification" || mail.to != "alice@example.com" || mail.token != *u.VerificationToken {
		t.Fatalf("unexpected mail %+v", mail)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "alice", "alice@example.com", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := f.auth.Register(ctx, "alice", "new@example.com", "other"); !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}
	if _, err := f.auth.Register(ctx, "bob", "alice@example.com", "other"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestVerifyEmailOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "alice", "alice@example.com", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	token := f.notifier.last().token

	if err := f.auth.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if f.notifier.last().kind != "welcome" {
		t.Fatalf("expected welcome mail, got %+v", f.notifier.last())
	}

	if err := f.auth.VerifyEmail(ctx, token); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Fatalf("expected ErrInvalidVerificationToken on reuse, got %v", err)
	}
	if err := f.auth.VerifyEmail(ctx, ""); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Fatalf("expected ErrInvalidVerificationToken for empty token, got %v", err)
	}
}

func TestVerifyEmailExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now()

	f.auth.now = func() time.Time { return start }
	if _, err := f.auth.Register(ctx, "alice", "alice@example.com", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}

	f.auth.now = func() time.Time { return start.Add(25 * time.Hour) }
	if err := f.auth.VerifyEmail(ctx, f.notifier.last().token); !errors.Is(err, ErrVerificationTokenExpired) {
		t.Fatalf("expected ErrVerificationTokenExpired, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "pending", "pending@example.com", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	f.registerVerified(t, "alice", "secret")

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"unknown user", "nobody", "secret", ErrInvalidCredentials},
		{"wrong password", "alice", "nope", ErrInvalidCredentials},
		{"unverified", "pending", "pw", ErrEmailNotVerified},
		{"ok", "alice", "secret", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, user, err := f.auth.Login(ctx, tt.username, tt.password, "127.0.0.1")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				return
			}

			claims, err := jwt.ParseToken(token, testSecret)
			if err != nil {
				t.Fatalf("token does not parse: %v", err)
			}
			if claims.Subject != "alice" || len(claims.Roles) != 1 || claims.Roles[0] != models.RoleUser {
				t.Fatalf("unexpected claims %+v", claims)
			}
			if user.LastLogin == nil {
				t.Fatal("last login not set")
			}
			if f.notifier.last().kind != "login" {
				t.Fatalf("expected login alert, got %+v", f.notifier.last())
			}
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerVerified(t, "alice", "secret")

	token, _, err := f.auth.Login(ctx, "alice", "secret", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := f.auth.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if err := f.auth.Logout(ctx, claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if ttl := f.revoker.revoked[claims.ID]; ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected revocation ttl %v", ttl)
	}

	if _, err := f.auth.Authenticate(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestLogoutWithoutRevoker(t *testing.T) {
	f := newFixture(t)
	f.auth.revoker = nil
	ctx := context.Background()
	f.registerVerified(t, "alice", "secret")

	token, _, err := f.auth.Login(ctx, "alice", "secret", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := f.auth.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := f.auth.Logout(ctx, claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.auth.Authenticate(ctx, token); err != nil {
		t.Fatalf("stateless logout keeps the token valid, got %v", err)
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	f := newFixture(t)

	if _, err := f.auth.Authenticate(context.Background(), "not-a-jwt"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	f.registerVerified(t, "alice", "secret")

	u, err := f.auth.Me(context.Background(), "alice")
	if err != nil || u.Username != "alice" {
		t.Fatalf("me: %+v, %v", u, err)
	}

	if _, err := f.auth.Me(context.Background(), "ghost"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResendVerificationReplacesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "alice", "alice@example.com", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	first := f.notifier.last().token

	if err := f.auth.ResendVerification(ctx, "alice@example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}

	second := f.notifier.last()
	if second.kind != "verification" || second.to != "alice@example.com" {
		t.Fatalf("unexpected mail %+v", second)
	}
	if second.token == first {
		t.Fatal("resend reused the old token")
	}

	if err := f.auth.VerifyEmail(ctx, first); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Fatalf("old token: expected ErrInvalidVerificationToken, got %v", err)
	}
	if err := f.auth.VerifyEmail(ctx, second.token); err != nil {
		t.Fatalf("new token: %v", err)
	}
}

func TestResendVerificationIgnoresUnknownAndVerified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.registerVerified(t, "bob", "pw")

	f.notifier.mu.Lock()
	before := len(f.notifier.sent)
	f.notifier.mu.Unlock()

	for _, email := range []string{"nobody@example.com", "bob@example.com"} {
		if err := f.auth.ResendVerification(ctx, email); err != nil {
			t.Fatalf("resend %s: %v", email, err)
		}
	}

	f.notifier.mu.Lock()
	after := len(f.notifier.sent)
	f.notifier.mu.Unlock()

	if after != before {
		t.Fatalf("expected no mail, %d sent", after-before)
	}

	if err := f.auth.ResendVerification(ctx, " "); !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("blank email: expected ErrEmailRequired, got %v", err)
	}
}
