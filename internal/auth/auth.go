package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pet_adoption/internal/lib/jwt"
	"pet_adoption/internal/lib/logger/sl"
	"pet_adoption/internal/lib/verification"
	"pet_adoption/internal/models"
	"pet_adoption/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameRequired = errors.New("Username is required")
	ErrEmailRequired    = errors.New("Email is required")
	ErrPasswordRequired = errors.New("Password is required")

	ErrUsernameExists = errors.New("Username already exists")
	ErrEmailExists    = errors.New("Email already exists")

	ErrInvalidCredentials = errors.New("Invalid username or password")
	ErrEmailNotVerified   = errors.New("Please verify your email before logging in")

	ErrInvalidVerificationToken = errors.New("Invalid verification token")
	ErrVerificationTokenExpired = errors.New("Verification token has expired")

	ErrUnauthorized = errors.New("Unauthorized")
)

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	notifier    Notifier
	revoker     TokenRevoker
	secret      string
	tokenTTL    time.Duration
	verifyTTL   time.Duration
	now         func() time.Time
}

type UserSaver interface {
	SaveUser(ctx context.Context, u models.User) (int64, error)
	ConsumeVerificationToken(ctx context.Context, userID int64, token string) error
	SetVerificationToken(ctx context.Context, userID int64, token string, expiry time.Time) error
	SetLastLogin(ctx context.Context, userID int64, at time.Time) error
}

type UserProvider interface {
	UserByUsername(ctx context.Context, username string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByVerificationToken(ctx context.Context, token string) (models.User, error)
}

type Notifier interface {
	SendVerification(ctx context.Context, to, username, token string)
	SendLoginAlert(ctx context.Context, to, username string, at time.Time, ip string)
	SendWelcome(ctx context.Context, to, username string)
}

// TokenRevoker remembers logged out access tokens by their id.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// New builds the auth service. revoker may be nil, logout is then stateless.
func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	notifier Notifier,
	revoker TokenRevoker,
	secret string,
	tokenTTL, verifyTTL time.Duration,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		notifier:    notifier,
		revoker:     revoker,
		secret:      secret,
		tokenTTL:    tokenTTL,
		verifyTTL:   verifyTTL,
		now:         time.Now,
	}
}

// * Register creates an unverified user with ROLE_USER and mails a verification link.
func (a *Auth) Register(ctx context.Context, username, email, password string) (int64, error) {
	const op = "auth.Register"

	log := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)

	switch {
	case strings.TrimSpace(username) == "":
		return 0, ErrUsernameRequired
	case strings.TrimSpace(email) == "":
		return 0, ErrEmailRequired
	case strings.TrimSpace(password) == "":
		return 0, ErrPasswordRequired
	}

	if err := a.ensureAvailable(ctx, username, email); err != nil {
		return 0, err
	}

	log.Info("registering new user")

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	token, expiry := verification.NewToken(a.now(), a.verifyTTL)

	id, err := a.usrSaver.SaveUser(ctx, models.User{
		Username:                username,
		Email:                   email,
		PassHash:                passHash,
		Roles:                   []string{models.RoleUser},
		VerificationToken:       &token,
		VerificationTokenExpiry: &expiry,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUsernameExists):
			log.Warn("username already exists")
			return 0, ErrUsernameExists
		case errors.Is(err, storage.ErrEmailExists):
			log.Warn("email already exists")
			return 0, ErrEmailExists
		}

		log.Error("failed to save user", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	a.notifier.SendVerification(ctx, email, username, token)

	log.Info("user registered", slog.Int64("uid", id))

	return id, nil
}

func (a *Auth) ensureAvailable(ctx context.Context, username, email string) error {
	const op = "auth.ensureAvailable"

	_, err := a.usrProvider.UserByUsername(ctx, username)
	switch {
	case err == nil:
		return ErrUsernameExists
	case !errors.Is(err, storage.ErrUserNotFound):
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = a.usrProvider.UserByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailExists
	case !errors.Is(err, storage.ErrUserNotFound):
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * ResendVerification issues a fresh token to an unverified account and
// mails it. The previous token stops working. Unknown and already verified
// addresses are ignored so callers cannot probe which emails exist.
func (a *Auth) ResendVerification(ctx context.Context, email string) error {
	const op = "auth.ResendVerification"

	log := a.log.With(slog.String("op", op))

	if strings.TrimSpace(email) == "" {
		return ErrEmailRequired
	}

	user, err := a.usrProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("no user with this email")
			return nil
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.EmailVerified {
		log.Info("email already verified", slog.Int64("uid", user.ID))
		return nil
	}

	token, expiry := verification.NewToken(a.now(), a.verifyTTL)

	if err := a.usrSaver.SetVerificationToken(ctx, user.ID, token, expiry); err != nil {
		log.Error("failed to store verification token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	a.notifier.SendVerification(ctx, user.Email, user.Username, token)

	log.Info("verification email resent", slog.Int64("uid", user.ID))

	return nil
}

// * Login checks credentials and returns a signed access token with the user.
func (a *Auth) Login(ctx context.Context, username, password, ip string) (string, models.User, error) {
	const op = "auth.Login"

	log := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)

	user, err := a.usrProvider.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return "", models.User{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials")
		return "", models.User{}, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		log.Info("email not verified")
		return "", models.User{}, ErrEmailNotVerified
	}

	token, err := jwt.NewToken(user, a.secret, a.tokenTTL)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	now := a.now()
	if err := a.usrSaver.SetLastLogin(ctx, user.ID, now); err != nil {
		log.Error("failed to update last login", sl.Err(err))
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	user.LastLogin = &now

	a.notifier.SendLoginAlert(ctx, user.Email, user.Username, now, ip)

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return token, user, nil
}

// * VerifyEmail consumes a verification token. A token verifies at most once.
func (a *Auth) VerifyEmail(ctx context.Context, token string) error {
	const op = "auth.VerifyEmail"

	log := a.log.With(slog.String("op", op))

	if token == "" {
		return ErrInvalidVerificationToken
	}

	user, err := a.usrProvider.UserByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			log.Warn("verification token not found")
			return ErrInvalidVerificationToken
		}

		log.Error("failed to get user by token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if verification.IsExpired(user.VerificationTokenExpiry, a.now()) {
		log.Info("verification token expired", slog.Int64("uid", user.ID))
		return ErrVerificationTokenExpired
	}

	if err := a.usrSaver.ConsumeVerificationToken(ctx, user.ID, token); err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return ErrInvalidVerificationToken
		}

		log.Error("failed to consume verification token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	a.notifier.SendWelcome(ctx, user.Email, user.Username)

	log.Info("email verified", slog.Int64("uid", user.ID))

	return nil
}

// * Authenticate validates an access token and rejects revoked ones.
func (a *Auth) Authenticate(ctx context.Context, token string) (*jwt.Claims, error) {
	const op = "auth.Authenticate"

	claims, err := jwt.ParseToken(token, a.secret)
	if err != nil {
		return nil, ErrUnauthorized
	}

	if a.revoker == nil || claims.ID == "" {
		return claims, nil
	}

	revoked, err := a.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		return nil, ErrUnauthorized
	}

	return claims, nil
}

// * Logout revokes the token until it would have expired anyway.
func (a *Auth) Logout(ctx context.Context, claims *jwt.Claims) error {
	const op = "auth.Logout"

	log := a.log.With(
		slog.String("op", op),
		slog.String("username", claims.Subject),
	)

	if a.revoker == nil {
		log.Debug("no revocation store configured, logout is stateless")
		return nil
	}

	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(a.now())
	}

	if _, err := a.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		log.Error("failed to revoke token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logout successful")

	return nil
}

// * Me returns the user the token was issued to.
func (a *Auth) Me(ctx context.Context, username string) (models.User, error) {
	const op = "auth.Me"

	user, err := a.usrProvider.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, ErrUnauthorized
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
