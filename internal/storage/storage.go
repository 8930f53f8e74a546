package storage

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUsernameExists  = errors.New("username already exists")
	ErrEmailExists     = errors.New("email already exists")
	ErrTokenNotFound   = errors.New("verification token not found")
	ErrRoleNotFound    = errors.New("role not found")
	ErrAnimalNotFound  = errors.New("animal not found")
	ErrRequestNotFound = errors.New("request not found")
)
