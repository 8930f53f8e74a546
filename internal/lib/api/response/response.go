package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Response struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

func OK() Response {
	return Response{
		Status: StatusOK,
	}
}

func Message(msg string) Response {
	return Response{
		Status:  StatusOK,
		Message: msg,
	}
}

func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("%s is required", err.Field()))
		case "oneof":
			errMsgs = append(errMsgs, fmt.Sprintf("%s must be one of [%s]", err.Field(), err.Param()))
		case "gte":
			errMsgs = append(errMsgs, fmt.Sprintf("%s must be at least %s", err.Field(), err.Param()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("%s is not valid", err.Field()))
		}
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(errMsgs, ", "),
	}
}

const (
	MsgUnauthorized    = "Unauthorized"
	MsgDecodeFailed    = "Failed to decode request"
	MsgUnexpectedError = "An error occurred"
)

// BadRequest renders msg as a 400. Every domain and validation failure is
// reported this way.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, Error(msg))
}

// Unauthorized renders a 401 for a missing, invalid or revoked token.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, Error(MsgUnauthorized))
}

// DomainError renders err as a 400. Errors outside known are replaced with a
// generic message so storage details do not leak.
func DomainError(w http.ResponseWriter, r *http.Request, err error, known ...error) {
	for _, k := range known {
		if errors.Is(err, k) {
			BadRequest(w, r, k.Error())
			return
		}
	}

	BadRequest(w, r, MsgUnexpectedError)
}
