package params

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
)

var ErrInvalidID = errors.New("Invalid id")

// ID reads a positive integer URL parameter.
func ID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}

	return id, nil
}
