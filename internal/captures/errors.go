package captures

import (
	"errors"
	"net/http"
)

// Domain errors for capture history operations.
var (
	ErrNotFound  = errors.New("capture not found")
	ErrDuplicate = errors.New("capture already exists")
	ErrNoImage   = errors.New("capture has no archived image")
)

// MapHTTPStatus maps capture domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNoImage) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
