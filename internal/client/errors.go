package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// Sentinel errors matched by APIError through errors.Is.
var (
	ErrInvalid      = errors.New("request rejected as invalid")
	ErrUnauthorized = errors.New("authentication required")
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("resource conflict")
	ErrServer       = errors.New("server error")
)

// APIError is a non-2xx response decoded from the API's error body.
type APIError struct {
	Status     int
	Message    string
	Details    []schema.Issue
	TraceID    string
	RetryAfter string
}

func (e *APIError) Error() string {
	if e == nil {
		return "harvest bridge api error"
	}
	if e.Message == "" {
		return fmt.Sprintf("harvest bridge api error (status=%d)", e.Status)
	}
	return fmt.Sprintf("harvest bridge api error (status=%d): %s", e.Status, e.Message)
}

// Unwrap maps the status onto a sentinel error.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	switch {
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return ErrInvalid
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status >= http.StatusInternalServerError:
		return ErrServer
	}
	return nil
}

// Paths lists the detail paths, e.g. "farmName" or "product.price".
func (e *APIError) Paths() []string {
	paths := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		paths = append(paths, d.Path)
	}
	return paths
}
