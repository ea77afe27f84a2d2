package gameapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/IgKnight-client/pkg/gamedto"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

var (
	// ErrMoveRejected marks a move the server refused as illegal or untimely.
	ErrMoveRejected = staticErr("move rejected")
	ErrNotFound     = staticErr("session not found")
	ErrUnauthorized = staticErr("unauthorized")
)

// APIError is a non-2xx response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   gamedto.DomainError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("game api %s %s: status=%d: %s", e.Method, e.Path, e.Status, e.Body.Error())
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case 401, 403:
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	}
	return e.Body
}

func decodeAPIError(method, path string, status int, body []byte) error {
	apiErr := &APIError{Method: method, Path: path, Status: status}
	if len(body) > 0 && json.Unmarshal(body, &apiErr.Body) != nil {
		apiErr.Body.Message = truncate(strings.TrimSpace(string(body)), 512)
	}
	apiErr.Body.Retryable = shouldRetryStatus(status)
	return apiErr
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func isRejection(status int) bool {
	return status == 400 || status == 409 || status == 422
}
