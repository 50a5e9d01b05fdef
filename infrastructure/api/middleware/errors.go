package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/helixml/snippets/application/service"
	"github.com/helixml/snippets/infrastructure/api/jsonapi"
	"github.com/helixml/snippets/internal/database"
)

// Sentinel errors matched with errors.Is.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrServer         = errors.New("server error")
)

// APIError is an error with an HTTP status and a message safe to show clients.
type APIError struct {
	code    int
	message string
	cause   error
}

// NewAPIError creates an APIError.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{code: code, message: message, cause: cause}
}

// Code returns the HTTP status code.
func (e *APIError) Code() int { return e.code }

// Message returns the client-facing message.
func (e *APIError) Message() string { return e.message }

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("api error %d: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("api error %d: %s", e.code, e.message)
}

// Unwrap returns the cause.
func (e *APIError) Unwrap() error { return e.cause }

// AuthenticationError indicates missing or invalid credentials.
type AuthenticationError struct {
	message string
}

// NewAuthenticationError creates an AuthenticationError.
func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{message: message}
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.message
}

// Is matches ErrAuthentication.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// ServerError is a failure the server reports with an explicit status.
type ServerError struct {
	statusCode int
	message    string
}

// NewServerError creates a ServerError.
func NewServerError(statusCode int, message string) *ServerError {
	return &ServerError{statusCode: statusCode, message: message}
}

// StatusCode returns the HTTP status code.
func (e *ServerError) StatusCode() int { return e.statusCode }

// Message returns the client-facing message.
func (e *ServerError) Message() string { return e.message }

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.statusCode, e.message)
}

// Is matches ErrServer.
func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}

// JSONAPIErrorResponse is the body written for every failed request.
type JSONAPIErrorResponse struct {
	Errors []jsonapi.Error `json:"errors"`
}

// WriteError maps err to a status and writes a JSON:API error document.
// Internal failures are logged and answered with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	WriteJSON(w, status, JSONAPIErrorResponse{
		Errors: []jsonapi.Error{jsonapi.NewError(strconv.Itoa(status), http.StatusText(status), detail)},
	})
}

func classify(err error) (int, string) {
	var apiErr *APIError
	var serverErr *ServerError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code(), apiErr.Message()
	case errors.As(err, &serverErr):
		return serverErr.StatusCode(), serverErr.Message()
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
