package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	importdomain "github.com/modabuild/fabline/internal/moduleimport/domain"
	"github.com/modabuild/fabline/internal/moduleimport/parser"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
	sequencedomain "github.com/modabuild/fabline/internal/sequence/domain"
)

// APIError is the wire error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string { return e.Code }

var (
	ErrNotFound = &APIError{
		Status:  http.StatusNotFound,
		Code:    "not_found",
		Message: "resource not found",
	}
	ErrUnauthorized = &APIError{
		Status:  http.StatusUnauthorized,
		Code:    "unauthorized",
		Message: "missing or invalid credentials",
	}
	ErrTooManyRequests = &APIError{
		Status:  http.StatusTooManyRequests,
		Code:    "rate_limited",
		Message: "too many requests",
	}
	ErrServiceUnavailable = &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "service_unavailable",
		Message: "service unavailable",
	}
)

func invalidRequestError() *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body could not be parsed",
	}
}

func newValidationError(field, code, message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

// AbortWithError maps domain errors onto the wire envelope.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		abort(c, apiErr)
		return
	}

	switch {
	case errors.Is(err, projectdomain.ErrNotFound),
		errors.Is(err, projectdomain.ErrModuleNotFound),
		errors.Is(err, sequencedomain.ErrSnapshotNotFound),
		errors.Is(err, sequencedomain.ErrProjectNotFound):
		abort(c, &APIError{Status: http.StatusNotFound, Code: err.Error(), Message: "resource not found"})
	case errors.Is(err, projectdomain.ErrDuplicateCode),
		errors.Is(err, projectdomain.ErrDuplicateSerial):
		abort(c, &APIError{Status: http.StatusConflict, Code: err.Error(), Message: "duplicate resource"})
	case errors.Is(err, projectdomain.ErrConcurrentUpdate):
		abort(c, &APIError{
			Status:  http.StatusConflict,
			Code:    err.Error(),
			Message: "the project was modified by another session, reload and retry",
		})
	case errors.Is(err, parser.ErrNoHeader),
		errors.Is(err, parser.ErrNoSerialColumn),
		errors.Is(err, importdomain.ErrInvalidProject),
		errors.Is(err, importdomain.ErrEmptyImport),
		errors.Is(err, projectdomain.ErrInvalidID),
		errors.Is(err, projectdomain.ErrInvalidCode),
		errors.Is(err, projectdomain.ErrInvalidName),
		errors.Is(err, projectdomain.ErrInvalidSerial),
		errors.Is(err, projectdomain.ErrInvalidSequence),
		errors.Is(err, sequencedomain.ErrInvalidChangeType):
		abort(c, &APIError{Status: http.StatusBadRequest, Code: err.Error(), Message: "invalid request"})
	default:
		abort(c, &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "internal_error",
			Message: "internal error",
		})
	}
}

func abort(c *gin.Context, apiErr *APIError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
}
