package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
)

// Kind classifies an Error so callers can decide whether to surface,
// block or retry.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindTransient     Kind = "transient"
	KindInternal      Kind = "internal"
)

type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Kind    Kind   `json:"kind"`
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Kind so errors.Is(err, ErrNotFound) holds for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(message string, status int) *Error {
	return &Error{
		Message: message,
		Status:  status,
		Kind:    kindForStatus(status),
	}
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuthorization
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout,
		status == http.StatusBadGateway, status == http.StatusTooManyRequests:
		return KindTransient
	default:
		return KindInternal
	}
}

var (
	ErrBadRequest          = New("bad request", http.StatusBadRequest)
	ErrUnauthorized        = New("unauthorized", http.StatusUnauthorized)
	ErrForbidden           = New("forbidden", http.StatusForbidden)
	ErrNotFound            = New("not found", http.StatusNotFound)
	ErrTransient           = New("service temporarily unavailable", http.StatusServiceUnavailable)
	ErrInternalServerError = New("internal server error", http.StatusInternalServerError)
)

func Validation(format string, args ...interface{}) *Error {
	return New(fmt.Sprintf(format, args...), http.StatusBadRequest)
}

func Authorization(format string, args ...interface{}) *Error {
	return New(fmt.Sprintf(format, args...), http.StatusForbidden)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(fmt.Sprintf(format, args...), http.StatusNotFound)
}

func Transient(format string, args ...interface{}) *Error {
	return New(fmt.Sprintf(format, args...), http.StatusServiceUnavailable)
}

// As extracts an *Error from err. Errors that are not *Error are reported
// as internal server errors.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return New(err.Error(), http.StatusInternalServerError)
}

// IsRetryable reports whether err is worth retrying on the next attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	k := As(err).Kind
	return k == KindTransient || k == KindInternal
}

// ErrorHandler answers requests rejected by the rate limiter.
func ErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"message": "too many requests, try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
		"status":  http.StatusTooManyRequests,
		"errors":  New("rate limit exceeded", http.StatusTooManyRequests),
	})
}
