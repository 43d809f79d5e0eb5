package myerrors

import (
	"errors"
	"fmt"
	"log"
	"net/http"
)

type httpErrorCoder interface {
	error
	GetHTTPErrorCode() int
}

type httpError struct {
	httpCode int
	err      error
	fields   map[string]string
	kind     string
}

func (e httpError) Error() string {
	return fmt.Sprintf("status: %d, err: %s", e.httpCode, e.err.Error())
}

func (e httpError) GetHTTPErrorCode() int {
	return e.httpCode
}

func (e httpError) Unwrap() error {
	return e.err
}

func newError(httpCode int, err error) *httpError {
	return &httpError{
		httpCode: httpCode,
		err:      err,
	}
}

func NewInvalidInputError(err error) *httpError {
	log.Printf("Returning 400: %s", err.Error())
	return newError(http.StatusBadRequest, err)
}

func NewInvalidInputErrorf(format string, args ...interface{}) *httpError {
	return NewInvalidInputError(fmt.Errorf(format, args...))
}

// NewValidationError reports every offending field at once.
func NewValidationError(err error, fields map[string]string) *httpError {
	e := NewInvalidInputError(err)
	e.fields = fields
	return e
}

func NewUnauthorizedError(err error) *httpError {
	return newError(http.StatusUnauthorized, err)
}

func NewAuthenticationError(err error) *httpError {
	return newError(http.StatusForbidden, err)
}

func NewNotFoundError(err error) *httpError {
	return newError(http.StatusNotFound, err)
}

func NewConflictError(err error) *httpError {
	return newError(http.StatusConflict, err)
}

func NewGoneError(err error) *httpError {
	return newError(http.StatusGone, err)
}

func NewUnsupportedMediaTypeError(err error) *httpError {
	return newError(http.StatusUnsupportedMediaType, err)
}

func NewInternalError(err error) *httpError {
	return newError(http.StatusInternalServerError, err)
}

func NewNotImplementedError(err error) *httpError {
	return newError(http.StatusNotImplemented, err)
}

func NewBadGatewayError(err error) *httpError {
	return newError(http.StatusBadGateway, err)
}

func NewUnavailableError(err error) *httpError {
	return newError(http.StatusServiceUnavailable, err)
}

// GetHTTPStatus returns the status of the outermost http-coded error in the chain.
func GetHTTPStatus(err error) int {
	if err != nil {
		var myError httpErrorCoder
		if errors.As(err, &myError) {
			return myError.GetHTTPErrorCode()
		}
	}
	return http.StatusInternalServerError
}

// WithKind labels the error with a machine readable category for clients.
func (e *httpError) WithKind(kind string) *httpError {
	e.kind = kind
	return e
}

// GetKind returns the explicit kind of the error or one derived from its http status.
func GetKind(err error) string {
	var myError *httpError
	if errors.As(err, &myError) && myError.kind != "" {
		return myError.kind
	}
	switch GetHTTPStatus(err) {
	case http.StatusBadRequest:
		if len(GetFieldErrors(err)) > 0 {
			return "ValidationFailed"
		}
		return "InvalidRequest"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "NotFound"
	case http.StatusConflict:
		return "InvalidState"
	case http.StatusGone:
		return "SessionExpired"
	case http.StatusBadGateway:
		return "GatewayError"
	case http.StatusServiceUnavailable:
		return "Unavailable"
	default:
		return "Internal"
	}
}

func GetFieldErrors(err error) map[string]string {
	var myError *httpError
	if errors.As(err, &myError) {
		return myError.fields
	}
	return nil
}
