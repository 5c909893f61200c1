package errors

import "net/http"

type HTTPError struct {
	Code       int
	Message    string
	StatusCode int
	// Data is returned alongside the message, e.g. the caller's queue rank.
	Data any
}

func NewHTTPError(code int, statusCode int, message string) *HTTPError {
	return &HTTPError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) WithData(data any) *HTTPError {
	cp := *e
	cp.Data = data
	return &cp
}

var ErrHTTPInternal = NewHTTPError(50000, http.StatusInternalServerError, "Internal server error")
