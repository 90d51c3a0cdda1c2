package types

import "net/http"

// StatusError carries the HTTP status a failure should be reported with.
type StatusError struct {
	Err    error
	Status int
}

func (e StatusError) Error() string {
	if e.Err == nil {
		return http.StatusText(e.Status)
	}
	return e.Err.Error()
}

func (e StatusError) Unwrap() error {
	return e.Err
}

func (e StatusError) HTTPStatus() int {
	return e.Status
}

// Title is the short text shown on the error page.
func (e StatusError) Title() string {
	return http.StatusText(e.Status)
}

func NewStatusError(err error, status int) StatusError {
	return StatusError{
		Err:    err,
		Status: status,
	}
}
