package bserve

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Code is an error code that mirrors the http status codes. It can be used to create errors to pass around across
// router and middleware layers to handle errors structurally.
type Code int

const (
	CodeUnknown                     Code = 0
	CodeBadRequest                  Code = http.StatusBadRequest                  // RFC 9110, 15.5.1
	CodeUnauthorized                Code = http.StatusUnauthorized                // RFC 9110, 15.5.2
	CodeForbidden                   Code = http.StatusForbidden                   // RFC 9110, 15.5.4
	CodeNotFound                    Code = http.StatusNotFound                    // RFC 9110, 15.5.5
	CodeMethodNotAllowed            Code = http.StatusMethodNotAllowed            // RFC 9110, 15.5.6
	CodeRequestTimeout              Code = http.StatusRequestTimeout              // RFC 9110, 15.5.9
	CodeLengthRequired              Code = http.StatusLengthRequired              // RFC 9110, 15.5.12
	CodeRequestEntityTooLarge       Code = http.StatusRequestEntityTooLarge       // RFC 9110, 15.5.14
	CodeUnsupportedMediaType        Code = http.StatusUnsupportedMediaType        // RFC 9110, 15.5.16
	CodeExpectationFailed           Code = http.StatusExpectationFailed           // RFC 9110, 15.5.18
	CodeMisdirectedRequest          Code = http.StatusMisdirectedRequest          // RFC 9110, 15.5.20
	CodeUpgradeRequired             Code = http.StatusUpgradeRequired             // RFC 9110, 15.5.22
	CodeRequestHeaderFieldsTooLarge Code = http.StatusRequestHeaderFieldsTooLarge // RFC 6585, 5

	CodeInternalServerError     Code = http.StatusInternalServerError     // RFC 9110, 15.6.1
	CodeNotImplemented          Code = http.StatusNotImplemented          // RFC 9110, 15.6.2
	CodeServiceUnavailable      Code = http.StatusServiceUnavailable      // RFC 9110, 15.6.4
	CodeHTTPVersionNotSupported Code = http.StatusHTTPVersionNotSupported // RFC 9110, 15.6.6
	CodeInsufficientStorage     Code = http.StatusInsufficientStorage     // RFC 4918, 11.5
)

var (
	// ErrNoContent is returned when no router in the tree registered content for a request.
	ErrNoContent = errors.New("bserve: no content for request")
	// ErrInvalidHost is returned when a redirect target can not be built from the request's host.
	ErrInvalidHost = errors.New("bserve: missing or invalid host")
	// ErrNoCertificate aborts a handshake for which the provider has no certificate.
	ErrNoCertificate = errors.New("bserve: no certificate for server name")
)

// Error describes an http error.
type Error struct {
	code Code
	err  error
}

// NewError inits a new error given the error code.
func NewError(c Code, underlying error) *Error {
	return &Error{c, underlying}
}

func (e *Error) Code() Code { return e.code }
func (e *Error) Error() string {
	status := http.StatusText(int(e.Code()))
	if status == "" {
		status = "Unknown"
	}

	return fmt.Sprintf("%s: %s", status, e.err.Error())
}

func (e *Error) Unwrap() error { return e.err }

// CodeOf returns the error's status code if it is or wraps an [*Error] and
// [CodeUnknown] otherwise.
func CodeOf(err error) Code {
	var herr *Error
	if errors.As(err, &herr) {
		return herr.Code()
	}

	return CodeUnknown
}
