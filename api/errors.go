package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/layer-3/cobic/core"
)

// ErrorKind classifies a failed request
type ErrorKind int

const (
	KindNetworkUnreachable ErrorKind = iota + 1
	KindTimeout
	KindUnauthorized
	KindNotFound
	KindServerError
	KindClientError
	KindUnauthenticated
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindTimeout:
		return "timeout"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindServerError:
		return "server_error"
	case KindClientError:
		return "client_error"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Error is returned for every request that did not produce a 2xx response
type Error struct {
	Kind       ErrorKind
	Method     string
	Endpoint   string
	StatusCode int
	// Message is the server supplied "message" or "error" field, if any
	Message string
	Body    []byte
	Err     error
	// Token is the bearer the request was sent with. It is never part of
	// Error().
	Token string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Method != "" || e.Endpoint != "" {
		fmt.Fprintf(&b, " %s %s", e.Method, e.Endpoint)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, api.ErrUnauthorized)
// works regardless of status or endpoint.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// DecodeBody unmarshals the raw response body of a failed request into v
func (e *Error) DecodeBody(v any) error {
	if len(e.Body) == 0 {
		return fmt.Errorf("empty error body")
	}
	return json.Unmarshal(e.Body, v)
}

// Sentinels for errors.Is
var (
	ErrNetworkUnreachable = &Error{Kind: KindNetworkUnreachable}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrServerError        = &Error{Kind: KindServerError}
	ErrClientError        = &Error{Kind: KindClientError}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
)

// KindOf returns the classification of err, if it is a request error
func KindOf(err error) (ErrorKind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// UserMessage turns any error returned by this module into a sentence that can
// be shown to the user
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "The request was cancelled."
	}
	if errors.Is(err, core.ErrRecipientNotFound) {
		return "Recipient not found. Check the username and try again."
	}
	if errors.Is(err, core.ErrLogoutInProgress) {
		return "Signing out, please wait."
	}
	if errors.Is(err, core.ErrNotAuthenticated) {
		return "Please log in to continue."
	}
	if errors.Is(err, core.ErrValidation) {
		return "Please check your input: " + err.Error()
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch apiErr.Kind {
	case KindNetworkUnreachable:
		return "Cannot reach the server. Please check your network connection."
	case KindTimeout:
		return "The connection timed out. Please try again."
	case KindUnauthorized:
		if IsPublic(apiErr.Endpoint) && apiErr.Message != "" {
			return apiErr.Message
		}
		return "Your session has expired. Please log in again."
	case KindUnauthenticated:
		return "Please log in to continue."
	case KindNotFound:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "The requested resource was not found."
	case KindServerError:
		return "The server is having trouble. Please try again later."
	case KindClientError:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "The request could not be processed."
	default:
		return err.Error()
	}
}
