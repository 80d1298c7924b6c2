package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindClient         ErrorKind = "client"
	KindTransient      ErrorKind = "transient"
	KindParse          ErrorKind = "parse"
)

// ProviderError is returned by every text generation client.
type ProviderError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Kind, e.Provider, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(kind ErrorKind, provider, message string, err error) *ProviderError {
	return &ProviderError{
		Kind:     kind,
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}

func AuthenticationError(provider string, err error) *ProviderError {
	return NewProviderError(KindAuthentication, provider, "invalid credential", err)
}

func ParseError(provider, message string, err error) *ProviderError {
	return NewProviderError(KindParse, provider, message, err)
}

// FromStatus classifies an HTTP status returned by a provider API.
func FromStatus(provider string, status int, err error) *ProviderError {
	var kind ErrorKind
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuthentication
	case status >= 400 && status < 500:
		kind = KindClient
	default:
		kind = KindTransient
	}
	return &ProviderError{
		Kind:       kind,
		Provider:   provider,
		StatusCode: status,
		Message:    http.StatusText(status),
		Err:        err,
	}
}

// FromTransportError classifies an error that carried no HTTP status.
// Context cancellation passes through untouched.
func FromTransportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return ParseError(provider, "response body not decodable", err)
	}
	return NewProviderError(KindTransient, provider, "request failed", err)
}

// KindOf returns the kind of a provider error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return ""
}

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}
