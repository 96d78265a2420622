package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError is bad local input; no request was made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthRequiredError means the action needs a session and there is none.
type AuthRequiredError struct {
	Message string
}

func (e *AuthRequiredError) Error() string {
	if e.Message == "" {
		return "authentication required"
	}
	return e.Message
}

// BackendError is a non-2xx answer. Message comes from the body when the
// server supplied one.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned %d %s", e.Status, http.StatusText(e.Status))
}

// NetworkError wraps a transport failure where no response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Message renders err as the single string shown to the user.
// Backend errors without a body message and network errors without a cause
// fall back to fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	var authRequired *AuthRequiredError
	if errors.As(err, &authRequired) {
		return authRequired.Error()
	}
	var backend *BackendError
	if errors.As(err, &backend) {
		if backend.Message != "" {
			return backend.Message
		}
		return fallback
	}
	var network *NetworkError
	if errors.As(err, &network) {
		if network.Err != nil {
			return network.Err.Error()
		}
		return fallback
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}
