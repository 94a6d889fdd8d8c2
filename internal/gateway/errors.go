package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned for a call attempted without a live session.
	// No request reaches the network.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrSessionExpired is returned when the server rejected the credential.
	// The session has been torn down; callers must not retry.
	ErrSessionExpired = errors.New("session expired")
)

// RequestFailedError is a non-success status other than 401.
type RequestFailedError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Endpoint, e.Status, e.Message)
}

// NetworkError means no response was received.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// LoginError is a rejected login, carrying the message shown to the user.
type LoginError struct {
	Message string
}

func (e *LoginError) Error() string {
	return "login failed: " + e.Message
}

// Regional reports whether err is contained to the region that produced it.
// Only ErrSessionExpired escalates.
func Regional(err error) bool {
	return err != nil && !errors.Is(err, ErrSessionExpired)
}
