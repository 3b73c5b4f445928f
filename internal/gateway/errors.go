package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound marks a semantically empty result, such as no active battle.
var ErrNotFound = errors.New("not found")

// TransportError means no response reached the client.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError carries a structured error response from the server.
type RejectedError struct {
	Op      string
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Op, e.Status, msg)
}

// Is lets errors.Is(err, ErrNotFound) match 404 rejections.
func (e *RejectedError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// ProtocolError means the server reported success but the payload was
// unusable.
type ProtocolError struct {
	Op     string
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: protocol violation: %s", e.Op, e.Detail)
}

// IsTransport reports whether err (or anything it wraps) is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsProtocol reports whether err is a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// ServerMessage returns the server-provided message carried by a rejection,
// or fallback for any other error.
func ServerMessage(err error, fallback string) string {
	var re *RejectedError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return fallback
}
