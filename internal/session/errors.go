package session

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the Manager matches exactly one of these
// with errors.Is; the concrete types below carry the details.
var (
	ErrValidation    = errors.New("invalid request")
	ErrConflict      = errors.New("serial port busy")
	ErrUnavailable   = errors.New("serial port unavailable")
	ErrCommunication = errors.New("serial communication fault")
)

// ValidationError reports a malformed or missing request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError reports that the serial line is already held. Port is the port
// currently bound, which may be empty when another command is still connecting.
type ConflictError struct {
	Port      string
	Requested string
}

func (e *ConflictError) Error() string {
	if e.Port == "" || e.Port == e.Requested {
		return "serial port is in use by another command"
	}
	return fmt.Sprintf("serial port %s is in use; cannot send to %s", e.Port, e.Requested)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// UnavailableError reports that the port could not be opened.
type UnavailableError struct {
	Port string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("could not connect to CNC machine on %s: %v", e.Port, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// CommunicationFault reports a write or read failure after the port was opened.
type CommunicationFault struct {
	Port string
	Op   string
	Err  error
}

func (e *CommunicationFault) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Port, e.Err)
}

func (e *CommunicationFault) Unwrap() error { return e.Err }

func (e *CommunicationFault) Is(target error) bool { return target == ErrCommunication }
