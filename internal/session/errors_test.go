package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("permission denied")
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"validation", &ValidationError{Field: "text", Message: "No text input provided"}, ErrValidation},
		{"conflict", &ConflictError{Port: "COM3", Requested: "COM4"}, ErrConflict},
		{"unavailable", &UnavailableError{Port: "COM3", Err: cause}, ErrUnavailable},
		{"communication", &CommunicationFault{Port: "COM3", Op: "read from", Err: cause}, ErrCommunication},
	}
	kinds := []error{ErrValidation, ErrConflict, ErrUnavailable, ErrCommunication}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("dispatch: %w", tt.err)
			for _, k := range kinds {
				assert.Equal(t, k == tt.kind, errors.Is(wrapped, k), "errors.Is(%v, %v)", tt.err, k)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("no such file or directory")

	assert.Equal(t, "No port input provided", (&ValidationError{Field: "port", Message: "No port input provided"}).Error())
	assert.Equal(t, "serial port COM3 is in use; cannot send to COM4", (&ConflictError{Port: "COM3", Requested: "COM4"}).Error())
	assert.Equal(t, "serial port is in use by another command", (&ConflictError{Requested: "COM4"}).Error())
	assert.Equal(t, "serial port is in use by another command", (&ConflictError{Port: "COM3", Requested: "COM3"}).Error())

	unavailable := &UnavailableError{Port: "COM3", Err: cause}
	assert.Contains(t, unavailable.Error(), "COM3")
	assert.ErrorIs(t, unavailable, cause)

	fault := &CommunicationFault{Port: "COM3", Op: "write to", Err: cause}
	assert.Equal(t, "failed to write to COM3: no such file or directory", fault.Error())
	assert.ErrorIs(t, fault, cause)
}
