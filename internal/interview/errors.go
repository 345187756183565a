package interview

import (
	"errors"

	"github.com/muhammadolammi/mockinterview/internal/speech"
)

var (
	// ErrValidation marks input rejected before any request is sent.
	ErrValidation = errors.New("validation error")
	// ErrTransport marks a failed request to the turn service.
	ErrTransport = errors.New("transport error")
	// ErrParse marks a turn service response that could not be understood.
	ErrParse = errors.New("malformed turn service response")
	// ErrCapabilityUnavailable marks a missing speech engine.
	ErrCapabilityUnavailable = speech.ErrCapabilityUnavailable

	ErrInvalidState    = errors.New("operation not allowed in current state")
	ErrRequestInFlight = errors.New("a turn service request is already in flight")
	ErrComplete        = errors.New("interview already complete")
	ErrSessionClosed   = errors.New("interview session closed")
)

// IsRequestFailure reports whether err came from the turn service rather than local validation.
func IsRequestFailure(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrParse)
}
