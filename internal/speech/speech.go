package speech

import (
	"context"
	"errors"
)

// ErrCapabilityUnavailable is returned when the environment has no speech engine.
var ErrCapabilityUnavailable = errors.New("speech capability unavailable")

// Recognizer captures spoken answers and delivers transcribed text asynchronously.
// Stop must be safe to call more than once.
type Recognizer interface {
	Start(ctx context.Context, onTranscript func(text string), onError func(err error)) error
	Stop() error
}

// Synthesizer reads interviewer text aloud.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
	Stop() error
}

// Availability reports whether a capability is backed by a real engine.
type Availability interface {
	Available() bool
}

// IsAvailable reports whether v is a usable capability.
func IsAvailable(v any) bool {
	if v == nil {
		return false
	}
	if a, ok := v.(Availability); ok {
		return a.Available()
	}
	return true
}

type unavailable struct{}

// UnavailableRecognizer returns a Recognizer for environments without speech input.
func UnavailableRecognizer() Recognizer { return unavailable{} }

// UnavailableSynthesizer returns a Synthesizer for environments without speech output.
func UnavailableSynthesizer() Synthesizer { return unavailable{} }

func (unavailable) Available() bool { return false }

func (unavailable) Start(context.Context, func(string), func(error)) error {
	return ErrCapabilityUnavailable
}

func (unavailable) Speak(context.Context, string) error { return ErrCapabilityUnavailable }

func (unavailable) Stop() error { return nil }
