package interview

import "context"

// TurnService generates questions and evaluations. Implementations wrap
// ErrTransport or ErrParse on failure.
type TurnService interface {
	GenerateQuestion(ctx context.Context, req QuestionRequest) (Question, error)
	EvaluateAnswer(ctx context.Context, req EvaluationRequest) (Evaluation, error)
	FinalEvaluation(ctx context.Context, req FinalRequest) (FinalEvaluation, error)
}

// EventSink receives session updates for rendering.
type EventSink interface {
	StateChanged(s Snapshot)
	CountdownTick(remaining int)
	DraftChanged(text string)
	SessionError(code ErrorCode, detail string)
}

// Sinks fans events out to several sinks in order.
type Sinks []EventSink

func (s Sinks) StateChanged(snap Snapshot) {
	for _, sink := range s {
		sink.StateChanged(snap)
	}
}

func (s Sinks) CountdownTick(remaining int) {
	for _, sink := range s {
		sink.CountdownTick(remaining)
	}
}

func (s Sinks) DraftChanged(text string) {
	for _, sink := range s {
		sink.DraftChanged(text)
	}
}

func (s Sinks) SessionError(code ErrorCode, detail string) {
	for _, sink := range s {
		sink.SessionError(code, detail)
	}
}

type nopSink struct{}

func (nopSink) StateChanged(Snapshot)          {}
func (nopSink) CountdownTick(int)              {}
func (nopSink) DraftChanged(string)            {}
func (nopSink) SessionError(ErrorCode, string) {}
