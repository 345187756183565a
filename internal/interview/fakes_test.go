package interview

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// eventLog is shared between fakes so tests can assert ordering.
type eventLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *eventLog) add(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (l *eventLog) indexOf(entry string, from int) int {
	entries := l.snapshot()
	for i := from; i < len(entries); i++ {
		if entries[i] == entry {
			return i
		}
	}
	return -1
}

type fakeService struct {
	log *eventLog

	mu           sync.Mutex
	questionReqs []QuestionRequest
	evalReqs     []EvaluationRequest
	finalReqs    []FinalRequest
	questionErrs []error
	evalErrs     []error
	finalErrs    []error
	questions    []Question
	score        float64
	feedback     string
	final        FinalEvaluation

	// block, when set, holds every call until it is closed.
	block     chan struct{}
	ignoreCtx bool

	inFlight    int
	maxInFlight int
}

func newFakeService() *fakeService {
	return &fakeService{
		score:    7,
		feedback: "ok",
		final: FinalEvaluation{
			FinalScore:         7,
			OverallFeedback:    "Solid interview",
			Strengths:          []string{"clarity"},
			AreasOfImprovement: []string{"depth"},
		},
	}
}

func (f *fakeService) enter(ctx context.Context) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	block := f.block
	ignore := f.ignoreCtx
	f.mu.Unlock()

	if block == nil {
		return nil
	}
	if ignore {
		<-block
		return nil
	}
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
	}
}

func (f *fakeService) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *fakeService) GenerateQuestion(ctx context.Context, req QuestionRequest) (Question, error) {
	f.log.add("call:generate_question")
	if err := f.enter(ctx); err != nil {
		f.leave()
		return Question{}, err
	}
	defer f.leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.questionReqs = append(f.questionReqs, req)
	if err := popErr(&f.questionErrs); err != nil {
		return Question{}, err
	}
	if len(f.questions) > 0 {
		q := f.questions[0]
		f.questions = f.questions[1:]
		return q, nil
	}
	return Question{Text: fmt.Sprintf("Question %d", len(f.questionReqs))}, nil
}

func (f *fakeService) EvaluateAnswer(ctx context.Context, req EvaluationRequest) (Evaluation, error) {
	f.log.add("call:evaluate_answer")
	if err := f.enter(ctx); err != nil {
		f.leave()
		return Evaluation{}, err
	}
	defer f.leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.evalReqs = append(f.evalReqs, req)
	if err := popErr(&f.evalErrs); err != nil {
		return Evaluation{}, err
	}
	return Evaluation{Score: f.score, Feedback: f.feedback}, nil
}

func (f *fakeService) FinalEvaluation(ctx context.Context, req FinalRequest) (FinalEvaluation, error) {
	f.log.add("call:final_evaluation")
	if err := f.enter(ctx); err != nil {
		f.leave()
		return FinalEvaluation{}, err
	}
	defer f.leave()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalReqs = append(f.finalReqs, req)
	if err := popErr(&f.finalErrs); err != nil {
		return FinalEvaluation{}, err
	}
	return f.final, nil
}

func (f *fakeService) counts() (questions, evals, finals int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.questionReqs), len(f.evalReqs), len(f.finalReqs)
}

func (f *fakeService) setBlock(ch chan struct{}, ignoreCtx bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = ch
	f.ignoreCtx = ignoreCtx
}

type sinkError struct {
	code   ErrorCode
	detail string
}

type fakeSink struct {
	log *eventLog

	mu     sync.Mutex
	states []Snapshot
	ticks  []int
	drafts []string
	errors []sinkError
}

func (s *fakeSink) StateChanged(snap Snapshot) {
	s.log.add("state:%s", snap.Status)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, snap)
}

func (s *fakeSink) CountdownTick(remaining int) {
	s.log.add("tick:%d", remaining)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, remaining)
}

func (s *fakeSink) DraftChanged(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = append(s.drafts, text)
}

func (s *fakeSink) SessionError(code ErrorCode, detail string) {
	s.log.add("error:%s", code)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, sinkError{code: code, detail: detail})
}

func (s *fakeSink) snapshotTicks() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.ticks...)
}

func (s *fakeSink) snapshotErrors() []sinkError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkError(nil), s.errors...)
}

type fakeRecognizer struct {
	mu           sync.Mutex
	onTranscript func(string)
	onError      func(error)
	starts       int
	stops        int
	startErr     error
}

func (r *fakeRecognizer) Start(_ context.Context, onTranscript func(string), onError func(error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.starts++
	r.onTranscript = onTranscript
	r.onError = onError
	return nil
}

func (r *fakeRecognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return nil
}

func (r *fakeRecognizer) say(text string) {
	r.mu.Lock()
	fn := r.onTranscript
	r.mu.Unlock()
	fn(text)
}

func (r *fakeRecognizer) fail(err error) {
	r.mu.Lock()
	fn := r.onError
	r.mu.Unlock()
	fn(err)
}

func (r *fakeRecognizer) stopCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

type fakeSynthesizer struct {
	mu     sync.Mutex
	spoken []string
}

func (s *fakeSynthesizer) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *fakeSynthesizer) Stop() error { return nil }

func (s *fakeSynthesizer) said() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitForTurn(t *testing.T, c *Controller, index int) {
	t.Helper()
	eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.CanSubmit() && snap.QuestionIndex == index
	}, fmt.Sprintf("question %d to be ready", index))
}

func answerFor(i int) string {
	return strings.Repeat("x", i+1)
}
