package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/muhammadolammi/mockinterview/internal/speech"
)

// Option customizes a Controller.
type Option func(*Controller)

// WithRecognizer enables voice answers through r.
func WithRecognizer(r speech.Recognizer) Option {
	return func(c *Controller) {
		if r != nil {
			c.recognizer = r
		}
	}
}

// WithSynthesizer enables spoken questions through s.
func WithSynthesizer(s speech.Synthesizer) Option {
	return func(c *Controller) {
		if s != nil {
			c.synth = s
		}
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(c *Controller) {
		if strings.TrimSpace(id) != "" {
			c.id = id
		}
	}
}

// Controller drives one interview session: question, answer, score, cooldown,
// repeated TurnLimit times, then a single final evaluation.
//
// At most one turn service request is pending at any time. Sink callbacks are
// delivered serially and must not call back into the controller synchronously.
type Controller struct {
	svc        TurnService
	sink       EventSink
	cfg        Config
	id         string
	recognizer speech.Recognizer
	synth      speech.Synthesizer

	base context.Context
	stop context.CancelFunc

	emitMu sync.Mutex
	wg     sync.WaitGroup

	mu              sync.Mutex
	status          Status
	index           int
	question        *Question
	history         []QA
	draft           string
	countdown       *int
	inFlight        bool
	epoch           uint64
	cancelRequest   context.CancelFunc
	cancelCountdown context.CancelFunc
	listening       bool
	speaking        bool
	muted           bool
	final           *FinalEvaluation
	lastErr         string
	closed          bool

	done     chan struct{}
	doneOnce sync.Once
}

// NewController validates cfg and prepares a session in the init state.
func NewController(svc TurnService, sink EventSink, cfg Config, opts ...Option) (*Controller, error) {
	if svc == nil {
		return nil, errors.New("turn service is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = nopSink{}
	}

	base, stop := context.WithCancel(context.Background())
	c := &Controller{
		svc:        svc,
		sink:       sink,
		cfg:        cfg.withDefaults(),
		id:         uuid.New().String(),
		recognizer: speech.UnavailableRecognizer(),
		synth:      speech.UnavailableSynthesizer(),
		base:       base,
		stop:       stop,
		status:     StatusInit,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Done is closed once the session completes or is closed.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Start moves the session out of init and requests the first question.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if err := c.terminalErrLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.status != StatusInit {
		c.mu.Unlock()
		return ErrInvalidState
	}
	c.status = StatusAwaitingQuestion
	c.mu.Unlock()

	log.Printf("interview %s: started for role %q", c.id, c.cfg.Role)
	c.emit()
	return c.requestQuestion(ctx)
}

// SubmitAnswer sends text for scoring. Empty answers never reach the turn service.
func (c *Controller) SubmitAnswer(ctx context.Context, text string) error {
	c.mu.Lock()
	if err := c.terminalErrLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		err := fmt.Errorf("%w: answer is empty", ErrValidation)
		c.reportError(ErrorCodeValidation, err)
		return err
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrRequestInFlight
	}
	if c.status != StatusAwaitingAnswer || c.question == nil {
		c.mu.Unlock()
		return ErrInvalidState
	}

	reqCtx, epoch := c.beginRequestLocked(ctx)
	c.status = StatusScoring
	c.draft = ""
	question := c.question.Text
	wasListening := c.listening
	c.listening = false
	c.mu.Unlock()

	if wasListening {
		_ = c.recognizer.Stop()
	}
	c.emit()

	ev, err := c.svc.EvaluateAnswer(reqCtx, EvaluationRequest{
		Role:            c.cfg.Role,
		CurrentQuestion: question,
		UserAnswer:      text,
	})

	c.mu.Lock()
	if !c.finishRequestLocked(epoch) {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if err != nil {
		c.status = StatusAwaitingAnswer
		c.draft = text
		c.lastErr = err.Error()
		c.mu.Unlock()
		c.reportError(ErrorCodeScoring, err)
		c.emit()
		return err
	}

	score := ev.Score
	c.history = append(c.history, QA{
		Question: question,
		Answer:   text,
		Score:    &score,
		Feedback: ev.Feedback,
	})
	c.lastErr = ""
	c.status = StatusCooldown
	countdown := c.startCountdownLocked()
	turn := len(c.history)
	c.mu.Unlock()

	log.Printf("interview %s: turn %d scored %.1f", c.id, turn, score)
	c.emit()
	go c.runCountdown(countdown)
	return nil
}

// RequestNextTurn retries the pending question or final evaluation request
// after a failure.
func (c *Controller) RequestNextTurn(ctx context.Context) error {
	c.mu.Lock()
	if err := c.terminalErrLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrRequestInFlight
	}
	status := c.status
	c.mu.Unlock()

	switch status {
	case StatusAwaitingQuestion:
		return c.requestQuestion(ctx)
	case StatusEvaluating:
		return c.requestFinal(ctx)
	default:
		return ErrInvalidState
	}
}

// SetDraft replaces the in-progress answer text.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.draft = text
	c.mu.Unlock()
	c.draftChanged(text)
}

// StartListening begins voice capture into the draft answer.
func (c *Controller) StartListening(ctx context.Context) error {
	if !speech.IsAvailable(c.recognizer) {
		err := fmt.Errorf("voice input disabled: %w", ErrCapabilityUnavailable)
		c.reportError(ErrorCodeSpeech, err)
		return err
	}

	c.mu.Lock()
	if err := c.terminalErrLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrRequestInFlight
	}
	if c.listening {
		c.mu.Unlock()
		return nil
	}
	c.listening = true
	c.mu.Unlock()

	if err := c.recognizer.Start(ctx, c.onTranscript, c.onSpeechError); err != nil {
		c.mu.Lock()
		c.listening = false
		c.mu.Unlock()
		err = fmt.Errorf("start speech capture: %w", err)
		c.reportError(ErrorCodeSpeech, err)
		c.emit()
		return err
	}
	c.emit()
	return nil
}

// StopListening ends voice capture. Calling it when not listening is a no-op.
func (c *Controller) StopListening() error {
	c.mu.Lock()
	if !c.listening {
		c.mu.Unlock()
		return nil
	}
	c.listening = false
	c.mu.Unlock()

	err := c.recognizer.Stop()
	c.emit()
	return err
}

// SetMuted toggles spoken questions; muting stops any speech in progress.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	wasSpeaking := c.speaking
	if muted {
		c.speaking = false
	}
	c.mu.Unlock()

	if muted && wasSpeaking {
		_ = c.synth.Stop()
	}
	c.emit()
}

// Close tears the session down. Pending countdowns never fire and the
// in-flight request, if any, is cancelled and its result discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	if c.cancelRequest != nil {
		c.cancelRequest()
		c.cancelRequest = nil
	}
	c.inFlight = false
	if c.cancelCountdown != nil {
		c.cancelCountdown()
		c.cancelCountdown = nil
	}
	c.countdown = nil
	if c.status != StatusComplete {
		c.status = StatusClosed
	}
	wasListening := c.listening
	c.listening = false
	c.speaking = false
	c.mu.Unlock()

	c.stop()
	if wasListening {
		_ = c.recognizer.Stop()
	}
	_ = c.synth.Stop()
	c.wg.Wait()
	c.closeDone()

	log.Printf("interview %s: closed", c.id)
	c.emit()
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		SessionID:     c.id,
		Role:          c.cfg.Role,
		Status:        c.status,
		QuestionIndex: c.index,
		TurnLimit:     c.cfg.TurnLimit,
		Answers:       copyHistory(c.history),
		Draft:         c.draft,
		InFlight:      c.inFlight,
		Listening:     c.listening,
		Speaking:      c.speaking,
		Muted:         c.muted,
		VoiceInput:    speech.IsAvailable(c.recognizer),
		LastError:     c.lastErr,
	}
	if c.question != nil {
		q := *c.question
		snap.Question = &q
	}
	if c.countdown != nil {
		n := *c.countdown
		snap.Countdown = &n
	}
	if c.final != nil {
		fe := *c.final
		fe.Strengths = append([]string(nil), c.final.Strengths...)
		fe.AreasOfImprovement = append([]string(nil), c.final.AreasOfImprovement...)
		snap.FinalEvaluation = &fe
	}
	return snap
}

func (c *Controller) requestQuestion(ctx context.Context) error {
	c.mu.Lock()
	if err := c.terminalErrLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrRequestInFlight
	}
	if c.status != StatusAwaitingQuestion {
		c.mu.Unlock()
		return ErrInvalidState
	}
	reqCtx, epoch := c.beginRequestLocked(ctx)
	req := QuestionRequest{
		Role:            c.cfg.Role,
		ResumeText:      c.cfg.ResumeText,
		PreviousAnswers: toAnswers(c.history),
	}
	c.mu.Unlock()
	c.emit()

	q, err := c.svc.GenerateQuestion(reqCtx, req)

	c.mu.Lock()
	if !c.finishRequestLocked(epoch) {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if err != nil {
		c.lastErr = err.Error()
		c.mu.Unlock()
		c.reportError(ErrorCodeQuestion, err)
		c.emit()
		return err
	}
	c.question = &q
	c.status = StatusAwaitingAnswer
	c.lastErr = ""
	speak := !c.muted && speech.IsAvailable(c.synth)
	c.mu.Unlock()

	c.emit()
	if speak {
		c.speak(q)
	}
	return nil
}

func (c *Controller) requestFinal(ctx context.Context) error {
	c.mu.Lock()
	if err := c.terminalErrLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrRequestInFlight
	}
	if c.status != StatusEvaluating || len(c.history) != c.cfg.TurnLimit {
		c.mu.Unlock()
		return ErrInvalidState
	}
	reqCtx, epoch := c.beginRequestLocked(ctx)
	req := FinalRequest{Role: c.cfg.Role, Answers: toAnswers(c.history)}
	c.mu.Unlock()
	c.emit()

	fe, err := c.svc.FinalEvaluation(reqCtx, req)

	c.mu.Lock()
	if !c.finishRequestLocked(epoch) {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if err != nil {
		c.lastErr = err.Error()
		c.mu.Unlock()
		c.reportError(ErrorCodeEvaluation, err)
		c.emit()
		return err
	}
	c.final = &fe
	c.status = StatusComplete
	c.lastErr = ""
	c.mu.Unlock()

	log.Printf("interview %s: complete, final score %.1f", c.id, fe.FinalScore)
	c.closeDone()
	c.emit()
	return nil
}

// startCountdownLocked must be called with c.mu held. The caller runs
// runCountdown with the returned context once the cooldown state is emitted.
func (c *Controller) startCountdownLocked() context.Context {
	remaining := c.cfg.CooldownSeconds
	c.countdown = &remaining

	ctx, cancel := context.WithCancel(c.base)
	c.cancelCountdown = cancel
	c.wg.Add(1)
	return ctx
}

// runCountdown ticks down the cooldown and then requests the next turn. Only
// the ticking is tracked by c.wg: the request may outlive Close, and its
// response is then discarded by epoch.
func (c *Controller) runCountdown(ctx context.Context) {
	next, ok := c.countDown(ctx)
	c.wg.Done()
	if !ok {
		return
	}

	var err error
	if next == StatusEvaluating {
		err = c.requestFinal(c.base)
	} else {
		err = c.requestQuestion(c.base)
	}
	if err != nil && !errors.Is(err, ErrSessionClosed) {
		log.Printf("interview %s: next turn request failed: %v", c.id, err)
	}
}

// countDown reports the status the session moved to, or false when the
// countdown was cancelled.
func (c *Controller) countDown(ctx context.Context) (Status, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	ticker := time.NewTicker(c.cfg.Tick)
	defer ticker.Stop()

	remaining := c.cfg.CooldownSeconds
	c.tick(remaining)

	next := StatusAwaitingQuestion
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return "", false
		case <-ticker.C:
		}
		remaining--

		c.mu.Lock()
		if c.closed || ctx.Err() != nil {
			c.mu.Unlock()
			return "", false
		}
		if remaining > 0 {
			n := remaining
			c.countdown = &n
			c.mu.Unlock()
			c.tick(n)
			continue
		}

		c.countdown = nil
		if c.cancelCountdown != nil {
			c.cancelCountdown()
			c.cancelCountdown = nil
		}
		c.index++
		c.question = nil
		if c.index >= c.cfg.TurnLimit {
			next = StatusEvaluating
		}
		c.status = next
		c.mu.Unlock()
	}

	c.tick(0)
	c.emit()
	return next, true
}

func (c *Controller) speak(q Question) {
	text := q.Text
	if q.Context != "" {
		text = q.Context + " " + q.Text
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.speaking = true
	c.wg.Add(1)
	c.mu.Unlock()
	c.emit()

	go func() {
		defer c.wg.Done()
		err := c.synth.Speak(c.base, text)

		c.mu.Lock()
		c.speaking = false
		closed := c.closed
		c.mu.Unlock()

		if err != nil && c.base.Err() == nil {
			log.Printf("interview %s: speak failed: %v", c.id, err)
		}
		if !closed {
			c.emit()
		}
	}()
}

func (c *Controller) onTranscript(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	c.mu.Lock()
	if c.closed || !c.listening {
		c.mu.Unlock()
		return
	}
	if c.draft == "" {
		c.draft = text
	} else {
		c.draft = c.draft + " " + text
	}
	draft := c.draft
	c.mu.Unlock()
	c.draftChanged(draft)
}

func (c *Controller) onSpeechError(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.listening = false
	c.mu.Unlock()

	_ = c.recognizer.Stop()
	c.reportError(ErrorCodeSpeech, err)
	c.emit()
}

// beginRequestLocked must be called with c.mu held and no request in flight.
func (c *Controller) beginRequestLocked(parent context.Context) (context.Context, uint64) {
	if parent == nil {
		parent = c.base
	}
	ctx, cancel := context.WithCancel(parent)
	c.epoch++
	c.inFlight = true
	c.cancelRequest = cancel
	return ctx, c.epoch
}

// finishRequestLocked reports false when the response belongs to a torn down session.
func (c *Controller) finishRequestLocked(epoch uint64) bool {
	if c.closed || epoch != c.epoch {
		return false
	}
	c.inFlight = false
	if c.cancelRequest != nil {
		c.cancelRequest()
		c.cancelRequest = nil
	}
	return true
}

func (c *Controller) terminalErrLocked() error {
	if c.status == StatusComplete {
		return ErrComplete
	}
	if c.closed {
		return ErrSessionClosed
	}
	return nil
}

func (c *Controller) closeDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Controller) emit() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.sink.StateChanged(c.Snapshot())
}

func (c *Controller) tick(remaining int) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.sink.CountdownTick(remaining)
}

func (c *Controller) draftChanged(text string) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.sink.DraftChanged(text)
}

func (c *Controller) reportError(code ErrorCode, err error) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.sink.SessionError(code, err.Error())
}
