package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/muhammadolammi/mockinterview/internal/events"
	"github.com/muhammadolammi/mockinterview/internal/interview"
	"github.com/muhammadolammi/mockinterview/internal/resume"
	"github.com/muhammadolammi/mockinterview/internal/turn"
)

const practiceHelp = `Type your answer and press Enter.
Commands: /submit resend the kept answer, /retry retry a failed request, /listen voice input,
/mute toggle spoken questions, /status show progress, /quit end the interview.`

func practice(ctx context.Context, opts PracticeOptions, in io.Reader, out io.Writer) error {
	resumeText, err := loadResume(ctx, opts)
	if err != nil {
		return fmt.Errorf("error loading resume: %w", err)
	}

	id := uuid.NewString()
	con := newConsole(out)
	sinks := interview.Sinks{con}

	if opts.RabbitMQURL != "" {
		conn, err := amqp.Dial(opts.RabbitMQURL)
		if err != nil {
			log.Printf("error connecting to RabbitMQ, updates will not be published. err: %v", err)
		} else {
			defer conn.Close()
			pub, err := events.Open(conn, id)
			if err != nil {
				log.Printf("failed to open update publisher: %v", err)
			} else {
				defer pub.Close()
				sinks = append(sinks, pub)
				log.Printf("publishing updates to %s with routing key %s", events.Exchange, events.RoutingKey(id))
			}
		}
	}

	c, err := interview.NewController(turn.NewClient(opts.ServiceURL, opts.ServiceKey), sinks, interview.Config{
		Role:            opts.Role,
		ResumeText:      resumeText,
		TurnLimit:       opts.TurnLimit,
		CooldownSeconds: opts.CooldownSeconds,
		Tick:            opts.tick,
	}, interview.WithSessionID(id))
	if err != nil {
		return err
	}
	defer c.Close()

	c.SetMuted(opts.Muted)
	con.println(practiceHelp)
	if err := c.Start(ctx); err != nil && !interview.IsRequestFailure(err) {
		return err
	}

	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	go scanLines(in, lines, stop)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, c, con, line); quit {
				return nil
			}
		}
	}
}

func scanLines(in io.Reader, lines chan<- string, stop <-chan struct{}) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-stop:
			return
		}
	}
}

// handleLine runs one console command or submits the line as an answer. It
// reports whether the session should end.
func handleLine(ctx context.Context, c *interview.Controller, con *console, line string) bool {
	line = strings.TrimSpace(line)
	var err error
	switch line {
	case "":
		return false
	case "/quit":
		return true
	case "/help":
		con.println(practiceHelp)
		return false
	case "/status":
		con.status(c.Snapshot())
		return false
	case "/mute":
		c.SetMuted(!c.Snapshot().Muted)
		return false
	case "/listen":
		err = c.StartListening(ctx)
	case "/retry":
		err = c.RequestNextTurn(ctx)
	case "/submit":
		err = c.SubmitAnswer(ctx, c.Snapshot().Draft)
	default:
		err = c.SubmitAnswer(ctx, line)
	}

	switch {
	case err == nil, interview.IsRequestFailure(err), errors.Is(err, interview.ErrValidation):
		// Already reported through SessionError.
	case errors.Is(err, interview.ErrRequestInFlight), errors.Is(err, interview.ErrInvalidState):
		con.println("Please wait for the next question.")
	case errors.Is(err, interview.ErrCapabilityUnavailable):
		con.println("Voice input is not available in the terminal.")
	case errors.Is(err, interview.ErrComplete), errors.Is(err, interview.ErrSessionClosed):
		return true
	default:
		con.println("Error: " + err.Error())
	}
	return false
}

func loadResume(ctx context.Context, opts PracticeOptions) (string, error) {
	switch {
	case opts.ResumePath != "":
		return resume.LoadFile(opts.ResumePath)
	case opts.ResumeKey != "":
		store, err := resume.NewR2Store(ctx, opts.R2)
		if err != nil {
			return "", err
		}
		// Network failures are transient.
		return retry(ctx, 3, func() (string, error) {
			return store.Load(ctx, opts.ResumeKey)
		})
	default:
		return "", nil
	}
}

// console renders session events as lines of text.
type console struct {
	mu       sync.Mutex
	out      io.Writer
	last     interview.Snapshot
	started  bool
	question string
}

var _ interview.EventSink = (*console)(nil)

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

func (c *console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

func (c *console) StateChanged(s interview.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := !c.started || s.Status != c.last.Status
	if c.started && s.Muted != c.last.Muted {
		if s.Muted {
			fmt.Fprintln(c.out, "Spoken questions muted.")
		} else {
			fmt.Fprintln(c.out, "Spoken questions unmuted.")
		}
	}

	switch s.Status {
	case interview.StatusAwaitingQuestion:
		if changed {
			fmt.Fprintf(c.out, "Preparing question %d of %d...\n", s.QuestionIndex+1, s.TurnLimit)
		}
	case interview.StatusAwaitingAnswer:
		if s.Question != nil && s.Question.Text != c.question {
			c.question = s.Question.Text
			if s.Question.Context != "" {
				fmt.Fprintln(c.out, s.Question.Context)
			}
			fmt.Fprintf(c.out, "\nQuestion %d/%d: %s\n", s.QuestionIndex+1, s.TurnLimit, s.Question.Text)
		}
	case interview.StatusScoring:
		if changed {
			fmt.Fprintln(c.out, "Scoring your answer...")
		}
	case interview.StatusCooldown:
		if changed && len(s.Answers) > 0 {
			qa := s.Answers[len(s.Answers)-1]
			if qa.Score != nil {
				fmt.Fprintf(c.out, "Score: %g/10\n", *qa.Score)
			}
			if qa.Feedback != "" {
				fmt.Fprintln(c.out, qa.Feedback)
			}
		}
	case interview.StatusEvaluating:
		if changed {
			fmt.Fprintln(c.out, "Preparing your final evaluation...")
		}
	case interview.StatusComplete:
		if changed && s.FinalEvaluation != nil {
			printFinal(c.out, *s.FinalEvaluation)
		}
	case interview.StatusClosed:
		if changed {
			fmt.Fprintln(c.out, "Interview closed.")
		}
	}
	c.last = s
	c.started = true
}

func (c *console) CountdownTick(remaining int) {
	if remaining <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	next := "Next question"
	if len(c.last.Answers) >= c.last.TurnLimit {
		next = "Final evaluation"
	}
	fmt.Fprintf(c.out, "%s in %d...\n", next, remaining)
}

func (c *console) DraftChanged(string) {}

func (c *console) SessionError(code interview.ErrorCode, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "Error (%s): %s\n", code, detail)
	switch code {
	case interview.ErrorCodeQuestion, interview.ErrorCodeEvaluation:
		fmt.Fprintln(c.out, "Type /retry to try again.")
	case interview.ErrorCodeScoring:
		fmt.Fprintln(c.out, "Your answer was kept. Type /submit to send it again.")
	}
}

func (c *console) status(s interview.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "Session %s: %s, %d of %d answered\n", s.SessionID, s.Status, len(s.Answers), s.TurnLimit)
	if s.Countdown != nil {
		fmt.Fprintf(c.out, "Next step in %d\n", *s.Countdown)
	}
	if s.LastError != "" {
		fmt.Fprintf(c.out, "Last error: %s\n", s.LastError)
	}
}

func printFinal(out io.Writer, fe interview.FinalEvaluation) {
	fmt.Fprintf(out, "\nFinal score: %g/10\n%s\n", fe.FinalScore, fe.OverallFeedback)
	if len(fe.Strengths) > 0 {
		fmt.Fprintln(out, "Strengths:")
		for _, s := range fe.Strengths {
			fmt.Fprintf(out, "  - %s\n", s)
		}
	}
	if len(fe.AreasOfImprovement) > 0 {
		fmt.Fprintln(out, "Areas of improvement:")
		for _, s := range fe.AreasOfImprovement {
			fmt.Fprintf(out, "  - %s\n", s)
		}
	}
	if fe.ClosingRemarks != "" {
		fmt.Fprintln(out, fe.ClosingRemarks)
	}
}

// updateLine formats a published update for the watch command.
func updateLine(u events.Update) string {
	ts := u.Timestamp.Format(time.TimeOnly)
	switch u.Kind {
	case events.KindCountdown:
		n := 0
		if u.Countdown != nil {
			n = *u.Countdown
		}
		return fmt.Sprintf("[%s] %s countdown %d", ts, u.SessionID, n)
	case events.KindError:
		return fmt.Sprintf("[%s] %s error %s", ts, u.SessionID, u.Message)
	default:
		line := fmt.Sprintf("[%s] %s %s", ts, u.SessionID, u.Status)
		if u.Message != "" {
			line += ": " + u.Message
		}
		return line
	}
}
