package turn

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/matryer/is"

	"github.com/muhammadolammi/mockinterview/internal/interview"
)

func serve(t *testing.T, status int, body string, got *Request) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "")
	c.HTTPClient = &http.Client{Timeout: time.Second}
	return c
}

func TestClientGenerateQuestionOmitsAbsentResume(t *testing.T) {
	is := is.New(t)

	var got Request
	c := serve(t, http.StatusOK, `{"question":"Explain CAP theorem"}`, &got)

	q, err := c.GenerateQuestion(context.Background(), interview.QuestionRequest{Role: "Backend Engineer"})
	is.NoErr(err)
	is.Equal(q.Text, "Explain CAP theorem")
	is.Equal(got.Mode, ModeGenerateQuestion)
	is.Equal(got.Role, "Backend Engineer")
	is.Equal(got.ResumeText, "")
	is.Equal(got.PreviousAnswers, nil)
}

func TestClientRequestOmitsEmptyFields(t *testing.T) {
	is := is.New(t)

	raw := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		_ = json.NewDecoder(r.Body).Decode(&m)
		raw <- m
		_, _ = w.Write([]byte(`{"question":"q"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").GenerateQuestion(context.Background(), interview.QuestionRequest{Role: "SRE"})
	is.NoErr(err)
	m := <-raw
	_, hasResume := m["resumeText"]
	_, hasPrevious := m["previousAnswers"]
	is.True(!hasResume)   // absent resume is not sent
	is.True(!hasPrevious) // first question has no history
}

func TestClientEvaluateAnswer(t *testing.T) {
	is := is.New(t)

	var got Request
	c := serve(t, http.StatusOK, `{"score":8,"feedback":"Good summary","nextQuestion":"ignored"}`, &got)

	ev, err := c.EvaluateAnswer(context.Background(), interview.EvaluationRequest{
		Role:            "Backend Engineer",
		CurrentQuestion: "Explain CAP theorem",
		UserAnswer:      "Consistency, Availability, Partition tolerance",
	})
	is.NoErr(err)
	is.Equal(ev.Score, 8.0)
	is.Equal(ev.Feedback, "Good summary")
	is.Equal(got.Mode, ModeEvaluateAnswer)
	is.Equal(got.UserAnswer, "Consistency, Availability, Partition tolerance")
	is.Equal(got.CurrentQuestion, "Explain CAP theorem")
}

func TestClientFinalEvaluation(t *testing.T) {
	is := is.New(t)

	var got Request
	c := serve(t, http.StatusOK, `{"finalScore":7,"overallFeedback":"Solid","strengths":["a"],"areasOfImprovement":["b"]}`, &got)

	answers := []interview.Answer{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}}
	fe, err := c.FinalEvaluation(context.Background(), interview.FinalRequest{Role: "SRE", Answers: answers})
	is.NoErr(err)
	is.Equal(fe.FinalScore, 7.0)
	is.Equal(fe.Strengths, []string{"a"})
	is.Equal(fe.AreasOfImprovement, []string{"b"})
	is.Equal(fe.ClosingRemarks, "")
	is.Equal(got.Mode, ModeFinalEvaluation)
	is.Equal(got.Answers, answers)
}

func TestClientSendsAPIKey(t *testing.T) {
	is := is.New(t)

	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		_, _ = w.Write([]byte(`{"question":"q"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "secret").GenerateQuestion(context.Background(), interview.QuestionRequest{Role: "SRE"})
	is.NoErr(err)
	h := <-headers
	is.Equal(h.Get("Authorization"), "Bearer secret")
	is.Equal(h.Get("apikey"), "secret")
	is.Equal(h.Get("Content-Type"), "application/json")
}

func TestClientFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"status_500", http.StatusInternalServerError, `{"error":"boom"}`, interview.ErrTransport},
		{"status_400", http.StatusBadRequest, `{"error":"Invalid mode"}`, interview.ErrTransport},
		{"not_json", http.StatusOK, "Here is your question: explain CAP", interview.ErrParse},
		{"wrong_shape", http.StatusOK, `{"score":"high"}`, interview.ErrParse},
		{"score_out_of_range", http.StatusOK, `{"score":11,"feedback":"x"}`, interview.ErrParse},
		{"score_missing", http.StatusOK, `{"feedback":"x"}`, interview.ErrParse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			c := serve(t, tc.status, tc.body, nil)
			_, err := c.EvaluateAnswer(context.Background(), interview.EvaluationRequest{Role: "r", CurrentQuestion: "q", UserAnswer: "a"})
			is.True(errors.Is(err, tc.want))
			is.True(interview.IsRequestFailure(err))
		})
	}
}

func TestClientRejectsEmptyQuestion(t *testing.T) {
	is := is.New(t)

	c := serve(t, http.StatusOK, `{"question":"   "}`, nil)
	_, err := c.GenerateQuestion(context.Background(), interview.QuestionRequest{Role: "SRE"})
	is.True(errors.Is(err, interview.ErrParse))
}

func TestClientRejectsIncompleteFinalEvaluation(t *testing.T) {
	is := is.New(t)

	c := serve(t, http.StatusOK, `{"finalScore":0,"overallFeedback":"x"}`, nil)
	_, err := c.FinalEvaluation(context.Background(), interview.FinalRequest{Role: "SRE", Answers: []interview.Answer{{Question: "q", Answer: "a"}}})
	is.True(errors.Is(err, interview.ErrParse))
}

func TestClientTransportError(t *testing.T) {
	is := is.New(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "").GenerateQuestion(context.Background(), interview.QuestionRequest{Role: "SRE"})
	is.True(errors.Is(err, interview.ErrTransport))

	_, err = NewClient("", "").GenerateQuestion(context.Background(), interview.QuestionRequest{Role: "SRE"})
	is.True(errors.Is(err, interview.ErrTransport)) // missing url
}

func TestClientHonoursCancellation(t *testing.T) {
	is := is.New(t)

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := NewClient(srv.URL, "").GenerateQuestion(ctx, interview.QuestionRequest{Role: "SRE"})
	is.True(errors.Is(err, interview.ErrTransport))
}

func TestErrorMessageTruncatesOnRuneBoundary(t *testing.T) {
	is := is.New(t)

	msg := errorMessage([]byte(strings.Repeat("é", 300)))
	is.True(utf8.ValidString(msg))
	is.Equal(utf8.RuneCountInString(msg), maxErrorRunes)

	is.Equal(errorMessage([]byte(`{"error":"Invalid mode"}`)), "Invalid mode")
	is.Equal(errorMessage([]byte("  upstream down \n")), "upstream down")
}
