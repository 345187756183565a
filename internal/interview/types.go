package interview

// Status models the interview turn-taking lifecycle.
type Status string

const (
	StatusInit             Status = "init"
	StatusAwaitingQuestion Status = "awaiting_question"
	StatusAwaitingAnswer   Status = "awaiting_answer"
	StatusScoring          Status = "scoring"
	StatusCooldown         Status = "cooldown"
	StatusEvaluating       Status = "evaluating"
	StatusComplete         Status = "complete"
	StatusClosed           Status = "closed"
)

// ErrorCode identifies which part of a turn failed.
type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation"
	ErrorCodeQuestion   ErrorCode = "question"
	ErrorCodeScoring    ErrorCode = "scoring"
	ErrorCodeEvaluation ErrorCode = "evaluation"
	ErrorCodeSpeech     ErrorCode = "speech"
)

// Question is a generated interview question with optional spoken lead-in.
type Question struct {
	Text    string `json:"question"`
	Context string `json:"context,omitempty"`
}

// QA is one completed turn.
type QA struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Score    *float64 `json:"score,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
}

// Evaluation is the scored feedback for a single answer.
type Evaluation struct {
	Score        float64 `json:"score"`
	Feedback     string  `json:"feedback"`
	NextQuestion string  `json:"nextQuestion,omitempty"`
}

// FinalEvaluation is the aggregate result produced once per session.
type FinalEvaluation struct {
	FinalScore         float64  `json:"finalScore"`
	OverallFeedback    string   `json:"overallFeedback"`
	Strengths          []string `json:"strengths"`
	AreasOfImprovement []string `json:"areasOfImprovement"`
	ClosingRemarks     string   `json:"closingRemarks,omitempty"`
}

// Answer is a question/answer pair as sent to the turn service.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuestionRequest asks for the next question.
type QuestionRequest struct {
	Role            string
	ResumeText      string
	PreviousAnswers []Answer
}

// EvaluationRequest asks for the score of a single answer.
type EvaluationRequest struct {
	Role            string
	CurrentQuestion string
	UserAnswer      string
}

// FinalRequest asks for the aggregate evaluation of every turn.
type FinalRequest struct {
	Role    string
	Answers []Answer
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	SessionID       string           `json:"sessionId"`
	Role            string           `json:"role"`
	Status          Status           `json:"status"`
	QuestionIndex   int              `json:"questionIndex"`
	TurnLimit       int              `json:"turnLimit"`
	Question        *Question        `json:"question,omitempty"`
	Answers         []QA             `json:"answers"`
	Draft           string           `json:"draft,omitempty"`
	Countdown       *int             `json:"countdown,omitempty"`
	InFlight        bool             `json:"inFlight"`
	Listening       bool             `json:"listening"`
	Speaking        bool             `json:"speaking"`
	Muted           bool             `json:"muted"`
	VoiceInput      bool             `json:"voiceInput"`
	FinalEvaluation *FinalEvaluation `json:"finalEvaluation,omitempty"`
	LastError       string           `json:"lastError,omitempty"`
}

// CanSubmit reports whether the answer form would accept text right now.
func (s Snapshot) CanSubmit() bool {
	return s.Status == StatusAwaitingAnswer && !s.InFlight && s.Countdown == nil
}

func toAnswers(history []QA) []Answer {
	if len(history) == 0 {
		return nil
	}
	out := make([]Answer, len(history))
	for i, qa := range history {
		out[i] = Answer{Question: qa.Question, Answer: qa.Answer}
	}
	return out
}

func copyHistory(history []QA) []QA {
	out := make([]QA, len(history))
	for i, qa := range history {
		out[i] = qa
		if qa.Score != nil {
			score := *qa.Score
			out[i].Score = &score
		}
	}
	return out
}
