package turn

import (
	"fmt"
	"math"
	"strings"

	"github.com/muhammadolammi/mockinterview/internal/interview"
)

// Mode selects what the turn service should produce.
type Mode string

const (
	ModeGenerateQuestion Mode = "generate_question"
	ModeEvaluateAnswer   Mode = "evaluate_answer"
	ModeFinalEvaluation  Mode = "final_evaluation"
)

// Valid reports whether m is one of the three supported modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeGenerateQuestion, ModeEvaluateAnswer, ModeFinalEvaluation:
		return true
	default:
		return false
	}
}

// Request is the single POST body accepted by the turn service.
type Request struct {
	Role            string             `json:"role"`
	Mode            Mode               `json:"mode"`
	CurrentQuestion string             `json:"currentQuestion,omitempty"`
	UserAnswer      string             `json:"userAnswer,omitempty"`
	Answers         []interview.Answer `json:"answers,omitempty"`
	ResumeText      string             `json:"resumeText,omitempty"`
	PreviousAnswers []interview.Answer `json:"previousAnswers,omitempty"`
}

// QuestionResponse answers generate_question.
type QuestionResponse struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
}

// EvaluationResponse answers evaluate_answer.
type EvaluationResponse struct {
	Score        *float64 `json:"score"`
	Feedback     string   `json:"feedback"`
	NextQuestion string   `json:"nextQuestion,omitempty"`
}

// FinalEvaluationResponse answers final_evaluation.
type FinalEvaluationResponse struct {
	FinalScore         *float64 `json:"finalScore"`
	OverallFeedback    string   `json:"overallFeedback"`
	Strengths          []string `json:"strengths"`
	AreasOfImprovement []string `json:"areasOfImprovement"`
	ClosingRemarks     string   `json:"closingRemarks,omitempty"`
}

// ErrorResponse is returned with 4xx and 5xx statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Validate checks the fields each mode depends on.
func (r Request) Validate() error {
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: invalid mode %q", interview.ErrValidation, r.Mode)
	}
	if strings.TrimSpace(r.Role) == "" {
		return fmt.Errorf("%w: role is required", interview.ErrValidation)
	}
	switch r.Mode {
	case ModeEvaluateAnswer:
		if strings.TrimSpace(r.CurrentQuestion) == "" || strings.TrimSpace(r.UserAnswer) == "" {
			return fmt.Errorf("%w: currentQuestion and userAnswer are required", interview.ErrValidation)
		}
	case ModeFinalEvaluation:
		if len(r.Answers) == 0 {
			return fmt.Errorf("%w: answers are required", interview.ErrValidation)
		}
	}
	return nil
}

func validScore(score *float64) bool {
	if score == nil || math.IsNaN(*score) {
		return false
	}
	return *score >= 1 && *score <= 10
}

func (r QuestionResponse) toQuestion() (interview.Question, error) {
	text := strings.TrimSpace(r.Question)
	if text == "" {
		return interview.Question{}, fmt.Errorf("%w: empty question", interview.ErrParse)
	}
	return interview.Question{Text: text, Context: strings.TrimSpace(r.Context)}, nil
}

func (r EvaluationResponse) toEvaluation() (interview.Evaluation, error) {
	if !validScore(r.Score) {
		return interview.Evaluation{}, fmt.Errorf("%w: score missing or outside 1-10", interview.ErrParse)
	}
	return interview.Evaluation{
		Score:        *r.Score,
		Feedback:     strings.TrimSpace(r.Feedback),
		NextQuestion: strings.TrimSpace(r.NextQuestion),
	}, nil
}

func (r FinalEvaluationResponse) toFinalEvaluation() (interview.FinalEvaluation, error) {
	if !validScore(r.FinalScore) {
		return interview.FinalEvaluation{}, fmt.Errorf("%w: finalScore missing or outside 1-10", interview.ErrParse)
	}
	if strings.TrimSpace(r.OverallFeedback) == "" {
		return interview.FinalEvaluation{}, fmt.Errorf("%w: overallFeedback is empty", interview.ErrParse)
	}
	fe := interview.FinalEvaluation{
		FinalScore:         *r.FinalScore,
		OverallFeedback:    strings.TrimSpace(r.OverallFeedback),
		Strengths:          r.Strengths,
		AreasOfImprovement: r.AreasOfImprovement,
		ClosingRemarks:     strings.TrimSpace(r.ClosingRemarks),
	}
	if fe.Strengths == nil {
		fe.Strengths = []string{}
	}
	if fe.AreasOfImprovement == nil {
		fe.AreasOfImprovement = []string{}
	}
	return fe, nil
}
