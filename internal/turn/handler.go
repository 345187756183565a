package turn

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
)

// Model produces raw text for a prompt.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, prompt string) (string, error)

func (f ModelFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var errMalformedOutput = errors.New("model returned malformed output")

// MaxRequestBytes bounds a request body, resume text included.
const MaxRequestBytes = 1 << 20

// Handler serves the turn service contract on top of a Model.
//
// Every client mistake is answered with 400 and {"error": ...}: an invalid
// mode ("Invalid mode"), a body that is not JSON or is too large, and a
// missing role or mode-specific field. Model failures and model output that
// does not fit the mode are answered with 500.
type Handler struct {
	model Model
}

func NewHandler(model Model) *Handler {
	return &Handler{model: model}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Mode.Valid() {
		respondError(w, "Invalid mode", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var (
		resp any
		err  error
	)
	switch req.Mode {
	case ModeGenerateQuestion:
		resp, err = h.generateQuestion(r.Context(), req)
	case ModeEvaluateAnswer:
		resp, err = h.evaluateAnswer(r.Context(), req)
	case ModeFinalEvaluation:
		resp, err = h.finalEvaluation(r.Context(), req)
	}
	if err != nil {
		log.Printf("turn service %s for role %q failed: %v", req.Mode, req.Role, err)
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, resp, http.StatusOK)
}

func (h *Handler) generateQuestion(ctx context.Context, req Request) (QuestionResponse, error) {
	out, err := h.model.Generate(ctx, questionPrompt(req))
	if err != nil {
		return QuestionResponse{}, err
	}

	var resp QuestionResponse
	if raw := stripFences(out); strings.HasPrefix(raw, "{") {
		if err := json.Unmarshal([]byte(CleanJSON(raw)), &resp); err != nil {
			return QuestionResponse{}, errMalformedOutput
		}
	} else {
		// Anything that is not a JSON object is the question itself, braces included.
		resp.Question = strings.Trim(raw, "`\"")
	}
	q, err := resp.toQuestion()
	if err != nil {
		return QuestionResponse{}, errMalformedOutput
	}
	return QuestionResponse{Question: q.Text, Context: q.Context}, nil
}

func (h *Handler) evaluateAnswer(ctx context.Context, req Request) (EvaluationResponse, error) {
	out, err := h.model.Generate(ctx, evaluationPrompt(req))
	if err != nil {
		return EvaluationResponse{}, err
	}

	var resp EvaluationResponse
	if err := json.Unmarshal([]byte(CleanJSON(out)), &resp); err != nil {
		return EvaluationResponse{}, errMalformedOutput
	}
	ev, err := resp.toEvaluation()
	if err != nil {
		return EvaluationResponse{}, errMalformedOutput
	}
	score := ev.Score
	return EvaluationResponse{Score: &score, Feedback: ev.Feedback, NextQuestion: ev.NextQuestion}, nil
}

func (h *Handler) finalEvaluation(ctx context.Context, req Request) (FinalEvaluationResponse, error) {
	out, err := h.model.Generate(ctx, finalEvaluationPrompt(req))
	if err != nil {
		return FinalEvaluationResponse{}, err
	}

	var resp FinalEvaluationResponse
	if err := json.Unmarshal([]byte(CleanJSON(out)), &resp); err != nil {
		return FinalEvaluationResponse{}, errMalformedOutput
	}
	fe, err := resp.toFinalEvaluation()
	if err != nil {
		return FinalEvaluationResponse{}, errMalformedOutput
	}
	score := fe.FinalScore
	return FinalEvaluationResponse{
		FinalScore:         &score,
		OverallFeedback:    fe.OverallFeedback,
		Strengths:          fe.Strengths,
		AreasOfImprovement: fe.AreasOfImprovement,
		ClosingRemarks:     fe.ClosingRemarks,
	}, nil
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, ErrorResponse{Error: message}, status)
}
