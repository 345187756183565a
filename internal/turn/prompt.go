package turn

import (
	"fmt"
	"strings"

	"github.com/muhammadolammi/mockinterview/internal/interview"
)

// Instruction is the system instruction for the interviewer agent.
func Instruction() string {
	return `
You are an expert technical interviewer running a mock interview.

Ask one question at a time. Questions should be challenging but clear and relevant to the
target role. When evaluating, be fair, concise and constructive. Scores are whole numbers
from 1 to 10.

Return only valid JSON when a JSON format is requested. Do not include explanations,
markdown, or text before or after the JSON.
	`
}

func questionPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "As an expert technical interviewer for a %s position, generate a relevant interview question.\n", req.Role)
	if resume := strings.TrimSpace(req.ResumeText); resume != "" {
		fmt.Fprintf(&b, "\nThe candidate's resume:\n%s\n\nTailor the question to their experience.\n", resume)
	}
	if len(req.PreviousAnswers) > 0 {
		b.WriteString("\nQuestions already asked (do not repeat them):\n")
		writeAnswers(&b, req.PreviousAnswers)
	} else {
		b.WriteString("\nThis is the first question of the interview.\n")
	}
	b.WriteString(`
Provide the question in this JSON format:
{
  "question": "the question text",
  "context": "optional one sentence spoken before the question"
}`)
	return b.String()
}

func evaluationPrompt(req Request) string {
	return fmt.Sprintf(`As an expert technical interviewer for a %s position, evaluate this candidate's answer to the question: "%s"

Candidate's answer: "%s"

Provide feedback in this JSON format:
{
  "score": (number between 1-10),
  "feedback": "brief constructive feedback"
}`, req.Role, req.CurrentQuestion, req.UserAnswer)
}

func finalEvaluationPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "As an expert technical interviewer for a %s position, give a final evaluation of this complete interview.\n\n", req.Role)
	writeAnswers(&b, req.Answers)
	b.WriteString(`
Provide the evaluation in this JSON format:
{
  "finalScore": (number between 1-10),
  "overallFeedback": "two or three sentences",
  "strengths": ["strength"],
  "areasOfImprovement": ["area"],
  "closingRemarks": "a short closing remark"
}`)
	return b.String()
}

func writeAnswers(b *strings.Builder, answers []interview.Answer) {
	for i, a := range answers {
		fmt.Fprintf(b, "%d. Question: %s\n   Answer: %s\n", i+1, a.Question, a.Answer)
	}
}
