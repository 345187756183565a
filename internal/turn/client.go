package turn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/muhammadolammi/mockinterview/internal/interview"
)

// Client calls a remote turn service over HTTP.
type Client struct {
	HTTPClient *http.Client
	URL        string
	// APIKey is sent as a bearer token and apikey header when set.
	APIKey string
}

var _ interview.TurnService = (*Client)(nil)

func NewClient(url, apiKey string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		URL:        url,
		APIKey:     apiKey,
	}
}

func (c *Client) GenerateQuestion(ctx context.Context, req interview.QuestionRequest) (interview.Question, error) {
	var resp QuestionResponse
	err := c.do(ctx, Request{
		Role:            req.Role,
		Mode:            ModeGenerateQuestion,
		ResumeText:      req.ResumeText,
		PreviousAnswers: req.PreviousAnswers,
	}, &resp)
	if err != nil {
		return interview.Question{}, err
	}
	return resp.toQuestion()
}

func (c *Client) EvaluateAnswer(ctx context.Context, req interview.EvaluationRequest) (interview.Evaluation, error) {
	var resp EvaluationResponse
	err := c.do(ctx, Request{
		Role:            req.Role,
		Mode:            ModeEvaluateAnswer,
		CurrentQuestion: req.CurrentQuestion,
		UserAnswer:      req.UserAnswer,
	}, &resp)
	if err != nil {
		return interview.Evaluation{}, err
	}
	return resp.toEvaluation()
}

func (c *Client) FinalEvaluation(ctx context.Context, req interview.FinalRequest) (interview.FinalEvaluation, error) {
	var resp FinalEvaluationResponse
	err := c.do(ctx, Request{
		Role:    req.Role,
		Mode:    ModeFinalEvaluation,
		Answers: req.Answers,
	}, &resp)
	if err != nil {
		return interview.FinalEvaluation{}, err
	}
	return resp.toFinalEvaluation()
}

func (c *Client) do(ctx context.Context, body Request, out any) error {
	if c.URL == "" {
		return fmt.Errorf("%w: turn service url missing", interview.ErrTransport)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", interview.ErrTransport, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", interview.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
		req.Header.Set("apikey", c.APIKey)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", interview.ErrTransport, body.Mode, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", interview.ErrTransport, body.Mode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s: status=%d error=%s", interview.ErrTransport, body.Mode, resp.StatusCode, errorMessage(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("%w: %s: body is not json", interview.ErrParse, body.Mode)
		}
		return fmt.Errorf("%w: %s: %v", interview.ErrParse, body.Mode, err)
	}
	return nil
}

const maxErrorRunes = 200

func errorMessage(body []byte) string {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	msg := []rune(strings.TrimSpace(string(body)))
	if len(msg) > maxErrorRunes {
		msg = msg[:maxErrorRunes]
	}
	return string(msg)
}
