package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/muhammadolammi/mockinterview/internal/turn"
)

const agentName = "interview agent"

func GetAgent(ctx context.Context, apiKey, modelName string) (agent.Agent, error) {
	model, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	interviewer, err := llmagent.New(llmagent.Config{
		Name:        agentName,
		Model:       model,
		Description: "Run mock interviews",
		Instruction: turn.Instruction(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return interviewer, nil
}

// agentModel runs every prompt in a fresh agent session so turns share no
// conversation state.
type agentModel struct {
	runner   *runner.Runner
	sessions session.Service
	appName  string
	attempts int
}

var _ turn.Model = (*agentModel)(nil)

func newAgentModel(a agent.Agent) (*agentModel, error) {
	sessions := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        a.Name(),
		Agent:          a,
		SessionService: sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	return &agentModel{runner: r, sessions: sessions, appName: a.Name(), attempts: 2}, nil
}

func (m *agentModel) Generate(ctx context.Context, prompt string) (string, error) {
	created, err := m.sessions.Create(ctx, &session.CreateRequest{
		AppName:   m.appName,
		UserID:    "candidate",
		SessionID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create agent session: %w", err)
	}
	s := created.Session
	defer func() {
		err := m.sessions.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   s.AppName(),
			UserID:    s.UserID(),
			SessionID: s.ID(),
		})
		if err != nil {
			log.Printf("failed to delete agent session %s: %v", s.ID(), err)
		}
	}()

	return retry(ctx, m.attempts, func() (string, error) {
		stream := m.runner.Run(ctx, s.UserID(), s.ID(), &genai.Content{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		}, agent.RunConfig{})

		var output string
		for event, err := range stream {
			if err != nil {
				return "", err
			}
			if event != nil && event.IsFinalResponse() && event.Content != nil && len(event.Content.Parts) > 0 {
				output = event.Content.Parts[0].Text
			}
		}
		if output == "" {
			return "", fmt.Errorf("empty agent response")
		}
		return output, nil
	})
}
