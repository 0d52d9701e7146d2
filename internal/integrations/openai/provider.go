package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chatbot/internal/domain"
)

const roleSystem = "system"

type chatter interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

// Provider adapts the chat completions client to a conversation. It keeps the
// user/assistant vocabulary as-is and sends the system prompt first.
type Provider struct {
	client       chatter
	model        string
	systemPrompt string
}

func NewProvider(client chatter, model, systemPrompt string) (*Provider, error) {
	if client == nil {
		return nil, errors.New("openai: client must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("openai: model must not be empty")
	}
	return &Provider{
		client:       client,
		model:        model,
		systemPrompt: strings.TrimSpace(systemPrompt),
	}, nil
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Complete(ctx context.Context, history []domain.Turn, userText string) (string, error) {
	return p.client.Chat(ctx, p.model, buildMessages(p.systemPrompt, history, userText))
}

func buildMessages(systemPrompt string, history []domain.Turn, userText string) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, domain.ChatMessage{Role: roleSystem, Content: systemPrompt})
	}
	messages = append(messages, ToMessages(history)...)
	return append(messages, domain.ChatMessage{Role: string(domain.RoleUser), Content: userText})
}

// ToMessages translates turns into chat completion messages.
func ToMessages(turns []domain.Turn) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, domain.ChatMessage{Role: string(t.Role), Content: t.Content})
	}
	return out
}

// FromMessages is the inverse of ToMessages. System messages are instructions,
// not turns, and are skipped.
func FromMessages(messages []domain.ChatMessage) ([]domain.Turn, error) {
	out := make([]domain.Turn, 0, len(messages))
	for i, m := range messages {
		if m.Role == roleSystem {
			continue
		}
		t := domain.Turn{Role: domain.Role(m.Role), Content: m.Content}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("openai: message %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}
