package usecase

import (
	"context"
	"fmt"

	"chatbot/internal/domain"
)

// FallbackProvider answers locally when no provider credential is configured.
// Its reply echoes the user text and names the variable that enables live
// generation.
type FallbackProvider struct {
	envVar string
}

func NewFallbackProvider(envVar string) *FallbackProvider {
	return &FallbackProvider{envVar: envVar}
}

func (p *FallbackProvider) Name() string { return "fallback" }

func (p *FallbackProvider) Complete(_ context.Context, _ []domain.Turn, userText string) (string, error) {
	return fmt.Sprintf("I heard: %s (set %s in .env to enable AI responses)", userText, p.envVar), nil
}
