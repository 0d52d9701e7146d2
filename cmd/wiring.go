package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"chatbot/internal/config"
	"chatbot/internal/credentials"
	"chatbot/internal/integrations/gemini"
	"chatbot/internal/integrations/openai"
	"chatbot/internal/integrations/paramstore"
	"chatbot/internal/usecase"
)

type tokenGetterFactory func(ctx context.Context) (credentials.TokenGetter, error)

// newSSMTokenGetter builds a parameter store client from the default AWS
// credential chain.
func newSSMTokenGetter(ctx context.Context) (credentials.TokenGetter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("create SSM client: %w", err)
	}
	return client, nil
}

// buildProvider selects the completion provider once at startup. Without a
// credential source the local fallback answers instead.
func buildProvider(ctx context.Context, cfg config.Config, newGetter tokenGetterFactory) (usecase.CompletionProvider, error) {
	active := cfg.Active()
	if !active.Configured() {
		return usecase.NewFallbackProvider(active.KeyEnv), nil
	}

	keys, err := keySource(ctx, active, newGetter)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	switch cfg.Provider {
	case config.ProviderGemini:
		opts := []gemini.Option{gemini.WithHTTPClient(httpClient)}
		if active.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(active.BaseURL))
		}
		p, err := gemini.NewProvider(keys, active.Model, cfg.SystemPrompt, opts...)
		if err != nil {
			return nil, fmt.Errorf("create Gemini provider: %w", err)
		}
		return p, nil
	default:
		opts := []openai.Option{openai.WithHTTPClient(httpClient)}
		if active.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(active.BaseURL))
		}
		client, err := openai.NewClient(keys, opts...)
		if err != nil {
			return nil, fmt.Errorf("create OpenAI client: %w", err)
		}
		p, err := openai.NewProvider(client, active.Model, cfg.SystemPrompt)
		if err != nil {
			return nil, fmt.Errorf("create OpenAI provider: %w", err)
		}
		return p, nil
	}
}

type keyResolver interface {
	APIKey(ctx context.Context) (string, error)
}

func keySource(ctx context.Context, p config.ProviderConfig, newGetter tokenGetterFactory) (keyResolver, error) {
	if p.APIKey != "" {
		return credentials.Static(p.APIKey), nil
	}
	getter, err := newGetter(ctx)
	if err != nil {
		return nil, err
	}
	store, err := credentials.NewParamStore(getter, p.APIKeyParam)
	if err != nil {
		return nil, fmt.Errorf("create parameter store credentials: %w", err)
	}
	return store, nil
}

// newChatService wires provider, generator and chat service.
func newChatService(ctx context.Context, cfg config.Config, log *slog.Logger, newGetter tokenGetterFactory) (*usecase.ChatService, string, error) {
	provider, err := buildProvider(ctx, cfg, newGetter)
	if err != nil {
		return nil, "", err
	}
	gen, err := usecase.NewGenerator(provider, log)
	if err != nil {
		return nil, "", fmt.Errorf("create generator: %w", err)
	}
	chat, err := usecase.NewChatService(gen, log)
	if err != nil {
		return nil, "", fmt.Errorf("create chat service: %w", err)
	}
	log.InfoContext(ctx, "chat service ready", "provider", gen.Provider(), "model", cfg.Active().Model)
	return chat, gen.Provider(), nil
}
