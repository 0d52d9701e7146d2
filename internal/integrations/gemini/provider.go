package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"chatbot/internal/domain"
)

// KeySource resolves the API key at call time.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type dialFunc func(ctx context.Context, apiKey string) (contentGenerator, error)

// StatusError carries the HTTP status of a failed Gemini API call.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

func (e *StatusError) HTTPStatusCode() int { return e.Code }

type Option func(*Provider)

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimSpace(u) }
}

func WithHTTPClient(h *http.Client) Option {
	return func(p *Provider) {
		if h != nil {
			p.httpClient = h
		}
	}
}

// Provider sends a conversation to the Gemini API. The underlying client is
// created on first use so a parameter-store key is only fetched when needed.
type Provider struct {
	keys         KeySource
	model        string
	systemPrompt string
	baseURL      string
	httpClient   *http.Client
	dial         dialFunc

	mu     sync.Mutex
	apiKey string
	gen    contentGenerator
}

func NewProvider(keys KeySource, model, systemPrompt string, opts ...Option) (*Provider, error) {
	if keys == nil {
		return nil, errors.New("gemini: key source must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("gemini: model must not be empty")
	}
	p := &Provider{
		keys:         keys,
		model:        model,
		systemPrompt: strings.TrimSpace(systemPrompt),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dial == nil {
		p.dial = p.dialGenAI
	}
	return p, nil
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Complete(ctx context.Context, history []domain.Turn, userText string) (string, error) {
	gen, err := p.generator(ctx)
	if err != nil {
		return "", err
	}

	res, err := gen.GenerateContent(ctx, p.model, requestContents(history, userText), p.config())
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", wrapAPIError(err))
	}
	if res == nil {
		return "", fmt.Errorf("gemini: empty response: %w", domain.ErrMalformedResponse)
	}
	return res.Text(), nil
}

// requestContents is the history plus the new user turn. Turns with no text
// are left out: the API rejects empty parts, and an empty reply is a valid
// assistant turn.
func requestContents(history []domain.Turn, userText string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, c := range ToHistory(history) {
		if hasText(c) {
			contents = append(contents, c)
		}
	}
	return append(contents, genai.NewContentFromText(userText, genai.RoleUser))
}

func hasText(c *genai.Content) bool {
	for _, p := range c.Parts {
		if p != nil && p.Text != "" {
			return true
		}
	}
	return false
}

func (p *Provider) config() *genai.GenerateContentConfig {
	if p.systemPrompt == "" {
		return nil
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.systemPrompt, genai.RoleUser),
	}
}

func (p *Provider) generator(ctx context.Context) (contentGenerator, error) {
	key, err := p.keys.APIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini: resolve api key: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != nil && p.apiKey == key {
		return p.gen, nil
	}
	gen, err := p.dial(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	p.gen, p.apiKey = gen, key
	return gen, nil
}

func (p *Provider) dialGenAI(ctx context.Context, apiKey string) (contentGenerator, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
	}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

func wrapAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Code: apiErr.Code, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{Code: apiErrPtr.Code, Err: err}
	}
	return err
}
