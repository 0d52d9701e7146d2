package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"chatbot/internal/domain"
)

type fakeKeys struct {
	key string
	err error
}

func (f fakeKeys) APIKey(context.Context) (string, error) { return f.key, f.err }

type fakeGenerator struct {
	res      *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.cfg = model, contents, cfg
	return f.res, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}},
	}
}

func newTestProvider(t *testing.T, gen *fakeGenerator, system string) (*Provider, *[]string) {
	t.Helper()
	p, err := NewProvider(fakeKeys{key: "g-key"}, "gemini-2.5-flash", system)
	require.NoError(t, err)
	var dialed []string
	p.dial = func(_ context.Context, key string) (contentGenerator, error) {
		dialed = append(dialed, key)
		return gen, nil
	}
	return p, &dialed
}

func TestNewProvider_Validates(t *testing.T) {
	_, err := NewProvider(nil, "gemini-2.5-flash", "")
	require.Error(t, err)

	_, err = NewProvider(fakeKeys{key: "k"}, "", "")
	require.Error(t, err)
}

func TestProvider_Complete_SendsHistoryAndSystemInstruction(t *testing.T) {
	gen := &fakeGenerator{res: textResponse("Doing well.")}
	p, dialed := newTestProvider(t, gen, "You are a helpful assistant.")
	require.Equal(t, "gemini", p.Name())

	history := []domain.Turn{domain.UserTurn("Hi"), domain.AssistantTurn("Hello!")}
	got, err := p.Complete(context.Background(), history, "How are you?")
	require.NoError(t, err)
	require.Equal(t, "Doing well.", got)

	require.Equal(t, "gemini-2.5-flash", gen.model)
	sent, err := FromHistory(gen.contents)
	require.NoError(t, err)
	require.Equal(t, []domain.Turn{
		domain.UserTurn("Hi"),
		domain.AssistantTurn("Hello!"),
		domain.UserTurn("How are you?"),
	}, sent)
	require.NotNil(t, gen.cfg)
	require.Equal(t, "You are a helpful assistant.", gen.cfg.SystemInstruction.Parts[0].Text)
	require.Len(t, history, 2)

	_, err = p.Complete(context.Background(), nil, "again")
	require.NoError(t, err)
	require.Equal(t, []string{"g-key"}, *dialed)
}

func TestProvider_Complete_SkipsEmptyTurns(t *testing.T) {
	gen := &fakeGenerator{res: textResponse("ok")}
	p, _ := newTestProvider(t, gen, "")

	history := []domain.Turn{
		domain.UserTurn("Hi"),
		domain.AssistantTurn(""),
		domain.UserTurn("Still there?"),
		domain.AssistantTurn("Yes."),
	}
	_, err := p.Complete(context.Background(), history, "Good")
	require.NoError(t, err)

	for _, c := range gen.contents {
		require.True(t, hasText(c), "content with role %q has no text", c.Role)
	}
	sent, err := FromHistory(gen.contents)
	require.NoError(t, err)
	require.Equal(t, []domain.Turn{
		domain.UserTurn("Hi"),
		domain.UserTurn("Still there?"),
		domain.AssistantTurn("Yes."),
		domain.UserTurn("Good"),
	}, sent)
	require.Len(t, history, 4)
	require.Equal(t, domain.AssistantTurn(""), history[1])
}

func TestProvider_Complete_NoSystemPrompt(t *testing.T) {
	gen := &fakeGenerator{res: textResponse("ok")}
	p, _ := newTestProvider(t, gen, "")

	_, err := p.Complete(context.Background(), nil, "hi")
	require.NoError(t, err)
	require.Nil(t, gen.cfg)
}

func TestProvider_Complete_EmptyCandidatesIsEmptyText(t *testing.T) {
	gen := &fakeGenerator{res: &genai.GenerateContentResponse{}}
	p, _ := newTestProvider(t, gen, "")

	got, err := p.Complete(context.Background(), nil, "hi")
	require.NoError(t, err)
	require.Equal(t, "", got)
}

func TestProvider_Complete_NilResponse(t *testing.T) {
	p, _ := newTestProvider(t, &fakeGenerator{}, "")

	_, err := p.Complete(context.Background(), nil, "hi")
	require.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestProvider_Complete_APIErrorCarriesStatus(t *testing.T) {
	gen := &fakeGenerator{err: genai.APIError{Code: http.StatusTooManyRequests, Message: "quota", Status: "RESOURCE_EXHAUSTED"}}
	p, _ := newTestProvider(t, gen, "")

	_, err := p.Complete(context.Background(), nil, "hi")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.HTTPStatusCode())
	require.Contains(t, err.Error(), "quota")
}

func TestProvider_Complete_PlainErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	p, _ := newTestProvider(t, &fakeGenerator{err: boom}, "")

	_, err := p.Complete(context.Background(), nil, "hi")
	require.ErrorIs(t, err, boom)
	var statusErr *StatusError
	require.False(t, errors.As(err, &statusErr))
}

func TestProvider_Complete_KeyError(t *testing.T) {
	p, err := NewProvider(fakeKeys{err: domain.ErrMissingCredential}, "gemini-2.5-flash", "")
	require.NoError(t, err)
	p.dial = func(context.Context, string) (contentGenerator, error) {
		t.Fatal("dial must not be called without a key")
		return nil, nil
	}

	_, err = p.Complete(context.Background(), nil, "hi")
	require.ErrorIs(t, err, domain.ErrMissingCredential)
}

func TestProvider_Complete_DialError(t *testing.T) {
	p, err := NewProvider(fakeKeys{key: "k"}, "gemini-2.5-flash", "")
	require.NoError(t, err)
	p.dial = func(context.Context, string) (contentGenerator, error) {
		return nil, errors.New("bad config")
	}

	_, err = p.Complete(context.Background(), nil, "hi")
	require.ErrorContains(t, err, "create client")
}
