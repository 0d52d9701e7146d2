package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"chatbot/internal/domain"
)

// ErrorMarker prefixes every reply produced from a failed provider call.
const ErrorMarker = "Error generating response"

// CompletionProvider produces an assistant reply for userText given the prior
// history. Implementations must not modify history.
type CompletionProvider interface {
	Name() string
	Complete(ctx context.Context, history []domain.Turn, userText string) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Reply is the outcome of one generation. Text is always usable as an
// assistant turn; Err is set when Text describes a provider failure.
type Reply struct {
	Text string
	Err  *Error
}

// Generator is the boundary between the conversation and a completion
// provider. Generate never returns an error and never panics.
type Generator struct {
	provider CompletionProvider
	log      *slog.Logger
}

func NewGenerator(p CompletionProvider, log *slog.Logger) (*Generator, error) {
	if p == nil {
		return nil, errors.New("usecase: completion provider must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Generator{provider: p, log: log}, nil
}

// Provider returns the name of the configured provider.
func (g *Generator) Provider() string {
	return g.provider.Name()
}

func (g *Generator) Generate(ctx context.Context, history []domain.Turn, userText string) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			failure := newError(ErrorInternal, "provider_panic", fmt.Errorf("panic: %v", r))
			g.log.ErrorContext(ctx, "completion provider panicked", "provider", g.provider.Name(), "err", failure)
			reply = Reply{Text: errorText(failure.Err), Err: failure}
		}
	}()

	text, err := g.provider.Complete(ctx, history, userText)
	if err != nil {
		failure := classify(err)
		g.log.WarnContext(ctx, "completion failed",
			"provider", g.provider.Name(),
			"code", failure.Code,
			"reason", failure.Reason,
			"err", err,
		)
		return Reply{Text: errorText(err), Err: failure}
	}
	return Reply{Text: text}
}

func errorText(err error) string {
	return fmt.Sprintf("(%s: %v)", ErrorMarker, err)
}

func classify(err error) *Error {
	if status, ok := upstreamStatusCode(err); ok {
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return newError(ErrorAuth, "provider_auth", err)
		case status == http.StatusTooManyRequests:
			return newError(ErrorRateLimited, "provider_rate_limited", err)
		default:
			return newError(ErrorUpstream, "provider_status", err)
		}
	}
	if errors.Is(err, domain.ErrMissingCredential) {
		return newError(ErrorAuth, "credential_unavailable", err)
	}
	if errors.Is(err, domain.ErrMalformedResponse) {
		return newError(ErrorMalformed, "provider_malformed_response", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newError(ErrorNetwork, "provider_timeout", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return newError(ErrorNetwork, "provider_unreachable", err)
	}
	return newError(ErrorUpstream, "provider_error", err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
