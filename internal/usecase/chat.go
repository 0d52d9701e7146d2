package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"chatbot/internal/domain"
)

// SessionState is the per-session state a submission reads and appends to.
// *repository.Session satisfies it.
type SessionState interface {
	Begin() bool
	End()
	Append(t domain.Turn) error
	All() []domain.Turn
}

type ReplyGenerator interface {
	Generate(ctx context.Context, history []domain.Turn, userText string) Reply
}

// Exchange is the pair of turns committed by one accepted submission.
type Exchange struct {
	User      domain.Turn
	Assistant domain.Turn
	// Failure is set when Assistant carries error text instead of a reply.
	Failure *Error
}

type ChatService struct {
	gen ReplyGenerator
	log *slog.Logger
}

func NewChatService(gen ReplyGenerator, log *slog.Logger) (*ChatService, error) {
	if gen == nil {
		return nil, errors.New("usecase: reply generator must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ChatService{gen: gen, log: log}, nil
}

// Submit runs one Idle -> AwaitingReply -> Idle cycle. Blank input and
// overlapping submissions are rejected before the conversation is touched.
// Once the user turn is committed exactly one assistant turn follows it,
// whether generation succeeded or not.
func (s *ChatService) Submit(ctx context.Context, sess SessionState, text string) (Exchange, error) {
	if sess == nil {
		return Exchange{}, newError(ErrorInternal, "nil_session", nil)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Exchange{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if !sess.Begin() {
		return Exchange{}, newError(ErrorBusy, "reply_pending", nil)
	}
	defer sess.End()

	history := sess.All()
	user := domain.UserTurn(text)
	if err := sess.Append(user); err != nil {
		return Exchange{}, newError(ErrorInternal, "append_user_turn", err)
	}

	reply := s.gen.Generate(ctx, history, text)
	assistant := domain.AssistantTurn(reply.Text)
	if err := sess.Append(assistant); err != nil {
		return Exchange{}, newError(ErrorInternal, "append_assistant_turn", err)
	}

	s.log.InfoContext(ctx, "exchange committed",
		"history_turns", len(history)+2,
		"failed", reply.Err != nil,
	)
	return Exchange{User: user, Assistant: assistant, Failure: reply.Err}, nil
}
