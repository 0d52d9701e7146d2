package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"chatbot/internal/domain"
	"chatbot/internal/observability"
	"chatbot/internal/repository"
	"chatbot/internal/usecase"
)

type stubChat struct {
	ex   usecase.Exchange
	err  error
	text string
	sess usecase.SessionState
}

func (s *stubChat) Submit(_ context.Context, sess usecase.SessionState, text string) (usecase.Exchange, error) {
	s.sess, s.text = sess, text
	if s.err != nil {
		return usecase.Exchange{}, s.err
	}
	_ = sess.Append(s.ex.User)
	_ = sess.Append(s.ex.Assistant)
	return s.ex, nil
}

func makeEvent(method, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       "/chat",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func newTestHandler(t *testing.T, chat *stubChat) (*Handler, *repository.Sessions) {
	t.Helper()
	sessions := repository.NewSessions()
	h, err := NewHandler(chat, sessions, observability.Discard())
	require.NoError(t, err)
	return h, sessions
}

func okExchange() usecase.Exchange {
	return usecase.Exchange{User: domain.UserTurn("Hi"), Assistant: domain.AssistantTurn("Hello!")}
}

func TestNewHandler_ValidatesDependencies(t *testing.T) {
	_, err := NewHandler(nil, repository.NewSessions(), nil)
	require.Error(t, err)

	_, err = NewHandler(&stubChat{}, nil, nil)
	require.Error(t, err)
}

func TestHandle_PostCreatesSession(t *testing.T) {
	chat := &stubChat{ex: okExchange()}
	h, sessions := newTestHandler(t, chat)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, `{"text":"Hi"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Hi", chat.text)

	out := parseBody[chatResponse](t, resp.Body)
	require.Equal(t, "Hello!", out.Reply)
	require.Empty(t, out.ErrorCode)
	require.NotEmpty(t, out.SessionID)
	require.NotEmpty(t, resp.Headers[correlationHeader])

	sess, ok := sessions.Get(out.SessionID)
	require.True(t, ok)
	require.Same(t, sess, chat.sess)
}

func TestHandle_PostContinuesSession(t *testing.T) {
	chat := &stubChat{ex: okExchange()}
	h, sessions := newTestHandler(t, chat)
	sess := sessions.Create()

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, `{"sessionId":"`+sess.ID+`","text":"Hi"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, sess.ID, parseBody[chatResponse](t, resp.Body).SessionID)
	require.Equal(t, 1, sessions.Len())
}

func TestHandle_PostUnknownSession(t *testing.T) {
	h, _ := newTestHandler(t, &stubChat{})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, `{"sessionId":"nope","text":"Hi"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, errorNotFound, parseBody[errorResponse](t, resp.Body).Error)
}

func TestHandle_PostReportsFailedReply(t *testing.T) {
	ex := okExchange()
	ex.Assistant = domain.AssistantTurn("(Error generating response: boom)")
	ex.Failure = &usecase.Error{Code: usecase.ErrorUpstream, Reason: "provider_error"}
	h, _ := newTestHandler(t, &stubChat{ex: ex})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, `{"text":"Hi"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := parseBody[chatResponse](t, resp.Body)
	require.Contains(t, out.Reply, usecase.ErrorMarker)
	require.Equal(t, string(usecase.ErrorUpstream), out.ErrorCode)
}

func TestHandle_InvalidBody(t *testing.T) {
	h, _ := newTestHandler(t, &stubChat{})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, `not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
}

func TestHandle_BlankTextDoesNotRegisterSession(t *testing.T) {
	sessions := repository.NewSessions()
	gen, err := usecase.NewGenerator(usecase.NewFallbackProvider("OPENAI_API_KEY"), observability.Discard())
	require.NoError(t, err)
	chat, err := usecase.NewChatService(gen, observability.Discard())
	require.NoError(t, err)
	h, err := NewHandler(chat, sessions, observability.Discard())
	require.NoError(t, err)

	for _, body := range []string{`{"text":"   "}`, `{"text":""}`, `{}`} {
		resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, body))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		out := parseBody[errorResponse](t, resp.Body)
		require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
		require.Equal(t, "empty_message", out.Reason)
	}
	require.Zero(t, sessions.Len())
}

func TestHandle_BlankTextOnExistingSessionLeavesItUntouched(t *testing.T) {
	chat := &stubChat{ex: okExchange()}
	h, sessions := newTestHandler(t, chat)
	sess := sessions.Create()

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, `{"sessionId":"`+sess.ID+`","text":" "}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Nil(t, chat.sess)
	require.Zero(t, sess.Len())
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "empty_message"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "busy", err: &usecase.Error{Code: usecase.ErrorBusy, Reason: "reply_pending"}, status: http.StatusConflict, code: string(usecase.ErrorBusy)},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "append_user_turn"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newTestHandler(t, &stubChat{err: tc.err})

			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, `{"text":"Hi"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
		})
	}
}

func TestHandle_GetTranscript(t *testing.T) {
	h, sessions := newTestHandler(t, &stubChat{})
	sess := sessions.Create()
	require.NoError(t, sess.Append(domain.UserTurn("Hi")))
	require.NoError(t, sess.Append(domain.AssistantTurn("Hello!")))

	event := makeEvent(http.MethodGet, "")
	event.QueryStringParameters = map[string]string{"sessionId": sess.ID}
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := parseBody[transcriptResponse](t, resp.Body)
	require.Equal(t, []domain.Turn{domain.UserTurn("Hi"), domain.AssistantTurn("Hello!")}, out.Turns)
}

func TestHandle_GetUnknownSession(t *testing.T) {
	h, _ := newTestHandler(t, &stubChat{})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandle_DeleteEndsSession(t *testing.T) {
	h, sessions := newTestHandler(t, &stubChat{})
	sess := sessions.Create()

	event := makeEvent(http.MethodDelete, "")
	event.QueryStringParameters = map[string]string{"sessionId": sess.ID}
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, resp.Body)
	require.Zero(t, sessions.Len())

	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandle_RejectsOtherMethods(t *testing.T) {
	h, _ := newTestHandler(t, &stubChat{})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPut, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h, _ := newTestHandler(t, &stubChat{ex: okExchange()})

	event := makeEvent(http.MethodPost, `{"text":"Hi"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers[correlationHeader])
}
