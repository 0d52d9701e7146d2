package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"chatbot/internal/domain"
	"chatbot/internal/observability"
	"chatbot/internal/repository"
	"chatbot/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	errorNotFound     = "NOT_FOUND"
	errorMethod       = "METHOD_NOT_ALLOWED"
)

type chatSubmitter interface {
	Submit(ctx context.Context, sess usecase.SessionState, text string) (usecase.Exchange, error)
}

type sessionRegistry interface {
	Create() *repository.Session
	Get(id string) (*repository.Session, bool)
	Delete(id string) bool
}

type Handler struct {
	chat     chatSubmitter
	sessions sessionRegistry
	log      *slog.Logger
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

type chatResponse struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
	// ErrorCode is set when Reply is error text from a failed provider call.
	ErrorCode string `json:"errorCode,omitempty"`
}

type transcriptResponse struct {
	SessionID string        `json:"sessionId"`
	Turns     []domain.Turn `json:"turns"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func NewHandler(chat chatSubmitter, sessions sessionRegistry, log *slog.Logger) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat service must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("handler: session registry must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{chat: chat, sessions: sessions, log: log}, nil
}

// Handle serves API Gateway proxy events:
//
//	POST   {"sessionId"?, "text"}  submit a message, creating a session when no id is given
//	GET    ?sessionId=...          transcript
//	DELETE ?sessionId=...          end the session
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := headerValue(req.Headers, correlationHeader)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	ctx = observability.ContextWithCorrelationID(ctx, corrID)
	log := observability.FromContext(ctx, h.log)

	var (
		status int
		body   any
	)
	switch req.HTTPMethod {
	case http.MethodPost:
		status, body = h.submit(ctx, log, req.Body)
	case http.MethodGet:
		status, body = h.transcript(req.QueryStringParameters["sessionId"])
	case http.MethodDelete:
		status, body = h.end(req.QueryStringParameters["sessionId"])
	default:
		status, body = http.StatusMethodNotAllowed, errorResponse{Error: errorMethod}
	}

	log.InfoContext(ctx, "request handled", "method", req.HTTPMethod, "status", status)
	return respond(status, body, corrID), nil
}

func (h *Handler) submit(ctx context.Context, log *slog.Logger, raw string) (int, any) {
	var in chatRequest
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_json"}
	}
	// A new session is only registered for a message that will be accepted.
	if strings.TrimSpace(in.Text) == "" {
		return http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "empty_message"}
	}

	var sess *repository.Session
	if in.SessionID == "" {
		sess = h.sessions.Create()
	} else {
		var ok bool
		if sess, ok = h.sessions.Get(in.SessionID); !ok {
			return http.StatusNotFound, errorResponse{Error: errorNotFound, Reason: "unknown_session"}
		}
	}

	ex, err := h.chat.Submit(ctx, sess, in.Text)
	if err != nil {
		log.WarnContext(ctx, "submit rejected", "session_id", sess.ID, "err", err)
		return usecase.StatusCode(err), toErrorResponse(err)
	}

	out := chatResponse{SessionID: sess.ID, Reply: ex.Assistant.Content}
	if ex.Failure != nil {
		out.ErrorCode = string(ex.Failure.Code)
	}
	return http.StatusOK, out
}

func (h *Handler) transcript(id string) (int, any) {
	sess, ok := h.sessions.Get(id)
	if !ok {
		return http.StatusNotFound, errorResponse{Error: errorNotFound, Reason: "unknown_session"}
	}
	return http.StatusOK, transcriptResponse{SessionID: sess.ID, Turns: sess.All()}
}

func (h *Handler) end(id string) (int, any) {
	if !h.sessions.Delete(id) {
		return http.StatusNotFound, errorResponse{Error: errorNotFound, Reason: "unknown_session"}
	}
	return http.StatusNoContent, nil
}

func toErrorResponse(err error) errorResponse {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		return errorResponse{Error: string(ucErr.Code), Reason: ucErr.Reason}
	}
	return errorResponse{Error: string(usecase.ErrorInternal)}
}

func respond(status int, body any, corrID string) events.APIGatewayProxyResponse {
	headers := map[string]string{correlationHeader: corrID}
	if body == nil {
		return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers}
	}
	b, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	headers["Content-Type"] = "application/json"
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(b)}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
