package web

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatbot/internal/domain"
	"chatbot/internal/observability"
	"chatbot/internal/repository"
	"chatbot/internal/usecase"
)

//go:embed static/index.html
var static embed.FS

const (
	correlationHeader = "X-Correlation-Id"
	errorNotFound     = "NOT_FOUND"
	ctxKeyLogger      = "logger"
)

type chatSubmitter interface {
	Submit(ctx context.Context, sess usecase.SessionState, text string) (usecase.Exchange, error)
}

type sessionRegistry interface {
	Create() *repository.Session
	Get(id string) (*repository.Session, bool)
	Delete(id string) bool
}

// Server is the browser surface: one page plus a small JSON and websocket API
// over the session registry.
type Server struct {
	chat     chatSubmitter
	sessions sessionRegistry
	log      *slog.Logger
	provider string
	upgrader websocket.Upgrader
}

func NewServer(chat chatSubmitter, sessions sessionRegistry, provider string, log *slog.Logger) (*Server, error) {
	if chat == nil {
		return nil, errors.New("web: chat service must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("web: session registry must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		chat:     chat,
		sessions: sessions,
		log:      log,
		provider: provider,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}, nil
}

func (s *Server) Routes() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.GET("/", s.handleIndex)
	engine.GET("/healthz", s.handleHealthz)
	engine.POST("/api/sessions", s.handleCreateSession)
	engine.GET("/api/sessions/:id", s.handleTranscript)
	engine.DELETE("/api/sessions/:id", s.handleEndSession)
	engine.POST("/api/sessions/:id/turns", s.handleSubmit)
	engine.GET("/api/sessions/:id/ws", s.handleStream)
	return engine
}

// requestLogger tags each request with a correlation id and logs its outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		corrID := strings.TrimSpace(c.GetHeader(correlationHeader))
		if corrID == "" {
			corrID = uuid.NewString()
		}
		ctx := observability.ContextWithCorrelationID(c.Request.Context(), corrID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(correlationHeader, corrID)
		log := observability.FromContext(ctx, s.log)
		c.Set(ctxKeyLogger, log)

		start := time.Now()
		c.Next()
		log.InfoContext(ctx, "request handled",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) logger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(ctxKeyLogger); ok {
		if log, ok := v.(*slog.Logger); ok {
			return log
		}
	}
	return s.log
}

func (s *Server) handleIndex(c *gin.Context) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": string(usecase.ErrorInternal)})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": s.provider})
}

type sessionResponse struct {
	SessionID string        `json:"sessionId"`
	CreatedAt time.Time     `json:"createdAt"`
	Turns     []domain.Turn `json:"turns"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.sessions.Create()
	c.JSON(http.StatusCreated, sessionResponse{SessionID: sess.ID, CreatedAt: sess.CreatedAt, Turns: sess.All()})
}

func (s *Server) handleTranscript(c *gin.Context) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errorNotFound})
		return
	}
	c.JSON(http.StatusOK, sessionResponse{SessionID: sess.ID, CreatedAt: sess.CreatedAt, Turns: sess.All()})
}

func (s *Server) handleEndSession(c *gin.Context) {
	if !s.sessions.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": errorNotFound})
		return
	}
	c.Status(http.StatusNoContent)
}

type submitRequest struct {
	Text string `json:"text"`
}

type submitResponse struct {
	User      domain.Turn `json:"user"`
	Assistant domain.Turn `json:"assistant"`
	ErrorCode string      `json:"errorCode,omitempty"`
}

func (s *Server) handleSubmit(c *gin.Context) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errorNotFound})
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(usecase.ErrorInvalidInput), "reason": "invalid_json"})
		return
	}

	ex, err := s.chat.Submit(c.Request.Context(), sess, req.Text)
	if err != nil {
		s.logger(c).WarnContext(c.Request.Context(), "submit rejected", "session_id", sess.ID, "err", err)
		c.JSON(usecase.StatusCode(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, toSubmitResponse(ex))
}

func toSubmitResponse(ex usecase.Exchange) submitResponse {
	out := submitResponse{User: ex.User, Assistant: ex.Assistant}
	if ex.Failure != nil {
		out.ErrorCode = string(ex.Failure.Code)
	}
	return out
}

func errorBody(err error) gin.H {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		return gin.H{"error": string(ucErr.Code), "reason": ucErr.Reason}
	}
	return gin.H{"error": string(usecase.ErrorInternal)}
}
