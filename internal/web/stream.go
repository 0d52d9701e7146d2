package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatbot/internal/domain"
	"chatbot/internal/usecase"
)

// Event types pushed over the session websocket.
const (
	eventBusy  = "busy"
	eventReply = "reply"
	eventError = "error"
)

type streamRequest struct {
	Text string `json:"text"`
}

type streamEvent struct {
	Type      string       `json:"type"`
	User      *domain.Turn `json:"user,omitempty"`
	Assistant *domain.Turn `json:"assistant,omitempty"`
	ErrorCode string       `json:"errorCode,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

// handleStream upgrades to a websocket and serves submissions one at a time.
// Each message gets a busy event followed by a reply or error event. Only
// this loop writes to the connection.
func (s *Server) handleStream(c *gin.Context) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errorNotFound})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger(c).WarnContext(c.Request.Context(), "websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	log := s.logger(c).With("session_id", sess.ID)
	for {
		var req streamRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.DebugContext(ctx, "websocket read ended", "err", err)
			}
			return
		}

		if err := conn.WriteJSON(streamEvent{Type: eventBusy}); err != nil {
			log.WarnContext(ctx, "websocket write failed", "err", err)
			return
		}
		ex, submitErr := s.chat.Submit(ctx, sess, req.Text)
		if err := conn.WriteJSON(toStreamEvent(ex, submitErr)); err != nil {
			log.WarnContext(ctx, "websocket write failed", "err", err)
			return
		}
	}
}

func toStreamEvent(ex usecase.Exchange, err error) streamEvent {
	if err != nil {
		ev := streamEvent{Type: eventError, ErrorCode: string(usecase.ErrorInternal)}
		var ucErr *usecase.Error
		if errors.As(err, &ucErr) {
			ev.ErrorCode, ev.Reason = string(ucErr.Code), ucErr.Reason
		}
		return ev
	}
	ev := streamEvent{Type: eventReply, User: &ex.User, Assistant: &ex.Assistant}
	if ex.Failure != nil {
		ev.ErrorCode = string(ex.Failure.Code)
	}
	return ev
}
