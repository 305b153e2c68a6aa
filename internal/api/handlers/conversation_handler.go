package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/screencopilot/internal/services"
	"github.com/yoockh/screencopilot/internal/utils"
)

// ConversationHandler serves a session's journal. Session ownership is
// checked through the SessionHandler.
type ConversationHandler struct {
	sessions *SessionHandler
	svc      services.ConversationService
}

func NewConversationHandler(sessions *SessionHandler, svc services.ConversationService) *ConversationHandler {
	return &ConversationHandler{sessions: sessions, svc: svc}
}

func (h *ConversationHandler) ListBySession(c *gin.Context) {
	sess, ok := h.sessions.authorized(c, "ConversationHandler.ListBySession")
	if !ok {
		return
	}

	rows, err := h.svc.ListBySession(c.Request.Context(), sess.SessionID, queryInt(c, "limit", 200, 1000))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":    sess.SessionID,
		"conversations": rows,
	})
}

// Search ranks journal rows by lexical similarity to q.
func (h *ConversationHandler) Search(c *gin.Context) {
	sess, ok := h.sessions.authorized(c, "ConversationHandler.Search")
	if !ok {
		return
	}

	q := c.Query("q")
	if q == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ConversationHandler.Search", "q is required", nil))
		return
	}

	rows, err := h.svc.Search(c.Request.Context(), sess.SessionID, q, queryInt(c, "k", 5, 50))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.SessionID,
		"results":    rows,
	})
}

func queryInt(c *gin.Context, key string, def, max int) int {
	if s := c.Query(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= max {
			return n
		}
	}
	return def
}
