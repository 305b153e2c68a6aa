package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/screencopilot/internal/models"
	"github.com/yoockh/screencopilot/internal/services"
	"github.com/yoockh/screencopilot/internal/utils"
)

type SessionHandler struct {
	svc services.SessionService
}

func NewSessionHandler(svc services.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.authorized(c, "SessionHandler.Get")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess)
}

// authorized loads the path's session and checks it belongs to the caller's
// room.
func (h *SessionHandler) authorized(c *gin.Context, op string) (*models.WorkerSession, bool) {
	room, ok := requireRoom(c)
	if !ok {
		return nil, false
	}

	sess, err := h.svc.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if sess.Room != room {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return nil, false
	}
	return sess, true
}
