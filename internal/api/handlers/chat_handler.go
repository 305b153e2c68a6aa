package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/screencopilot/internal/providers/llm"
	"github.com/yoockh/screencopilot/internal/utils"
)

const chatSystem = "You are a screen-aware copilot. If screen OCR/context is provided, use it."

type ChatHandler struct {
	llm llm.Provider
}

func NewChatHandler(p llm.Provider) *ChatHandler {
	return &ChatHandler{llm: p}
}

type ChatRequest struct {
	Transcript   string `json:"transcript" binding:"required"`
	SnapshotText string `json:"snapshotText"`
}

// Chat answers one push-to-talk transcript, optionally grounded on OCR text
// of a snapshot the client already extracted.
func (h *ChatHandler) Chat(c *gin.Context) {
	const op = "ChatHandler.Chat"

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "transcript is required", err))
		return
	}

	reply, err := llm.Collect(c.Request.Context(), h.llm, chatPrompt(req))
	if err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "chat failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": strings.TrimSpace(reply)})
}

func chatPrompt(req ChatRequest) string {
	var b strings.Builder
	b.WriteString(chatSystem)
	if s := strings.TrimSpace(req.SnapshotText); s != "" {
		b.WriteString("\n\nScreen OCR/context:\n")
		b.WriteString(s)
	}
	b.WriteString("\n\n")
	b.WriteString(req.Transcript)
	return b.String()
}
