package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/screencopilot/internal/copilot"
	"github.com/yoockh/screencopilot/internal/utils"
)

const maxAudioBody = 20 << 20

type TranscribeHandler struct {
	stt copilot.Transcriber
}

func NewTranscribeHandler(stt copilot.Transcriber) *TranscribeHandler {
	return &TranscribeHandler{stt: stt}
}

// Raw transcribes a WAV body posted as audio/wav or application/octet-stream.
func (h *TranscribeHandler) Raw(c *gin.Context) {
	const op = "TranscribeHandler.Raw"

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioBody))
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio body too large or unreadable", err))
		return
	}
	if len(body) == 0 {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "no audio buffer", nil))
		return
	}

	text, err := h.stt.TranscribeAudio(c.Request.Context(), body)
	if err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "transcription failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}
