package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/screencopilot/internal/utils"
)

const maxImageUpload = 10 << 20

// ImageOCR reads text from a JPEG.
type ImageOCR interface {
	OCRImage(ctx context.Context, jpeg []byte) (string, error)
}

type SnapshotHandler struct {
	ocr ImageOCR
}

func NewSnapshotHandler(ocr ImageOCR) *SnapshotHandler {
	return &SnapshotHandler{ocr: ocr}
}

// OCR extracts text from the multipart field "image".
func (h *SnapshotHandler) OCR(c *gin.Context) {
	const op = "SnapshotHandler.OCR"

	fh, err := c.FormFile("image")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'image'", err))
		return
	}
	if fh.Size <= 0 || fh.Size > maxImageUpload {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "image too large (max 10MB)", nil))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	img, err := io.ReadAll(file)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to read upload", err))
		return
	}

	text, err := h.ocr.OCRImage(c.Request.Context(), img)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ocr": text})
}
