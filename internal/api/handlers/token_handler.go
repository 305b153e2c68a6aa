package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/screencopilot/internal/auth"
	"github.com/yoockh/screencopilot/internal/utils"
)

type TokenHandler struct {
	tokens *auth.RoomTokens
}

func NewTokenHandler(tokens *auth.RoomTokens) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

type MintTokenRequest struct {
	RoomName string `json:"roomName" binding:"required"`
	Identity string `json:"identity" binding:"required"`
}

func (h *TokenHandler) Mint(c *gin.Context) {
	var req MintTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TokenHandler.Mint", "roomName and identity required", err))
		return
	}

	tok, err := h.tokens.Mint(req.RoomName, req.Identity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok})
}
