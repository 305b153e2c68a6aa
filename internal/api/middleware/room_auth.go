package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/screencopilot/internal/auth"
	"github.com/yoockh/screencopilot/internal/utils"
)

const (
	CtxIdentity = "identity"
	CtxRoom     = "room"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// RoomAuth accepts a room token from the Authorization header or, for
// websocket upgrades where browsers cannot set headers, the token query
// parameter.
func RoomAuth(tokens *auth.RoomTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "missing bearer token",
			})
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(utils.HTTPStatus(err), apiError{
				Code:    utils.CodeUnauthorized,
				Message: "invalid token",
			})
			return
		}

		c.Set(CtxIdentity, claims.Subject)
		c.Set(CtxRoom, claims.Grant.Room)
		c.Next()
	}
}

// RequireRoomParam only lets through tokens granted for the room named by
// the path parameter.
func RequireRoomParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get(CtxRoom)
		granted, _ := v.(string)

		if granted == "" || granted != c.Param(param) {
			c.AbortWithStatusJSON(http.StatusForbidden, apiError{
				Code:    utils.CodeForbidden,
				Message: "forbidden",
			})
			return
		}
		c.Next()
	}
}
