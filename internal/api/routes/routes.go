package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/screencopilot/internal/api/handlers"
	"github.com/yoockh/screencopilot/internal/api/middleware"
	"github.com/yoockh/screencopilot/internal/auth"
)

// Deps holds the gateway handlers. Nil handlers belong to backends that are
// not configured; their routes are not registered.
type Deps struct {
	Tokens       *auth.RoomTokens
	Token        *handlers.TokenHandler
	WS           *handlers.WSHandler
	Transcribe   *handlers.TranscribeHandler
	Chat         *handlers.ChatHandler
	Snapshot     *handlers.SnapshotHandler
	Report       *handlers.ReportHandler
	Session      *handlers.SessionHandler
	Conversation *handlers.ConversationHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/rt/token", d.Token.Mint)

	// Protected routes (room token)
	authed := r.Group("/")
	authed.Use(middleware.RoomAuth(d.Tokens))

	if d.WS != nil {
		authed.GET("/ws/room/:room", middleware.RequireRoomParam("room"), d.WS.RoomWS)
	}

	v1 := authed.Group("/api/v1")
	if d.Transcribe != nil {
		v1.POST("/transcribe-raw", d.Transcribe.Raw)
	}
	if d.Chat != nil {
		v1.POST("/chat", d.Chat.Chat)
	}
	if d.Snapshot != nil {
		v1.POST("/snapshot", d.Snapshot.OCR)
	}
	if d.Report != nil {
		v1.POST("/session-report", d.Report.Build)
	}
	if d.Session != nil {
		v1.GET("/session/:session_id", d.Session.Get)
		if d.Report != nil {
			v1.GET("/session/:session_id/report", d.Report.Session)
		}
	}
	if d.Conversation != nil {
		v1.GET("/session/:session_id/conversation", d.Conversation.ListBySession)
		v1.GET("/session/:session_id/search", d.Conversation.Search)
	}
}
