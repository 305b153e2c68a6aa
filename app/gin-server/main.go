package main

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"

	"github.com/yoockh/screencopilot/config"
	"github.com/yoockh/screencopilot/internal/api/handlers"
	"github.com/yoockh/screencopilot/internal/api/middleware"
	"github.com/yoockh/screencopilot/internal/api/routes"
	"github.com/yoockh/screencopilot/internal/auth"
	"github.com/yoockh/screencopilot/internal/bootstrap"
	"github.com/yoockh/screencopilot/internal/logger"
	"github.com/yoockh/screencopilot/internal/metrics"
	"github.com/yoockh/screencopilot/internal/transport"
)

func main() {
	config.LoadDotEnv()
	s := config.Load(viper.New())
	log := logger.New(s.LogLevel)

	ctx := context.Background()
	b, err := bootstrap.Open(ctx, s, metrics.Default(), log)
	if err != nil {
		log.WithField("error", err).Fatal("backend init failed")
	}
	defer b.Close()

	if s.RoomTokenSecret == "" {
		log.Fatal("ROOM_TOKEN_SECRET is not set")
	}
	tokens := auth.NewRoomTokens(s.RoomTokenSecret, s.RoomTokenTTL)

	deps := routes.Deps{
		Tokens: tokens,
		Token:  handlers.NewTokenHandler(tokens),
	}
	if b.Redis != nil {
		open := func(room string) handlers.RoomBridge { return transport.NewRedisRoom(b.Redis, room) }
		deps.WS = handlers.NewWSHandler(open, s.WSRateLimit, s.AllowedOrigins, log)
	} else {
		log.Warn("room bridge disabled: redis not configured")
	}
	if b.STT != nil {
		deps.Transcribe = handlers.NewTranscribeHandler(b.STT)
	}
	if b.LLM != nil {
		deps.Chat = handlers.NewChatHandler(b.LLM)
		deps.Snapshot = handlers.NewSnapshotHandler(b.Analyst)
	}
	if b.Sessions != nil {
		deps.Session = handlers.NewSessionHandler(b.Sessions)
		if b.Conversations != nil {
			deps.Conversation = handlers.NewConversationHandler(deps.Session, b.Conversations)
		}
	}
	deps.Report = handlers.NewReportHandler(deps.Session, b.Conversations, b.Snapshots)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(s.AllowedOrigins),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	routes.RegisterRoutes(r, deps)

	log.WithField("port", s.Port).Info("gateway listening")
	if err := r.Run(":" + s.Port); err != nil {
		log.WithField("error", err).Fatal("gateway stopped")
	}
}

func allowedOrigins(configured []string) []string {
	if len(configured) > 0 {
		return configured
	}
	return []string{"http://localhost:3000", "http://localhost:5173"}
}
