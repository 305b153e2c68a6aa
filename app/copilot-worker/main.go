package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/yoockh/screencopilot/config"
	"github.com/yoockh/screencopilot/internal/bootstrap"
	"github.com/yoockh/screencopilot/internal/logger"
	"github.com/yoockh/screencopilot/internal/metrics"
	"github.com/yoockh/screencopilot/internal/services"
	"github.com/yoockh/screencopilot/internal/transport"
	"github.com/yoockh/screencopilot/internal/workers"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:           "copilot-worker",
		Short:         "Joins a room and answers screen-aware requests",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config.LoadDotEnv()
			return run(cmd.Context(), config.Load(v))
		},
	}

	f := cmd.Flags()
	f.String("room", "", "room to join (env ROOM)")
	f.String("identity", "", "participant identity (env IDENTITY)")
	f.String("metrics-addr", "", "listen address for /metrics and /healthz (env METRICS_ADDR)")
	f.String("log-level", "", "log level (env LOG_LEVEL)")
	for _, name := range []string{"room", "identity", "metrics-addr", "log-level"} {
		_ = v.BindPFlag(flagKey(name), f.Lookup(name))
	}
	return cmd
}

// flagKey maps a flag name to the env-style key config.Load reads.
func flagKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

func run(parent context.Context, s config.Settings) error {
	log := logger.New(s.LogLevel)
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.Default()
	b, err := bootstrap.Open(ctx, s, m, log)
	if err != nil {
		log.WithField("error", err).Error("backend init failed")
		return err
	}
	defer b.Close()

	if b.Redis == nil {
		return errors.New("worker needs redis for the room transport")
	}
	if b.Analyst == nil {
		return errors.New("worker needs GCP_PROJECT for its capabilities")
	}

	room := transport.NewRedisRoom(b.Redis, s.Room)
	w := &workers.RoomWorker{
		Room:        room,
		Identity:    s.Identity,
		Caps:        b.Analyst,
		Settings:    s.Worker,
		Metrics:     m,
		Logger:      log,
		MaxInFlight: s.MaxInFlight,
		AudioFlush:  s.AudioFlushEvery,
		AudioBytes:  s.AudioFlushBytes,
	}
	if b.Sessions != nil {
		w.Sessions = b.Sessions
	}
	var journal *services.Journal
	if b.Conversations != nil {
		journal = services.NewJournal(b.Conversations, log)
		w.Journal = journal
	}
	var archiver *services.SnapshotArchiver
	if b.Snapshots != nil {
		archiver = services.NewSnapshotArchiver(b.Snapshots, log)
		w.Archiver = archiver
	}
	if b.STT != nil {
		audio, err := room.AudioReader(ctx, s.Identity)
		if err != nil {
			log.WithField("error", err).Warn("screen audio disabled")
		} else {
			w.Audio = audio
			w.STT = b.STT
		}
	}

	srv := &http.Server{Addr: s.MetricsAddr, Handler: opsRouter()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return w.Run(gctx)
	})
	g.Go(func() error {
		log.WithField("addr", s.MetricsAddr).Info("metrics listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if journal != nil {
		journal.Wait()
	}
	if archiver != nil {
		archiver.Wait()
	}
	if err != nil {
		log.WithFields(logrus.Fields{"room": s.Room, "error": err}).Error("worker stopped")
	}
	return err
}

func opsRouter() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}
