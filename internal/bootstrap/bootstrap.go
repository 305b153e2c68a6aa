// Package bootstrap opens the optional backends shared by the gateway and
// the worker. Anything not configured is left nil and the caller degrades.
package bootstrap

import (
	"context"
	"errors"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yoockh/screencopilot/config"
	"github.com/yoockh/screencopilot/internal/cache"
	"github.com/yoockh/screencopilot/internal/metrics"
	"github.com/yoockh/screencopilot/internal/models"
	"github.com/yoockh/screencopilot/internal/providers/analyst"
	"github.com/yoockh/screencopilot/internal/providers/embedding"
	"github.com/yoockh/screencopilot/internal/providers/llm"
	"github.com/yoockh/screencopilot/internal/providers/stt"
	mongorepo "github.com/yoockh/screencopilot/internal/repositories/mongo"
	pgrepo "github.com/yoockh/screencopilot/internal/repositories/postgres"
	"github.com/yoockh/screencopilot/internal/services"
	"github.com/yoockh/screencopilot/internal/storage"
	"github.com/yoockh/screencopilot/internal/workers"
)

const cachePrefix = "screencopilot:"

type Backends struct {
	Redis *redis.Client

	LLM     llm.Provider
	Analyst *analyst.Analyst
	STT     *stt.Clips

	Sessions      services.SessionService
	Conversations services.ConversationService
	Snapshots     services.SnapshotService

	mongo   *mongo.Client
	closers []io.Closer
}

// Open connects every backend whose settings are present. Connection errors
// on a configured backend are fatal; missing configuration is not.
func Open(ctx context.Context, s config.Settings, m *metrics.Metrics, log logrus.FieldLogger) (*Backends, error) {
	b := &Backends{}

	if s.RedisAddr != "" {
		rdb, err := config.OpenRedis(ctx, s.RedisAddr)
		if err != nil {
			return nil, err
		}
		b.Redis = rdb
		b.closers = append(b.closers, rdb)
		log.Info("redis connected")
	} else {
		log.Warn("redis not configured")
	}

	if s.MongoURI != "" {
		client, err := config.OpenMongo(ctx, s.MongoURI, s.MongoTLS12)
		if err != nil {
			return b, err
		}
		b.mongo = client
		db := client.Database(s.MongoDB)
		if err := config.EnsureMongoIndexes(ctx, db); err != nil {
			log.WithField("error", err).Warn("mongo index setup failed")
		}
		b.Sessions = services.NewSessionService(mongorepo.NewSessionRepo(db))
		log.Info("mongo connected")
	}

	if s.PostgresURI != "" {
		db, err := config.OpenPostgres(s.PostgresURI)
		if err != nil {
			return b, err
		}
		if err := pgrepo.Migrate(db); err != nil {
			return b, err
		}
		var embedder services.Embedder
		if s.GCPProject != "" {
			e, err := embedding.NewVertexEmbedder(ctx, s.GCPProject, s.GCPLocation, s.EmbeddingModel, models.EmbeddingDims)
			if err != nil {
				return b, err
			}
			b.closers = append(b.closers, e)
			embedder = e
		}
		b.Conversations = services.NewConversationService(pgrepo.NewConversationRepo(db), embedder)

		var uploader storage.Uploader
		if s.SnapshotBucket != "" {
			gcs, err := storage.NewGCSUploader(ctx, s.SnapshotBucket)
			if err != nil {
				return b, err
			}
			b.closers = append(b.closers, gcs)
			uploader = gcs
		}
		b.Snapshots = services.NewSnapshotService(pgrepo.NewSnapshotRepo(db), uploader)
		if sqlDB, err := db.DB(); err == nil {
			b.closers = append(b.closers, sqlDB)
		}
		log.Info("postgres connected")
	}

	if s.GCPProject == "" {
		log.Warn("GCP_PROJECT not set; capabilities disabled")
		return b, nil
	}

	gemini, err := llm.NewVertexGemini(ctx, s.GCPProject, s.GCPLocation, s.GeminiModel)
	if err != nil {
		return b, err
	}
	b.closers = append(b.closers, gemini)
	b.LLM = gemini

	var ocrCache cache.Cache = cache.NewLRUCache(s.OCRCacheSize)
	if b.Redis != nil {
		ocrCache = cache.NewRedisCache(b.Redis, cachePrefix)
	}
	b.Analyst = analyst.New(gemini, analyst.Options{
		OCRCache:    ocrCache,
		OCRCacheTTL: s.OCRCacheTTL,
		Metrics:     m,
		Logger:      log,
	})

	speech, err := stt.NewGoogleSpeech(ctx, workers.DefaultSampleRate)
	if err != nil {
		return b, err
	}
	b.closers = append(b.closers, speech)
	b.STT = &stt.Clips{Provider: speech, Language: s.STTLanguage}

	return b, nil
}

func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i].Close())
	}
	if b.mongo != nil {
		errs = append(errs, b.mongo.Disconnect(context.Background()))
	}
	return errors.Join(errs...)
}
