package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yoockh/screencopilot/internal/copilot"
)

// Settings is the process configuration. Every key can be set from the
// environment (upper-case, as listed in Load) or a .env file.
type Settings struct {
	Room        string
	Identity    string
	Port        string
	MetricsAddr string
	LogLevel    string

	GCPProject     string
	GCPLocation    string
	GeminiModel    string
	EmbeddingModel string
	STTLanguage    string

	RedisAddr   string
	MongoURI    string
	MongoDB     string
	MongoTLS12  bool
	PostgresURI string

	RoomTokenSecret string
	RoomTokenTTL    time.Duration
	AllowedOrigins  []string
	WSRateLimit     float64

	SnapshotBucket string
	OCRCacheTTL    time.Duration
	OCRCacheSize   int

	Worker          copilot.Settings
	AudioFlushEvery time.Duration
	AudioFlushBytes int
	MaxInFlight     int
}

// LoadDotEnv reads .env when present. A missing file is not an error.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads Settings from v, which should already have flags bound.
func Load(v *viper.Viper) Settings {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("room", "demo")
	v.SetDefault("identity", "copilot-worker")
	v.SetDefault("port", "5050")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("log_level", "info")
	v.SetDefault("mongo_db", "screencopilot")
	v.SetDefault("gcp_location", "us-central1")
	v.SetDefault("stt_language", "en-US")
	v.SetDefault("room_token_ttl", time.Hour)
	v.SetDefault("ws_rate_limit", 20.0)
	v.SetDefault("ocr_cache_ttl", 10*time.Minute)
	v.SetDefault("ocr_cache_size", 512)

	d := copilot.DefaultSettings()
	v.SetDefault("history_max", d.HistoryMax)
	v.SetDefault("vision_every_n_default", d.VisionEveryDefault)
	v.SetDefault("vision_every_n_stream", d.VisionEveryStream)
	v.SetDefault("context_every_n", d.ContextEvery)
	v.SetDefault("ocr_timeout_ms", d.OCRTimeout.Milliseconds())
	v.SetDefault("frame_stale_ms", d.FrameStaleAfter.Milliseconds())
	v.SetDefault("audio_flush_ms", 3000)
	v.SetDefault("audio_flush_bytes", 96000)
	v.SetDefault("max_inflight", 8)

	return Settings{
		Room:        v.GetString("room"),
		Identity:    v.GetString("identity"),
		Port:        v.GetString("port"),
		MetricsAddr: v.GetString("metrics_addr"),
		LogLevel:    v.GetString("log_level"),

		GCPProject:     v.GetString("gcp_project"),
		GCPLocation:    v.GetString("gcp_location"),
		GeminiModel:    v.GetString("gemini_model"),
		EmbeddingModel: v.GetString("embedding_model"),
		STTLanguage:    v.GetString("stt_language"),

		RedisAddr:   firstSet(v, "redis_addr", "redis_uri", "redis_url"),
		MongoURI:    v.GetString("mongo_uri"),
		MongoDB:     v.GetString("mongo_db"),
		MongoTLS12:  v.GetBool("mongo_force_tls_config"),
		PostgresURI: v.GetString("postgres_uri"),

		RoomTokenSecret: v.GetString("room_token_secret"),
		RoomTokenTTL:    v.GetDuration("room_token_ttl"),
		AllowedOrigins:  splitList(v.GetString("allowed_origins")),
		WSRateLimit:     v.GetFloat64("ws_rate_limit"),

		SnapshotBucket: v.GetString("snapshot_bucket"),
		OCRCacheTTL:    v.GetDuration("ocr_cache_ttl"),
		OCRCacheSize:   v.GetInt("ocr_cache_size"),

		Worker: copilot.Settings{
			HistoryMax:         v.GetInt("history_max"),
			VisionEveryDefault: v.GetInt("vision_every_n_default"),
			VisionEveryStream:  v.GetInt("vision_every_n_stream"),
			ContextEvery:       v.GetInt("context_every_n"),
			OCRTimeout:         time.Duration(v.GetInt64("ocr_timeout_ms")) * time.Millisecond,
			FrameStaleAfter:    time.Duration(v.GetInt64("frame_stale_ms")) * time.Millisecond,
			AudioSnippetMax:    copilot.DefaultAudioSnippetMax,
		},
		AudioFlushEvery: time.Duration(v.GetInt64("audio_flush_ms")) * time.Millisecond,
		AudioFlushBytes: v.GetInt("audio_flush_bytes"),
		MaxInFlight:     v.GetInt("max_inflight"),
	}
}

func firstSet(v *viper.Viper, keys ...string) string {
	for _, k := range keys {
		if val := v.GetString(k); val != "" {
			return val
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
