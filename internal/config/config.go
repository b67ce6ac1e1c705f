package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/rubyhat/cloudsquares-api/pkg/commoncfg"
)

// Config cloudsquares-api（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	Database commoncfg.DatabaseConfig
	Redis    commoncfg.RedisConfig
	Log      struct {
		Level  string
		Format string
	}
	JWT   JWTConfig   `yaml:"jwt"`
	Photo PhotoConfig `yaml:"photo"`
}

// JWTConfig JWT 配置（access/refresh 双令牌）
type JWTConfig struct {
	Secret     string        `yaml:"secret"`      // HS256 签名密钥
	AccessTTL  time.Duration `yaml:"access_ttl"`  // access token 有效期
	RefreshTTL time.Duration `yaml:"refresh_ttl"` // refresh token 有效期
}

// PhotoConfig 照片接入 worker 配置
type PhotoConfig struct {
	Stream          string        `yaml:"stream"`           // Redis Stream 名称
	ConsumerGroup   string        `yaml:"consumer_group"`   // 消费者组
	Consumer        string        `yaml:"consumer"`         // 消费者名称
	DownloadTimeout time.Duration `yaml:"download_timeout"` // 单张照片下载超时
}

func Load() *Config {
	// .env 文件可选：缺失时静默跳过（与容器环境变量注入兼容）
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "cloudsquares")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// JWT 配置
	cfg.JWT.Secret = getEnv("JWT_SECRET", "dev-secret-change-me")
	cfg.JWT.AccessTTL = parseDuration(getEnv("JWT_ACCESS_TTL", "15m"), 15*time.Minute)
	cfg.JWT.RefreshTTL = parseDuration(getEnv("JWT_REFRESH_TTL", "720h"), 720*time.Hour)

	// 照片 worker 配置
	cfg.Photo.Stream = getEnv("PHOTO_STREAM", "property-photos")
	cfg.Photo.ConsumerGroup = getEnv("PHOTO_CONSUMER_GROUP", "photo-ingest")
	cfg.Photo.Consumer = getEnv("PHOTO_CONSUMER", "photo-worker-1")
	cfg.Photo.DownloadTimeout = parseDuration(getEnv("PHOTO_DOWNLOAD_TIMEOUT", "30s"), 30*time.Second)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
