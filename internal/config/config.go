package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lexsite/lexsite/backend/go-services/internal/storage"
	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MinIO     storage.MinIOConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Admin     AdminConfig
	JWT       JWTConfig
	OIDC      OIDCConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	Upload    UploadConfig
	Mail      MailConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// AllowedOrigins is the CORS allowlist; "*" allows any origin.
	AllowedOrigins []string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

// AdminConfig is the single site administrator.
type AdminConfig struct {
	Username     string
	PasswordHash string
}

type JWTConfig struct {
	Secret          string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// OIDCConfig enables an external identity provider for admin tokens.
type OIDCConfig struct {
	Issuer   string
	ClientID string
}

type RateLimitConfig struct {
	Enabled  bool
	UseRedis bool
	RPS      float64
	Burst    int
	Window   time.Duration
	// InquiryRPS and InquiryBurst limit the public contact and consultation forms.
	InquiryRPS   float64
	InquiryBurst int
}

// StoreConfig tunes the collection document store.
type StoreConfig struct {
	WriteAttempts    int
	WriteBackoff     time.Duration
	MutationAttempts int
	MutationBackoff  time.Duration
	LockTTL          time.Duration
	LockWait         time.Duration
}

type UploadConfig struct {
	MaxBytes int64
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// To receives contact and consultation messages.
	To string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", "*")
	viper.SetDefault("MINIO_BUCKET", "lexsite")
	viper.SetDefault("MONGODB_DATABASE", "lexsite")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("ADMIN_USERNAME", "admin")
	viper.SetDefault("JWT_ISSUER", "lexsite")
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 5)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("RATE_LIMIT_INQUIRY_RPS", 0.05)
	viper.SetDefault("RATE_LIMIT_INQUIRY_BURST", 3)
	viper.SetDefault("STORE_WRITE_ATTEMPTS", 3)
	viper.SetDefault("STORE_WRITE_BACKOFF_MS", 100)
	viper.SetDefault("STORE_MUTATION_ATTEMPTS", 5)
	viper.SetDefault("STORE_MUTATION_BACKOFF_MS", 200)
	viper.SetDefault("STORE_LOCK_TTL_SECONDS", 10)
	viper.SetDefault("STORE_LOCK_WAIT_SECONDS", 5)
	viper.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	viper.SetDefault("SMTP_PORT", 587)

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Host:           viper.GetString("SERVER_HOST"),
			Environment:    viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			AllowedOrigins: splitList(viper.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		MinIO: storage.MinIOConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
			PublicURL: viper.GetString("MINIO_PUBLIC_URL"),
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Admin: AdminConfig{
			Username:     viper.GetString("ADMIN_USERNAME"),
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			Issuer:          viper.GetString("JWT_ISSUER"),
			AccessTokenTTL:  time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(viper.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		OIDC: OIDCConfig{
			Issuer:   viper.GetString("OIDC_ISSUER"),
			ClientID: viper.GetString("OIDC_CLIENT_ID"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis: viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:      viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:    viper.GetInt("RATE_LIMIT_BURST"),
			Window:   time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,

			InquiryRPS:   viper.GetFloat64("RATE_LIMIT_INQUIRY_RPS"),
			InquiryBurst: viper.GetInt("RATE_LIMIT_INQUIRY_BURST"),
		},
		Store: StoreConfig{
			WriteAttempts:    viper.GetInt("STORE_WRITE_ATTEMPTS"),
			WriteBackoff:     time.Duration(viper.GetInt("STORE_WRITE_BACKOFF_MS")) * time.Millisecond,
			MutationAttempts: viper.GetInt("STORE_MUTATION_ATTEMPTS"),
			MutationBackoff:  time.Duration(viper.GetInt("STORE_MUTATION_BACKOFF_MS")) * time.Millisecond,
			LockTTL:          time.Duration(viper.GetInt("STORE_LOCK_TTL_SECONDS")) * time.Second,
			LockWait:         time.Duration(viper.GetInt("STORE_LOCK_WAIT_SECONDS")) * time.Second,
		},
		Upload: UploadConfig{
			MaxBytes: viper.GetInt64("UPLOAD_MAX_BYTES"),
		},
		Mail: MailConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			Username: viper.GetString("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     viper.GetString("MAIL_FROM"),
			To:       viper.GetString("MAIL_TO"),
		},
	}

	// Basic validation
	if cfg.JWT.Secret == "" && cfg.OIDC.Issuer == "" {
		logger.Warnf("neither JWT_SECRET nor OIDC_ISSUER is set; admin routes will be unavailable")
	}
	if cfg.JWT.Secret != "" && cfg.Admin.PasswordHash == "" {
		logger.Warnf("ADMIN_PASSWORD_HASH is not set; admin login is disabled")
	}
	if !cfg.MinIO.Enabled() {
		logger.Warnf("MINIO_ENDPOINT is not set; collections are kept in memory only")
	}

	return cfg, nil
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
