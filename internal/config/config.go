package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration. Everything is read once at
// startup and handed to the components that need it; nothing reads the
// environment after Load returns.
type Config struct {
	Env      string
	HTTPAddr string

	DBDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret            string
	OperatorUsername     string
	OperatorPasswordHash string

	VideoAPIBaseURL string
	VideoAPIKey     string
	VideoProvider   string
	AspectRatio     string
	Resolution      string

	AssetStoreBaseURL string
	AssetStoreKey     string

	RecoveryLedgerDir string

	WorkerPollInterval time.Duration
	WorkerMaxRetries   int
}

// Load reads .env (if present) and the environment. Missing required
// values are reported together so a broken deployment fails with one
// complete message.
func Load() (*Config, error) {
	// .env is a development convenience; absence is normal in production.
	_ = godotenv.Load()

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DBDSN:                os.Getenv("DB_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		OperatorUsername:     getEnv("OPERATOR_USERNAME", "operator"),
		OperatorPasswordHash: os.Getenv("OPERATOR_PASSWORD_HASH"),
		VideoAPIBaseURL:      os.Getenv("VIDEO_API_BASE_URL"),
		VideoAPIKey:          os.Getenv("VIDEO_API_KEY"),
		VideoProvider:        getEnv("VIDEO_PROVIDER", "veo"),
		AspectRatio:          getEnv("VIDEO_ASPECT_RATIO", "9:16"),
		Resolution:           getEnv("VIDEO_RESOLUTION", "720p"),
		AssetStoreBaseURL:    os.Getenv("ASSET_STORE_BASE_URL"),
		AssetStoreKey:        os.Getenv("ASSET_STORE_KEY"),
		RecoveryLedgerDir:    getEnv("RECOVERY_LEDGER_DIR", "recovery"),
		WorkerPollInterval:   getEnvDuration("WORKER_POLL_INTERVAL", 10*time.Second),
		WorkerMaxRetries:     getEnvInt("WORKER_MAX_RETRIES", 3),
	}

	var missing []string
	for name, value := range map[string]string{
		"DB_DSN":                 cfg.DBDSN,
		"REDIS_ADDR":             cfg.RedisAddr,
		"JWT_SECRET":             cfg.JWTSecret,
		"OPERATOR_PASSWORD_HASH": cfg.OperatorPasswordHash,
		"VIDEO_API_BASE_URL":     cfg.VideoAPIBaseURL,
		"VIDEO_API_KEY":          cfg.VideoAPIKey,
		"ASSET_STORE_BASE_URL":   cfg.AssetStoreBaseURL,
		"ASSET_STORE_KEY":        cfg.AssetStoreKey,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %v", missing)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
