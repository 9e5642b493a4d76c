package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppEnv         string `envconfig:"APP_ENV" default:"production"`
	Port           string `envconfig:"PORT" default:"8080"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// DBDriver is "postgres" or "sqlite". For sqlite, DatabaseURL is the file DSN.
	DBDriver    string `envconfig:"DB_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPass      string `envconfig:"DB_PASS"`
	DBName      string `envconfig:"DB_NAME" default:"karma_forum"`
	DBSSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisURL string `envconfig:"REDIS_URL"`

	MeiliSearchHost string `envconfig:"MEILISEARCH_HOST"`
	MeiliMasterKey  string `envconfig:"MEILI_MASTER_KEY"`

	// JWTSecret keeps its placeholder default only for development.
	JWTSecret string `envconfig:"JWT_SECRET" default:"12345"`
	// AuthFallbackUsername, when set, is the identity used for requests without a token.
	// Empty means requests without a token are rejected.
	AuthFallbackUsername string `envconfig:"AUTH_FALLBACK_USERNAME"`

	LeaderboardWindow       time.Duration `envconfig:"LEADERBOARD_WINDOW" default:"24h"`
	LeaderboardDefaultLimit int           `envconfig:"LEADERBOARD_DEFAULT_LIMIT" default:"5"`
	LeaderboardCacheTTL     time.Duration `envconfig:"LEADERBOARD_CACHE_TTL" default:"0s"`

	RateLimitPost    time.Duration `envconfig:"RATE_LIMIT_POST" default:"15s"`
	RateLimitComment time.Duration `envconfig:"RATE_LIMIT_COMMENT" default:"5s"`

	LikeMaxAttempts int `envconfig:"LIKE_MAX_ATTEMPTS" default:"3"`
}

const devJWTSecret = "12345"

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: want postgres or sqlite", c.DBDriver)
	}
	if c.DBDriver == "sqlite" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the sqlite driver")
	}
	if c.LeaderboardWindow <= 0 {
		return fmt.Errorf("LEADERBOARD_WINDOW must be > 0")
	}
	if c.LeaderboardDefaultLimit < 1 || c.LeaderboardDefaultLimit > 50 {
		return fmt.Errorf("LEADERBOARD_DEFAULT_LIMIT must be between 1 and 50")
	}
	if c.LeaderboardCacheTTL < 0 {
		return fmt.Errorf("LEADERBOARD_CACHE_TTL must not be negative")
	}
	if !c.IsDevelopment() && (c.JWTSecret == "" || c.JWTSecret == devJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set when APP_ENV is %q", c.AppEnv)
	}
	if c.LikeMaxAttempts < 1 {
		return fmt.Errorf("LIKE_MAX_ATTEMPTS must be >= 1")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// PostgresDSN builds the dsn from the DB_* variables unless DATABASE_URL is set.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
