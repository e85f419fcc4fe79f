package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidConfig is returned by Validate for unusable settings.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all application configuration
type Config struct {
	API         APIConfig
	Feed        FeedConfig
	Thread      ThreadConfig
	Interaction InteractionConfig
	Cache       CacheConfig
	Session     SessionConfig
	Server      ServerConfig
	Logging     LoggingConfig
}

// APIConfig describes the remote backend
type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// FeedConfig holds feed composition settings
type FeedConfig struct {
	PageSize         int
	AdEvery          int // real posts between ad insertions
	SuggestionsLimit int
	RefreshInterval  time.Duration // minimum gap between façade refreshes, 0 disables
}

// ThreadConfig holds comment thread settings
type ThreadConfig struct {
	ReplyPageSize       int
	DisclosureBlockSize int
}

// InteractionConfig selects what happens to optimistic state when a mutation fails
type InteractionConfig struct {
	Strategy string // "fire-and-forget" or "rollback"
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
}

// SessionConfig holds persistent client state configuration
type SessionConfig struct {
	Backend  string // "file", "redis" or "postgres"
	Path     string
	DeviceID string
	Token    string // seeds the store when set
	Secret   string // seals the token at rest when set
	Database DatabaseConfig
}

// DatabaseConfig holds PostgreSQL configuration for the postgres session backend
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ServerConfig holds the local HTTP façade configuration
type ServerConfig struct {
	HTTPAddr string
	Serve    bool
	Dump     bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	cfg := &Config{}

	apiURL := flag.String("api-url", "http://localhost:3000/api", "Backend API base URL")
	apiTimeout := flag.Duration("api-timeout", 15*time.Second, "Backend request timeout")
	pageSize := flag.Int("page-size", 10, "Posts per feed page")
	adEvery := flag.Int("ad-every", 3, "Real posts between ad insertions")
	replyPageSize := flag.Int("reply-page-size", 4, "Replies shown per page under a comment")
	strategy := flag.String("like-strategy", "fire-and-forget", "Optimistic like failure handling: fire-and-forget or rollback")
	cacheTTL := flag.Duration("cache-ttl", 5*time.Minute, "Cache TTL for ads and suggestions")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	sessionBackend := flag.String("session-backend", "file", "Session store: file, redis or postgres")
	sessionPath := flag.String("session-path", "data/session.json", "Session file path (file backend)")
	httpAddr := flag.String("http", ":8090", "Local HTTP façade address")
	serve := flag.Bool("serve", false, "Serve the local HTTP façade")
	dump := flag.Bool("dump", false, "Load the feed once and pretty-print the render list")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")

	flag.Parse()

	applyEnvOverrides(apiURL, apiTimeout, pageSize, adEvery, replyPageSize, strategy, cacheTTL, cacheBackend, redisAddr, sessionBackend, sessionPath, httpAddr, serve, logLevel)

	cfg.API = APIConfig{
		BaseURL:   strings.TrimRight(*apiURL, "/"),
		Timeout:   *apiTimeout,
		UserAgent: getEnvOrDefault("API_USER_AGENT", "socialfeed-client/1.0"),
	}

	cfg.Feed = FeedConfig{
		PageSize:         *pageSize,
		AdEvery:          *adEvery,
		SuggestionsLimit: getEnvInt("FEED_SUGGESTIONS_LIMIT", 10),
		RefreshInterval:  getEnvDuration("FEED_REFRESH_INTERVAL", 2*time.Second),
	}

	cfg.Thread = ThreadConfig{
		ReplyPageSize:       *replyPageSize,
		DisclosureBlockSize: getEnvInt("THREAD_DISCLOSURE_BLOCK", 5),
	}

	cfg.Interaction = InteractionConfig{
		Strategy: strings.ToLower(strings.TrimSpace(*strategy)),
	}

	cfg.Cache = CacheConfig{
		Backend:   *cacheBackend,
		TTL:       *cacheTTL,
		RedisAddr: *redisAddr,
	}

	cfg.Session = loadSessionConfig(*sessionBackend, *sessionPath)

	cfg.Server = ServerConfig{
		HTTPAddr: *httpAddr,
		Serve:    *serve,
		Dump:     *dump,
	}

	cfg.Logging = LoggingConfig{
		Level: *logLevel,
	}

	return cfg
}

// Validate reports settings the core cannot run with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api url is required", ErrInvalidConfig)
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidConfig, c.Feed.PageSize)
	}
	if c.Feed.AdEvery <= 0 {
		return fmt.Errorf("%w: ad interval must be positive, got %d", ErrInvalidConfig, c.Feed.AdEvery)
	}
	if c.Thread.ReplyPageSize <= 0 {
		return fmt.Errorf("%w: reply page size must be positive, got %d", ErrInvalidConfig, c.Thread.ReplyPageSize)
	}
	switch c.Interaction.Strategy {
	case "fire-and-forget", "rollback":
	default:
		return fmt.Errorf("%w: unknown like strategy %q", ErrInvalidConfig, c.Interaction.Strategy)
	}
	switch c.Session.Backend {
	case "file", "redis", "postgres":
	default:
		return fmt.Errorf("%w: unknown session backend %q", ErrInvalidConfig, c.Session.Backend)
	}
	return nil
}

func loadSessionConfig(backend, path string) SessionConfig {
	return SessionConfig{
		Backend:  backend,
		Path:     path,
		DeviceID: os.Getenv("SESSION_DEVICE_ID"),
		Token:    os.Getenv("AUTH_TOKEN"),
		Secret:   os.Getenv("SESSION_SECRET"),
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			Database: getEnvOrDefault("DB_NAME", "socialfeed"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func applyEnvOverrides(
	apiURL *string,
	apiTimeout *time.Duration,
	pageSize *int,
	adEvery *int,
	replyPageSize *int,
	strategy *string,
	cacheTTL *time.Duration,
	cacheBackend *string,
	redisAddr *string,
	sessionBackend *string,
	sessionPath *string,
	httpAddr *string,
	serve *bool,
	logLevel *string,
) {
	if v := os.Getenv("API_URL"); v != "" {
		*apiURL = v
	}
	if v := os.Getenv("API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*apiTimeout = d
		}
	}
	if v := os.Getenv("FEED_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*pageSize = n
		}
	}
	if v := os.Getenv("FEED_AD_EVERY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*adEvery = n
		}
	}
	if v := os.Getenv("THREAD_REPLY_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*replyPageSize = n
		}
	}
	if v := os.Getenv("LIKE_STRATEGY"); v != "" {
		*strategy = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*cacheTTL = d
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*cacheBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("SESSION_BACKEND"); v != "" {
		*sessionBackend = v
	}
	if v := os.Getenv("SESSION_PATH"); v != "" {
		*sessionPath = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("SERVE"); v == "true" || v == "1" {
		*serve = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
}
