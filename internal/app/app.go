package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/johnrirwin/socialfeed/internal/cache"
	"github.com/johnrirwin/socialfeed/internal/config"
	"github.com/johnrirwin/socialfeed/internal/crypto"
	"github.com/johnrirwin/socialfeed/internal/database"
	"github.com/johnrirwin/socialfeed/internal/feed"
	"github.com/johnrirwin/socialfeed/internal/gateway"
	"github.com/johnrirwin/socialfeed/internal/httpapi"
	"github.com/johnrirwin/socialfeed/internal/interaction"
	"github.com/johnrirwin/socialfeed/internal/logging"
	"github.com/johnrirwin/socialfeed/internal/models"
	"github.com/johnrirwin/socialfeed/internal/ratelimit"
	"github.com/johnrirwin/socialfeed/internal/session"
	"github.com/johnrirwin/socialfeed/internal/thread"
)

// App holds all application dependencies
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Cache      cache.Cache
	Session    *session.Session
	Gateway    *gateway.Client
	Composer   *feed.Composer
	Tracker    *interaction.Tracker
	Threads    *thread.Registry
	HTTPServer *httpapi.Server
	Identity   session.Identity

	db          *database.DB
	redisClient *redis.Client
	ownsRedis   bool
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	app.Logger = app.initLogger()
	app.Cache = app.initCache()

	app.initSession()

	app.Gateway = gateway.New(gateway.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
	}, app.Session, app.Logger)

	if err := app.initCore(); err != nil {
		return nil, err
	}

	app.HTTPServer = httpapi.New(app.Composer, app.Tracker, app.Threads, app.Session, app.Gateway, app.Logger)
	if limiter := app.initRefreshLimiter(); limiter != nil {
		app.HTTPServer.SetRefreshLimiter(limiter)
	}

	return app, nil
}

// Run starts the application in the appropriate mode
func (a *App) Run(ctx context.Context) error {
	if a.Config.Server.Serve {
		return a.runHTTPMode(ctx)
	}
	return a.runOnce(ctx)
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if a.Composer != nil {
		a.Composer.Close()
	}

	if a.Gateway != nil {
		if err := a.Gateway.Close(); err != nil {
			a.Logger.Error("Gateway close error", logging.WithField("error", err.Error()))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	switch c := a.Cache.(type) {
	case *cache.MemoryCache:
		c.Stop()
	case *cache.RedisCache:
		if err := c.Close(); err != nil {
			a.Logger.Error("Redis cache close error", logging.WithField("error", err.Error()))
		}
	}

	if a.ownsRedis && a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.Logger.Error("Redis session close error", logging.WithField("error", err.Error()))
		}
	}

	return nil
}

func (a *App) initLogger() *logging.Logger {
	return logging.New(logging.ParseLevel(a.Config.Logging.Level))
}

func (a *App) initCache() cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:   a.Config.Cache.RedisAddr,
			Prefix: "socialfeed:",
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		a.redisClient = redisCache.Client()
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}

func (a *App) initRefreshLimiter() ratelimit.RateLimiter {
	interval := a.Config.Feed.RefreshInterval
	if interval <= 0 {
		return nil
	}
	if a.redisClient != nil {
		a.Logger.Info("Using Redis for refresh rate limiting")
		return ratelimit.NewRedis(a.redisClient, "socialfeed:ratelimit:refresh:", interval)
	}
	return ratelimit.New(interval)
}

func (a *App) initSession() {
	store := a.initSessionStore()
	if secret := a.Config.Session.Secret; secret != "" {
		sealer, err := crypto.NewSealerFromPassphrase(secret)
		if err != nil {
			a.Logger.Warn("Failed to initialize token sealing - token will be stored in plaintext", logging.WithField("error", err.Error()))
		} else {
			store = session.NewSealedStore(store, sealer)
		}
	}
	a.Session = session.New(store, a.Logger)

	ctx := context.Background()
	if token := a.Config.Session.Token; token != "" {
		if err := a.Session.SetToken(ctx, token); err != nil {
			a.Logger.Warn("Failed to persist configured token", logging.WithField("error", err.Error()))
		}
	}

	identity, err := a.Session.User(ctx)
	switch {
	case err == nil:
		a.Identity = identity
		a.Logger.Info("Signed in", logging.WithFields(map[string]interface{}{
			"userId":   identity.UserID,
			"username": identity.Username,
		}))
	case errors.Is(err, session.ErrNoToken):
		a.Logger.Warn("No auth token; backend calls will be rejected until one is configured")
	default:
		a.Logger.Warn("Could not read identity from token", logging.WithField("error", err.Error()))
	}
}

func (a *App) initSessionStore() session.Store {
	cfg := a.Config.Session

	switch cfg.Backend {
	case "redis":
		client := a.redisClient
		if client == nil {
			client = redis.NewClient(&redis.Options{Addr: a.Config.Cache.RedisAddr})
			ctx, cancel := context.WithTimeout(context.Background(), a.Config.API.Timeout)
			defer cancel()
			if err := client.Ping(ctx).Err(); err != nil {
				_ = client.Close()
				a.Logger.Warn("Failed to connect to Redis, using file session store", logging.WithField("error", err.Error()))
				return a.fileStore()
			}
			a.redisClient = client
			a.ownsRedis = true
		}
		deviceID := cfg.DeviceID
		if deviceID == "" {
			deviceID = uuid.NewString()
			a.Logger.Warn("No device id configured, session will not survive restarts", logging.WithField("deviceId", deviceID))
		}
		a.Logger.Info("Using Redis session store", logging.WithField("deviceId", deviceID))
		return session.NewRedisStore(a.redisClient, deviceID)

	case "postgres":
		dbCfg := database.DefaultConfig()
		dbCfg.Host = cfg.Database.Host
		dbCfg.Port = cfg.Database.Port
		dbCfg.User = cfg.Database.User
		dbCfg.Password = cfg.Database.Password
		dbCfg.Database = cfg.Database.Database
		dbCfg.SSLMode = cfg.Database.SSLMode

		db, err := database.New(dbCfg)
		if err != nil {
			a.Logger.Warn("Failed to connect to PostgreSQL, using file session store", logging.WithField("error", err.Error()))
			return a.fileStore()
		}
		if err := db.Migrate(context.Background()); err != nil {
			_ = db.Close()
			a.Logger.Warn("Failed to run migrations, using file session store", logging.WithField("error", err.Error()))
			return a.fileStore()
		}
		a.db = db

		deviceID := cfg.DeviceID
		if deviceID == "" {
			deviceID = "default"
		}
		a.Logger.Info("Using PostgreSQL session store", logging.WithField("deviceId", deviceID))
		return database.NewSessionStore(db, deviceID)

	default:
		return a.fileStore()
	}
}

func (a *App) fileStore() session.Store {
	store, err := session.NewFileStore(a.Config.Session.Path)
	if err != nil {
		a.Logger.Warn("Failed to open session file, keeping session in memory", logging.WithFields(map[string]interface{}{
			"path":  a.Config.Session.Path,
			"error": err.Error(),
		}))
		return session.NewMemoryStore()
	}
	a.Logger.Info("Using file session store", logging.WithField("path", a.Config.Session.Path))
	return store
}

func (a *App) initCore() error {
	cfg := a.Config

	a.Composer = feed.New(a.Gateway, a.Cache, feed.Config{
		PageSize:         cfg.Feed.PageSize,
		AdEvery:          cfg.Feed.AdEvery,
		SuggestionsLimit: cfg.Feed.SuggestionsLimit,
		CacheTTL:         cfg.Cache.TTL,
	}, a.Logger)

	strategy, err := interaction.ParseStrategy(cfg.Interaction.Strategy)
	if err != nil {
		return err
	}
	a.Tracker = interaction.NewTracker(a.Gateway, a.Identity.UserID, strategy, a.Logger)

	a.Threads = thread.NewRegistry(a.Gateway, a.Identity.UserID, thread.Config{
		ReplyPageSize:       cfg.Thread.ReplyPageSize,
		DisclosureBlockSize: cfg.Thread.DisclosureBlockSize,
	}, a.Logger, thread.WithCountObserver(a.syncCommentCount))

	return nil
}

// syncCommentCount pushes a thread's comment count onto the feed card.
func (a *App) syncCommentCount(postID string, n int) {
	if r, ok := a.Tracker.Lookup(models.ItemPost, postID); ok {
		r.SetCommentsCount(n)
	}
}

func (a *App) runOnce(ctx context.Context) error {
	a.Logger.Info("Loading feed")
	if err := a.Composer.Load(ctx, nil); err != nil {
		return err
	}
	state := a.Composer.State()
	a.Logger.Info("Feed loaded", logging.WithFields(map[string]interface{}{
		"items":   len(state.Items),
		"posts":   state.Posts,
		"hasMore": state.HasMore,
	}))
	return nil
}

func (a *App) runHTTPMode(ctx context.Context) error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))

	go func() {
		a.Logger.Info("Loading feed in background...")
		if err := a.Composer.Load(ctx, nil); err != nil {
			a.Logger.Warn("Initial load failed", logging.WithField("error", err.Error()))
			return
		}
		a.Logger.Info("Initial load complete")
	}()

	if err := a.HTTPServer.Start(a.Config.Server.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
