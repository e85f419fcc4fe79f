package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"testing"
	"time"
)

func loadWithArgs(t *testing.T, args ...string) *Config {
	t.Helper()

	if len(args) == 0 {
		args = []string{"test"}
	}

	oldCommandLine := flag.CommandLine
	oldArgs := os.Args

	flag.CommandLine = flag.NewFlagSet(args[0], flag.ContinueOnError)
	flag.CommandLine.SetOutput(io.Discard)
	os.Args = args

	t.Cleanup(func() {
		flag.CommandLine = oldCommandLine
		os.Args = oldArgs
	})

	return Load()
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadWithArgs(t, "test")

	if cfg.Feed.PageSize != 10 {
		t.Errorf("Feed.PageSize = %d, want 10", cfg.Feed.PageSize)
	}
	if cfg.Feed.AdEvery != 3 {
		t.Errorf("Feed.AdEvery = %d, want 3", cfg.Feed.AdEvery)
	}
	if cfg.Thread.ReplyPageSize != 4 {
		t.Errorf("Thread.ReplyPageSize = %d, want 4", cfg.Thread.ReplyPageSize)
	}
	if cfg.Thread.DisclosureBlockSize != 5 {
		t.Errorf("Thread.DisclosureBlockSize = %d, want 5", cfg.Thread.DisclosureBlockSize)
	}
	if cfg.Interaction.Strategy != "fire-and-forget" {
		t.Errorf("Interaction.Strategy = %q, want fire-and-forget", cfg.Interaction.Strategy)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q, want memory", cfg.Cache.Backend)
	}
	if cfg.Feed.RefreshInterval != 2*time.Second {
		t.Errorf("Feed.RefreshInterval = %v, want 2s", cfg.Feed.RefreshInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_APIURL_TrimsTrailingSlash(t *testing.T) {
	t.Setenv("API_URL", "https://api.example.com/v1/")
	cfg := loadWithArgs(t, "test")
	if cfg.API.BaseURL != "https://api.example.com/v1" {
		t.Fatalf("API.BaseURL = %q", cfg.API.BaseURL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LIKE_STRATEGY", "Rollback")
	t.Setenv("FEED_PAGE_SIZE", "25")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("AUTH_TOKEN", "tok")

	cfg := loadWithArgs(t, "test")

	if cfg.Interaction.Strategy != "rollback" {
		t.Errorf("Interaction.Strategy = %q, want rollback", cfg.Interaction.Strategy)
	}
	if cfg.Feed.PageSize != 25 {
		t.Errorf("Feed.PageSize = %d, want 25", cfg.Feed.PageSize)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Cache.TTL = %v, want 30s", cfg.Cache.TTL)
	}
	if cfg.Session.Backend != "redis" {
		t.Errorf("Session.Backend = %q, want redis", cfg.Session.Backend)
	}
	if cfg.Session.Token != "tok" {
		t.Errorf("Session.Token = %q, want tok", cfg.Session.Token)
	}
}

func TestLoad_ServeFromFlag(t *testing.T) {
	t.Setenv("SERVE", "")
	cfg := loadWithArgs(t, "test", "-serve", "-http", ":9999")
	if !cfg.Server.Serve {
		t.Fatal("expected Serve=true when -serve is provided")
	}
	if cfg.Server.HTTPAddr != ":9999" {
		t.Errorf("Server.HTTPAddr = %q, want :9999", cfg.Server.HTTPAddr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.API.BaseURL = "" }},
		{"zero page size", func(c *Config) { c.Feed.PageSize = 0 }},
		{"zero ad interval", func(c *Config) { c.Feed.AdEvery = 0 }},
		{"zero reply page", func(c *Config) { c.Thread.ReplyPageSize = 0 }},
		{"bad strategy", func(c *Config) { c.Interaction.Strategy = "retry" }},
		{"bad session backend", func(c *Config) { c.Session.Backend = "sqlite" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadWithArgs(t, "test")
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
