package config

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server-side settings
	DatabaseDSN    string `env:"DATABASE_URI"`
	AssetsDir      string `env:"ASSETS_DIR"`
	RateLimitRPS   int    `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int    `env:"RATE_LIMIT_BURST" envDefault:"100"`

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Client-side settings
	ServerURL string `env:"-"`
	DataDir   string `env:"KITE_DATA_DIR"`
	Version   bool   `env:"-"` // show client version and exit (flag only)
}

// NewConfig loads configuration from .env, environment and flags, in
// that order (flags override env only when set explicitly).
func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN (postgres URL or sqlite file path)")
	flag.StringVar(&cfg.AssetsDir, "assets", cfg.AssetsDir, "directory with the frontend bundle")
	// Shared/client flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "base URL of the note store (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS (client: prefer https scheme for BaseURL)")
	// Client flags
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the local note database and session file")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "show client version and exit")

	flag.Parse()

	cfg.ApplyDefaults()
	return cfg
}

// NewClientConfig loads configuration from .env and environment only.
// The client binary owns its flags, so no flag registration happens here.
func NewClientConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)
	cfg.ApplyDefaults()
	return cfg
}

var hostPortRe = regexp.MustCompile(`^[A-Za-z0-9.\-]+:\d{1,5}$`)

// ApplyDefaults validates and fills the derived/defaulted fields. Split
// out of NewConfig so tests can exercise it without touching flag state.
func (cfg *Config) ApplyDefaults() {
	// BaseURL must be "address:port" (no scheme, no path)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}

	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}

	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "kite.db"
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 50
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}

	if cfg.DataDir == "" {
		cfgDir, err := os.UserConfigDir()
		if err != nil {
			cfgDir = "."
		}
		cfg.DataDir = filepath.Join(cfgDir, "kite")
	}
}
