package config

import (
	"io"
	"log/slog"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHost         = "0.0.0.0"
	defaultPort         = "8001"
	defaultCacheDir     = "player_cache"
	defaultDBPath       = "yt-cipher.db"
	defaultSolverEntry  = "main"
	defaultJobTimeout   = 30 * time.Second
	defaultFetchTimeout = 30 * time.Second

	envHost                = "HOST"
	envPort                = "PORT"
	envMaxThreads          = "MAX_THREADS"
	envBearerToken         = "API_BEARER_TOKEN"
	envCacheDir            = "CACHE_DIR"
	envDBPath              = "DB_PATH"
	envLogLevel            = "LOG_LEVEL"
	envSolverScript        = "SOLVER_SCRIPT"
	envSolverEntrypoint    = "SOLVER_ENTRYPOINT"
	envJobTimeoutSeconds   = "JOB_TIMEOUT_S"
	envFetchTimeoutSeconds = "FETCH_TIMEOUT_S"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Host             string
	Port             string
	Workers          int
	BearerToken      string
	CacheDir         string
	DBPath           string
	LogLevel         slog.Level
	SolverScript     string
	SolverEntrypoint string
	JobTimeout       time.Duration
	FetchTimeout     time.Duration
}

// ListenAddr returns the host:port pair the HTTP server binds to.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// AuthEnabled reports whether a bearer token is configured.
func (c Config) AuthEnabled() bool {
	return c.BearerToken != ""
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present; values
// already set in the environment win.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Host:             defaultHost,
		Port:             defaultPort,
		Workers:          defaultWorkers(),
		CacheDir:         defaultCacheDir,
		DBPath:           defaultDBPath,
		LogLevel:         slog.LevelInfo,
		SolverEntrypoint: defaultSolverEntry,
		JobTimeout:       defaultJobTimeout,
		FetchTimeout:     defaultFetchTimeout,
	}

	if v := os.Getenv(envHost); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv(envPort); v != "" {
		cfg.Port = v
	}
	if n := parsePositiveInt(os.Getenv(envMaxThreads)); n > 0 {
		cfg.Workers = n
	}
	cfg.BearerToken = os.Getenv(envBearerToken)
	if v := os.Getenv(envCacheDir); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	cfg.SolverScript = os.Getenv(envSolverScript)
	if v := os.Getenv(envSolverEntrypoint); v != "" {
		cfg.SolverEntrypoint = v
	}
	if n := parsePositiveInt(os.Getenv(envJobTimeoutSeconds)); n > 0 {
		cfg.JobTimeout = time.Duration(n) * time.Second
	}
	if n := parsePositiveInt(os.Getenv(envFetchTimeoutSeconds)); n > 0 {
		cfg.FetchTimeout = time.Duration(n) * time.Second
	}

	return cfg
}

// defaultWorkers returns the detected hardware parallelism, at least 1.
func defaultWorkers() int {
	return max(runtime.NumCPU(), 1)
}

// parsePositiveInt returns 0 for empty, malformed or non-positive input.
func parsePositiveInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
