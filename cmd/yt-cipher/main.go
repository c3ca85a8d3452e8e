package main

import (
	"log"
	"net/http"
	"os"

	"github.com/southctrl/yt-cipher/internal/api"
	"github.com/southctrl/yt-cipher/internal/cache"
	"github.com/southctrl/yt-cipher/internal/config"
	"github.com/southctrl/yt-cipher/internal/pool"
	"github.com/southctrl/yt-cipher/internal/solver"
	"github.com/southctrl/yt-cipher/internal/store"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("yt-cipher: starting",
		"listen_addr", cfg.ListenAddr(),
		"workers", cfg.Workers,
		"cache_dir", cfg.CacheDir,
		"db_path", cfg.DBPath,
	)

	if cfg.SolverScript == "" {
		log.Fatal("SOLVER_SCRIPT must point to the solver bundle")
	}
	if !cfg.AuthEnabled() {
		logger.Warn("API_BEARER_TOKEN is not set; authentication is disabled")
	}

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	players, err := cache.New(cfg.CacheDir, &http.Client{Timeout: cfg.FetchTimeout}, db, logger)
	if err != nil {
		log.Fatalf("failed to open player cache: %v", err)
	}

	prog, err := solver.CompileFile(cfg.SolverScript, cfg.SolverEntrypoint)
	if err != nil {
		log.Fatalf("failed to load solver: %v", err)
	}

	workers, err := pool.New(cfg.Workers, prog.Factory(logger), cfg.JobTimeout, db, logger)
	if err != nil {
		log.Fatalf("failed to start worker pool: %v", err)
	}
	defer workers.Close()

	srv := api.NewServer(cfg.ListenAddr(), db, players, workers, cfg.BearerToken, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
