// testserver starts a yt-cipher API server with a stub solver and an
// in-memory player source for E2E testing. No network access is needed.
// Usage: go run ./cmd/testserver
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/southctrl/yt-cipher/internal/api"
	"github.com/southctrl/yt-cipher/internal/model"
	"github.com/southctrl/yt-cipher/internal/pool"
	"github.com/southctrl/yt-cipher/internal/solver"
	"github.com/southctrl/yt-cipher/internal/store"
)

const stubPlayer = "var cfg = {signatureTimestamp:20000}; // stub player"

// stubPlayers serves the same player script for every URL.
type stubPlayers struct{}

func (stubPlayers) Resolve(_ context.Context, _ string) ([]byte, error) {
	return []byte(stubPlayer), nil
}

// stubSolver reverses signature challenges and upper-cases n challenges
// after a fixed delay.
type stubSolver struct {
	delay time.Duration
}

func (s *stubSolver) Solve(ctx context.Context, in model.Input) (model.Output, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return model.Output{}, solver.ErrTimeout
		}
		return model.Output{}, ctx.Err()
	}

	out := model.Output{Type: model.OutputResult}
	for _, req := range in.Requests {
		data := make(map[string]string, len(req.Challenges))
		for _, c := range req.Challenges {
			if req.Type == model.KindSignature {
				data[c] = reverse(c)
			} else {
				data[c] = strings.ToUpper(c)
			}
		}
		out.Responses = append(out.Responses, model.Response{Type: model.OutputResult, Data: data})
	}
	return out, nil
}

func (s *stubSolver) Close() error { return nil }

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func main() {
	addr := ":8080"
	if v := os.Getenv("YTCIPHER_LISTEN_ADDR"); v != "" {
		addr = v
	}
	token := os.Getenv("API_BEARER_TOKEN")

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	factory := func(int) (solver.Solver, error) {
		return &stubSolver{delay: 200 * time.Millisecond}, nil
	}
	workers, err := pool.New(2, factory, 5*time.Second, db, logger)
	if err != nil {
		log.Fatalf("failed to start worker pool: %v", err)
	}
	defer workers.Close()

	srv := api.NewServer(addr, db, stubPlayers{}, workers, token, logger)

	logger.Info("testserver: starting", "addr", addr)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
