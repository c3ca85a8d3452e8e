package store

import (
	"context"

	"github.com/southctrl/yt-cipher/internal/model"
)

// JobStats holds aggregate job execution statistics.
type JobStats struct {
	Total         int            `json:"total"`
	CountByStatus map[string]int `json:"count_by_status"`
	CountByWorker map[int]int    `json:"count_by_worker"`
	AvgWaitMS     float64        `json:"avg_wait_ms"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// Store defines the persistence operations for job history and the player
// cache manifest.
type Store interface {
	RecordJob(ctx context.Context, j *model.JobRecord) error
	GetJob(ctx context.Context, id string) (*model.JobRecord, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*model.JobRecord, int, error)
	GetJobStats(ctx context.Context) (*JobStats, error)
	UpsertPlayer(ctx context.Context, p *model.PlayerEntry) error
	ListPlayers(ctx context.Context) ([]*model.PlayerEntry, error)
	Close() error
}
