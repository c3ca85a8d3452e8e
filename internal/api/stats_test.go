package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/southctrl/yt-cipher/internal/model"
)

func TestGetStatsEmpty(t *testing.T) {
	srv := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.Total != 0 {
		t.Errorf("total = %d, want 0", stats.Total)
	}
	if stats.AvgDurationMS != 0 {
		t.Errorf("avg_duration_ms = %f, want 0", stats.AvgDurationMS)
	}
	if stats.Pool.Size != 1 {
		t.Errorf("pool.workers = %d, want 1", stats.Pool.Size)
	}
}

func TestGetStatsPopulated(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for range 3 {
		if err := srv.store.RecordJob(ctx, makeJobRecord(model.StatusCompleted, 0, now)); err != nil {
			t.Fatalf("RecordJob: %v", err)
		}
	}
	failed := makeJobRecord(model.StatusFailed, 1, now)
	failed.Error = "malformed player"
	if err := srv.store.RecordJob(ctx, failed); err != nil {
		t.Fatalf("RecordJob: %v", err)
	}

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.Total != 4 {
		t.Errorf("total = %d, want 4", stats.Total)
	}
	if stats.ByStatus[model.StatusCompleted] != 3 {
		t.Errorf("by_status[completed] = %d, want 3", stats.ByStatus[model.StatusCompleted])
	}
	if stats.ByStatus[model.StatusFailed] != 1 {
		t.Errorf("by_status[failed] = %d, want 1", stats.ByStatus[model.StatusFailed])
	}
	if stats.ByWorker[0] != 3 || stats.ByWorker[1] != 1 {
		t.Errorf("by_worker = %v, want map[0:3 1:1]", stats.ByWorker)
	}
	if stats.AvgDurationMS != 100 {
		t.Errorf("avg_duration_ms = %f, want 100", stats.AvgDurationMS)
	}
}

func makeJobRecord(status string, workerID int, finished time.Time) *model.JobRecord {
	return &model.JobRecord{
		ID:         model.NewID(),
		Status:     status,
		PlayerURL:  "https://www.youtube.com/s/player/good/base.js",
		WorkerID:   workerID,
		SigCount:   1,
		WaitMS:     5,
		DurationMS: 100,
		QueuedAt:   finished.Add(-105 * time.Millisecond),
		StartedAt:  finished.Add(-100 * time.Millisecond),
		FinishedAt: finished,
	}
}
