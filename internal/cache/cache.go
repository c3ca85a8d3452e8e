package cache

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/sync/singleflight"

	"github.com/southctrl/yt-cipher/internal/model"
)

// MaxPlayerSize caps a decoded player script.
const MaxPlayerSize = 16 << 20

const (
	fileExt   = ".js"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// FetchError reports a non-2xx upstream response for a player script.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch player from %s: %s", e.URL, e.Status)
}

// ErrPlayerTooLarge is returned when a decoded player script exceeds the
// cache size limit.
var ErrPlayerTooLarge = errors.New("player script exceeds size limit")

// Manifest records persisted player scripts. It is satisfied by store.Store.
type Manifest interface {
	UpsertPlayer(ctx context.Context, p *model.PlayerEntry) error
}

// Cache is a disk-backed store of player scripts keyed by the SHA-256 of
// their URL. Entries are written once and never invalidated.
type Cache struct {
	dir      string
	client   *http.Client
	manifest Manifest
	logger   *slog.Logger
	group    singleflight.Group
	maxSize  int64
}

// New creates the cache directory if needed and returns a Cache rooted there.
// manifest may be nil.
func New(dir string, client *http.Client, manifest Manifest, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Cache{
		dir:      dir,
		client:   client,
		manifest: manifest,
		logger:   logger,
		maxSize:  MaxPlayerSize,
	}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Key returns the lowercase hex SHA-256 of url.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Path returns the file that holds the script for url.
func (c *Cache) Path(url string) string {
	return filepath.Join(c.dir, Key(url)+fileExt)
}

// Resolve returns the player script for url, fetching and persisting it on
// first use. Concurrent misses for the same url share one fetch.
func (c *Cache) Resolve(ctx context.Context, url string) ([]byte, error) {
	path := c.Path(url)

	data, err := os.ReadFile(path)
	if err == nil {
		cacheLookups.WithLabelValues(resultHit).Inc()
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read cached player: %w", err)
	}

	data, fetched, err := c.load(ctx, url, path)
	if fetched {
		cacheLookups.WithLabelValues(resultMiss).Inc()
	} else if err == nil {
		cacheLookups.WithLabelValues(resultHit).Inc()
	}
	return data, err
}

// flight is the shared result of one load.
type flight struct {
	data    []byte
	fetched bool
}

// load reads path again inside a single flight and fetches url only when it
// is still missing. fetched reports whether the upstream was contacted.
func (c *Cache) load(ctx context.Context, url, path string) ([]byte, bool, error) {
	v, err, shared := c.group.Do(path, func() (any, error) {
		// A previous flight may have finished between the read and Do.
		if data, err := os.ReadFile(path); err == nil {
			return flight{data: data}, nil
		}
		// Joined callers must not fail because the first caller went away.
		data, err := c.fetchAndStore(context.WithoutCancel(ctx), url, path)
		return flight{data: data, fetched: true}, err
	})
	if shared {
		c.logger.Debug("joined in-flight player load", "url", url)
	}
	f, _ := v.(flight)
	if err != nil {
		return nil, f.fetched, err
	}
	return f.data, f.fetched, nil
}

func (c *Cache) fetchAndStore(ctx context.Context, url, path string) ([]byte, error) {
	start := time.Now()
	data, err := c.fetch(ctx, url)
	fetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		fetchErrors.Inc()
		return nil, err
	}

	if err := writeAtomic(path, data); err != nil {
		return nil, fmt.Errorf("persist player: %w", err)
	}

	c.logger.Info("player cached",
		"url", url,
		"key", Key(url),
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if c.manifest != nil {
		entry := &model.PlayerEntry{
			Key:       Key(url),
			URL:       url,
			Size:      int64(len(data)),
			FetchedAt: time.Now().UTC(),
		}
		if err := c.manifest.UpsertPlayer(ctx, entry); err != nil {
			c.logger.Warn("record player in manifest", "key", entry.Key, "error", err)
		}
	}

	return data, nil
}

func (c *Cache) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build player request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch player: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var reader io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("open gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	data, err := io.ReadAll(io.LimitReader(reader, c.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read player body: %w", err)
	}
	if int64(len(data)) > c.maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes from %s", ErrPlayerTooLarge, c.maxSize, url)
	}
	return data, nil
}

// writeAtomic writes data next to path and renames it into place so readers
// never observe a partial file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
