// Package cache maintains an in-memory mirror of the remote vault's file
// contents. The mirror is rebuilt wholesale on a timer and patched one key
// at a time after write tools mutate a file. It exists so search can keep
// answering when the live REST API is slow or down.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"vaultmcp/pkg/obsidian"
	"vaultmcp/pkg/retry"
	"vaultmcp/pkg/vaulterr"
)

// VaultReader is the slice of the REST client the store needs.
type VaultReader interface {
	GetFileContent(ctx context.Context, path string) (string, obsidian.FileStat, error)
	ListFiles(ctx context.Context, dir string) ([]string, error)
}

// Entry is the cached mirror of one vault file. Content and both timestamps
// come from a single remote read and are never mixed across fetches.
type Entry struct {
	Path    string
	Content string
	MTime   int64
	CTime   int64
}

// DefaultRebuildInterval matches the upstream REST API cache behavior.
const DefaultRebuildInterval = 10 * time.Minute

// Store holds the vault mirror. The entry map is replaced, never mutated:
// a full rebuild swaps in a fresh map, and a single-file refresh clones the
// current map before touching one key. Readers therefore always see a
// complete snapshot.
type Store struct {
	client   VaultReader
	interval time.Duration

	entries     atomic.Pointer[map[string]Entry]
	ready       atomic.Bool
	lastRebuild atomic.Int64

	// writeMu serializes the clone-and-swap of single-key updates. A full
	// rebuild may interleave with a refresh; the last writer for a key wins.
	writeMu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStore creates a store backed by client. A non-positive interval falls
// back to DefaultRebuildInterval.
func NewStore(client VaultReader, interval time.Duration) *Store {
	if interval <= 0 {
		interval = DefaultRebuildInterval
	}
	s := &Store{
		client:   client,
		interval: interval,
	}
	empty := make(map[string]Entry)
	s.entries.Store(&empty)
	return s
}

// Init performs the first full rebuild. Unlike later periodic rebuilds, a
// failure here is surfaced so startup does not silently pretend the cache
// is usable. The store stays not-ready on error.
func (s *Store) Init(ctx context.Context) error {
	if err := s.Rebuild(ctx); err != nil {
		return fmt.Errorf("initial cache build: %w", err)
	}
	return nil
}

// Start launches the periodic rebuild loop. Rebuild failures are logged and
// the previous snapshot stays in place until the next successful pass.
func (s *Store) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Rebuild(ctx); err != nil {
					slog.Error("periodic cache rebuild failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the rebuild loop and waits for it to exit.
func (s *Store) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Rebuild walks the full remote tree into a fresh map and swaps it in.
// Per-file fetch failures are logged and skipped; only a failure to list
// the vault root aborts the rebuild.
func (s *Store) Rebuild(ctx context.Context) error {
	fresh := make(map[string]Entry)

	if err := s.walk(ctx, "", fresh, true); err != nil {
		return err
	}

	s.entries.Store(&fresh)
	s.ready.Store(true)
	s.lastRebuild.Store(time.Now().UnixMilli())
	slog.Info("vault cache rebuilt", "files", len(fresh))
	return nil
}

func (s *Store) walk(ctx context.Context, dir string, entries map[string]Entry, isRoot bool) error {
	names, err := retry.Do(ctx, "list_files", func(ctx context.Context) ([]string, error) {
		return s.client.ListFiles(ctx, dir)
	}, retry.Options{})
	if err != nil {
		if isRoot {
			return err
		}
		// A directory that vanished mid-walk only costs us its subtree.
		slog.Warn("skipping unlistable directory during rebuild", "dir", dir, "error", err)
		return nil
	}

	for _, name := range names {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		full := name
		if dir != "" {
			full = dir + "/" + name
		}

		if strings.HasSuffix(name, "/") {
			if err := s.walk(ctx, strings.TrimRight(full, "/"), entries, false); err != nil {
				return err
			}
			continue
		}

		entry, err := s.fetch(ctx, full)
		if err != nil {
			slog.Warn("skipping file during rebuild", "path", full, "error", err)
			continue
		}
		entries[full] = entry
	}

	return nil
}

func (s *Store) fetch(ctx context.Context, path string) (Entry, error) {
	return retry.Do(ctx, "get_file_content", func(ctx context.Context) (Entry, error) {
		content, stat, err := s.client.GetFileContent(ctx, path)
		if err != nil {
			return Entry{}, err
		}
		return Entry{
			Path:    path,
			Content: content,
			MTime:   stat.MTime,
			CTime:   stat.CTime,
		}, nil
	}, retry.Options{})
}

// RefreshFile re-fetches a single file after a write tool mutated it and
// upserts the cache entry; a NotFound fetch removes the entry instead. This
// is a best-effort side channel: the returned error is for logging only and
// callers are expected to ignore it rather than fail their own operation.
func (s *Store) RefreshFile(ctx context.Context, path string) error {
	entry, err := s.fetch(ctx, path)
	if err != nil {
		if vaulterr.IsNotFound(err) {
			s.delete(path)
			slog.Info("removed deleted file from cache", "path", path)
			return nil
		}
		slog.Warn("cache refresh failed", "path", path, "error", err)
		return err
	}

	s.upsert(entry)
	return nil
}

func (s *Store) upsert(entry Entry) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := *s.entries.Load()
	next := make(map[string]Entry, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[entry.Path] = entry
	s.entries.Store(&next)
}

func (s *Store) delete(path string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := *s.entries.Load()
	if _, ok := current[path]; !ok {
		return
	}
	next := make(map[string]Entry, len(current))
	for k, v := range current {
		if k != path {
			next[k] = v
		}
	}
	s.entries.Store(&next)
}

// Snapshot returns the current entry map. The map is immutable once
// published; callers must treat it as read-only.
func (s *Store) Snapshot() map[string]Entry {
	return *s.entries.Load()
}

// IsReady reports whether the first full rebuild has completed. An unready
// store must not be used as a search fallback: absence of entries would be
// indistinguishable from a genuine no-match result.
func (s *Store) IsReady() bool {
	return s.ready.Load()
}

// LastRebuild returns the completion time of the most recent full rebuild.
func (s *Store) LastRebuild() time.Time {
	ms := s.lastRebuild.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
