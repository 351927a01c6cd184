package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"vaultmcp/pkg/obsidian"
	"vaultmcp/pkg/vaulterr"
)

// fakeVault simulates the remote vault with injectable failures.
type fakeVault struct {
	mu       sync.Mutex
	listings map[string][]string
	files    map[string]fakeFile
	listErr  map[string]error
	fileErr  map[string]error

	fetchCalls map[string]int
}

type fakeFile struct {
	content string
	stat    obsidian.FileStat
}

func newFakeVault() *fakeVault {
	return &fakeVault{
		listings:   make(map[string][]string),
		files:      make(map[string]fakeFile),
		listErr:    make(map[string]error),
		fileErr:    make(map[string]error),
		fetchCalls: make(map[string]int),
	}
}

func (f *fakeVault) addFile(path, content string, mtime int64) {
	f.files[path] = fakeFile{
		content: content,
		stat:    obsidian.FileStat{CTime: mtime - 1000, MTime: mtime, Size: int64(len(content))},
	}
}

func (f *fakeVault) GetFileContent(ctx context.Context, path string) (string, obsidian.FileStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls[path]++
	if err, ok := f.fileErr[path]; ok {
		return "", obsidian.FileStat{}, err
	}
	file, ok := f.files[path]
	if !ok {
		return "", obsidian.FileStat{}, vaulterr.New(vaulterr.KindNotFound, "get_file_content", path, errors.New("no such file"))
	}
	return file.content, file.stat, nil
}

func (f *fakeVault) ListFiles(ctx context.Context, dir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.listErr[dir]; ok {
		return nil, err
	}
	names, ok := f.listings[dir]
	if !ok {
		return nil, vaulterr.New(vaulterr.KindNotFound, "list_files", dir, errors.New("no such directory"))
	}
	return names, nil
}

func fastRetryStore(client VaultReader) *Store {
	return NewStore(client, time.Hour)
}

func TestInit_BuildsFullTree(t *testing.T) {
	fake := newFakeVault()
	fake.listings[""] = []string{"a.md", "notes/"}
	fake.listings["notes"] = []string{"b.md", "deep/"}
	fake.listings["notes/deep"] = []string{"c.md"}
	fake.addFile("a.md", "alpha", 1000)
	fake.addFile("notes/b.md", "bravo", 2000)
	fake.addFile("notes/deep/c.md", "charlie", 3000)

	store := fastRetryStore(fake)
	if store.IsReady() {
		t.Fatal("Store should not be ready before Init")
	}

	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if !store.IsReady() {
		t.Error("Store should be ready after Init")
	}
	if store.LastRebuild().IsZero() {
		t.Error("LastRebuild should be set after Init")
	}

	entries := store.Snapshot()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 cached files, got %d", len(entries))
	}

	entry, ok := entries["notes/deep/c.md"]
	if !ok {
		t.Fatal("Nested file missing from cache")
	}
	if entry.Content != "charlie" || entry.MTime != 3000 {
		t.Errorf("Unexpected entry: %+v", entry)
	}
	if entry.CTime != 2000 {
		t.Errorf("Expected ctime stored alongside mtime, got %d", entry.CTime)
	}
}

func TestInit_RootListFailureSurfaces(t *testing.T) {
	fake := newFakeVault()
	fake.listErr[""] = vaulterr.New(vaulterr.KindUnavailable, "list_files", "", errors.New("connection refused"))

	store := NewStore(fake, time.Hour)
	err := store.Init(context.Background())
	if err == nil {
		t.Fatal("Expected Init to fail when the vault root is unreachable")
	}
	if store.IsReady() {
		t.Error("Store must stay not-ready when the first build fails")
	}
}

func TestRebuild_SkipsFailingFiles(t *testing.T) {
	fake := newFakeVault()
	fake.listings[""] = []string{"good.md", "bad.md"}
	fake.addFile("good.md", "fine", 1000)
	fake.fileErr["bad.md"] = vaulterr.New(vaulterr.KindInternal, "get_file_content", "bad.md", errors.New("boom"))

	store := fastRetryStore(fake)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init should tolerate per-file failures: %v", err)
	}

	entries := store.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 cached file, got %d", len(entries))
	}
	if _, ok := entries["bad.md"]; ok {
		t.Error("Failing file should be absent from the cache")
	}
}

func TestRebuild_DropsDeletedFiles(t *testing.T) {
	fake := newFakeVault()
	fake.listings[""] = []string{"a.md", "b.md"}
	fake.addFile("a.md", "alpha", 1000)
	fake.addFile("b.md", "bravo", 2000)

	store := fastRetryStore(fake)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// b.md disappears from the remote vault.
	fake.mu.Lock()
	fake.listings[""] = []string{"a.md"}
	delete(fake.files, "b.md")
	fake.mu.Unlock()

	if err := store.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	entries := store.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 file after rebuild, got %d", len(entries))
	}
	if _, ok := entries["b.md"]; ok {
		t.Error("Deleted file should be dropped by the rebuild")
	}
}

func TestRefreshFile_UpsertsEntry(t *testing.T) {
	fake := newFakeVault()
	fake.listings[""] = []string{"a.md"}
	fake.addFile("a.md", "first", 1000)

	store := fastRetryStore(fake)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	fake.mu.Lock()
	fake.addFile("a.md", "second", 2000)
	fake.mu.Unlock()

	if err := store.RefreshFile(context.Background(), "a.md"); err != nil {
		t.Fatalf("RefreshFile failed: %v", err)
	}

	entry := store.Snapshot()["a.md"]
	if entry.Content != "second" || entry.MTime != 2000 {
		t.Errorf("Entry not refreshed: %+v", entry)
	}
}

func TestRefreshFile_IdempotentWhenUnchanged(t *testing.T) {
	fake := newFakeVault()
	fake.listings[""] = []string{"a.md"}
	fake.addFile("a.md", "stable", 1000)

	store := fastRetryStore(fake)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if err := store.RefreshFile(context.Background(), "a.md"); err != nil {
		t.Fatalf("First refresh failed: %v", err)
	}
	first := store.Snapshot()["a.md"]

	if err := store.RefreshFile(context.Background(), "a.md"); err != nil {
		t.Fatalf("Second refresh failed: %v", err)
	}
	second := store.Snapshot()["a.md"]

	if first != second {
		t.Errorf("Refreshing an unchanged file must be idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestRefreshFile_RemovesDeletedEntry(t *testing.T) {
	fake := newFakeVault()
	fake.listings[""] = []string{"a.md"}
	fake.addFile("a.md", "soon gone", 1000)

	store := fastRetryStore(fake)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	fake.mu.Lock()
	delete(fake.files, "a.md")
	fake.mu.Unlock()

	if err := store.RefreshFile(context.Background(), "a.md"); err != nil {
		t.Fatalf("RefreshFile for a deleted file should not report an error: %v", err)
	}

	if _, ok := store.Snapshot()["a.md"]; ok {
		t.Error("Entry for a deleted file should be removed, not left stale")
	}
}

func TestRefreshFile_FetchFailureKeepsOldEntry(t *testing.T) {
	fake := newFakeVault()
	fake.listings[""] = []string{"a.md"}
	fake.addFile("a.md", "original", 1000)

	store := fastRetryStore(fake)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	fake.mu.Lock()
	fake.fileErr["a.md"] = vaulterr.New(vaulterr.KindUnavailable, "get_file_content", "a.md", errors.New("down"))
	fake.mu.Unlock()

	if err := store.RefreshFile(context.Background(), "a.md"); err == nil {
		t.Error("Expected the refresh error to be reported for logging")
	}

	entry := store.Snapshot()["a.md"]
	if entry.Content != "original" {
		t.Errorf("A failed refresh must not clobber the existing entry: %+v", entry)
	}
}

func TestSnapshot_StableUnderConcurrentRefresh(t *testing.T) {
	fake := newFakeVault()
	var names []string
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("n%02d.md", i)
		names = append(names, name)
		fake.addFile(name, "content", int64(1000+i))
	}
	fake.listings[""] = names

	store := fastRetryStore(fake)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.RefreshFile(context.Background(), fmt.Sprintf("n%02d.md", i))
		}(i)
	}

	// Readers must always see a complete map while refreshes swap snapshots.
	for i := 0; i < 100; i++ {
		if got := len(store.Snapshot()); got != 50 {
			t.Fatalf("Snapshot observed a torn map with %d entries", got)
		}
	}
	wg.Wait()

	if got := len(store.Snapshot()); got != 50 {
		t.Fatalf("Expected 50 entries after refreshes, got %d", got)
	}
}
