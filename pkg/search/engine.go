// Package search implements vault-wide search with an API-first strategy:
// the live REST search endpoint is attempted under a hard timeout, and the
// in-memory cache is scanned instead when the live path fails. Both paths
// produce the same response shape.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"vaultmcp/pkg/cache"
	"vaultmcp/pkg/dto"
	"vaultmcp/pkg/obsidian"
	"vaultmcp/pkg/retry"
	"vaultmcp/pkg/utils"
	"vaultmcp/pkg/vaulterr"
)

// SearchAPI is the slice of the REST client the engine needs.
type SearchAPI interface {
	SearchSimple(ctx context.Context, query string, contextLength int) ([]obsidian.SimpleSearchResult, error)
	GetFileContent(ctx context.Context, path string) (string, obsidian.FileStat, error)
}

// CacheReader exposes the read side of the vault cache store.
type CacheReader interface {
	IsReady() bool
	Snapshot() map[string]cache.Entry
}

// Params holds one search request. Zero values take the documented
// defaults; Query is mandatory.
type Params struct {
	Query             string
	PathPrefix        string
	ModifiedSince     string
	ModifiedUntil     string
	UseRegex          bool
	CaseSensitive     bool
	Page              int
	PageSize          int
	MaxMatchesPerFile int
	ContextLength     int
}

const (
	defaultPageSize          = 10
	defaultMaxMatchesPerFile = 5
	defaultContextLength     = 100

	// DefaultAPITimeout bounds the live search attempt, retries included.
	DefaultAPITimeout = 5 * time.Second

	apiSearchAttempts = 3
)

// Engine answers search requests from the live API or the cache fallback,
// never both for a single request.
type Engine struct {
	api        SearchAPI
	cache      CacheReader
	apiTimeout time.Duration
	now        func() time.Time
}

// NewEngine creates an engine over the given API client and cache store.
// A non-positive timeout falls back to DefaultAPITimeout.
func NewEngine(api SearchAPI, cacheStore CacheReader, apiTimeout time.Duration) *Engine {
	if apiTimeout <= 0 {
		apiTimeout = DefaultAPITimeout
	}
	return &Engine{
		api:        api,
		cache:      cacheStore,
		apiTimeout: apiTimeout,
		now:        time.Now,
	}
}

// Search runs one request end to end: validate, attempt the live API under
// a timeout, fall back to the cache scan when the live path fails, then
// sort and paginate whichever result set was produced.
func (e *Engine) Search(ctx context.Context, params Params) (*dto.GlobalSearchResponse, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, vaulterr.New(vaulterr.KindBadRequest, "search", params.Query, fmt.Errorf("query must not be empty"))
	}

	// Compile up front: a bad pattern must fail before any remote call.
	pattern, err := buildPattern(params.Query, params.UseRegex, params.CaseSensitive)
	if err != nil {
		return nil, vaulterr.New(vaulterr.KindBadRequest, "search", params.Query, err)
	}

	now := e.now()
	since, err := parseDateFilter(params.ModifiedSince, now)
	if err != nil {
		return nil, vaulterr.New(vaulterr.KindBadRequest, "search", params.ModifiedSince, err)
	}
	until, err := parseDateFilter(params.ModifiedUntil, now)
	if err != nil {
		return nil, vaulterr.New(vaulterr.KindBadRequest, "search", params.ModifiedUntil, err)
	}

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = defaultPageSize
	}
	if params.MaxMatchesPerFile <= 0 {
		params.MaxMatchesPerFile = defaultMaxMatchesPerFile
	}
	if params.ContextLength <= 0 {
		params.ContextLength = defaultContextLength
	}

	filter := resultFilter{prefix: params.PathPrefix, since: since, until: until}

	results, apiErr := e.searchViaAPI(ctx, params, filter)
	usedFallback := false
	if apiErr != nil {
		slog.Warn("live search failed, falling back to cache", "error", apiErr)
		if e.cache == nil || !e.cache.IsReady() {
			return nil, vaulterr.New(vaulterr.KindUnavailable, "search", params.Query,
				fmt.Errorf("live search failed and the vault cache is not ready: %w", apiErr))
		}
		results = e.searchViaCache(params, filter, pattern)
		usedFallback = true
	}

	return paginate(results, params, usedFallback), nil
}

type resultFilter struct {
	prefix string
	since  time.Time
	until  time.Time
}

func (f resultFilter) matchesPath(p string) bool {
	return f.prefix == "" || strings.HasPrefix(p, f.prefix)
}

func (f resultFilter) matchesMTime(ms int64) bool {
	t := time.UnixMilli(ms)
	if !f.since.IsZero() && t.Before(f.since) {
		return false
	}
	if !f.until.IsZero() && t.After(f.until) {
		return false
	}
	return true
}

// searchViaAPI races the retried live search call against a hard timeout.
// The losing side is abandoned: a late API response is discarded, never
// merged into the result set.
func (e *Engine) searchViaAPI(ctx context.Context, params Params, filter resultFilter) ([]dto.FileSearchResult, error) {
	type outcome struct {
		results []obsidian.SimpleSearchResult
		err     error
	}

	apiCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		res, err := retry.Do(apiCtx, "search_simple", func(ctx context.Context) ([]obsidian.SimpleSearchResult, error) {
			return e.api.SearchSimple(ctx, params.Query, params.ContextLength)
		}, retry.Options{MaxAttempts: apiSearchAttempts})
		done <- outcome{results: res, err: err}
	}()

	timer := time.NewTimer(e.apiTimeout)
	defer timer.Stop()

	var raw []obsidian.SimpleSearchResult
	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		raw = out.results
	case <-timer.C:
		return nil, vaulterr.New(vaulterr.KindTimeout, "search_simple", params.Query,
			fmt.Errorf("live search exceeded %s", e.apiTimeout))
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var results []dto.FileSearchResult
	for _, r := range raw {
		if !filter.matchesPath(r.Filename) {
			continue
		}

		// The simple-search response has no timestamps; stat each file to
		// apply the date filter and to report created/modified times. A
		// failed stat skips that file, not the whole request.
		_, stat, err := e.api.GetFileContent(ctx, r.Filename)
		if err != nil {
			slog.Warn("skipping search result, stat failed", "path", r.Filename, "error", err)
			continue
		}
		if !filter.matchesMTime(stat.MTime) {
			continue
		}

		matches := make([]dto.SearchMatch, 0, len(r.Matches))
		for _, m := range r.Matches {
			// The API reports a context snippet and a span, but not the
			// matched text itself; API-path matches stay snippet-only.
			matches = append(matches, dto.SearchMatch{Context: m.Context})
		}
		total := len(matches)
		if total > params.MaxMatchesPerFile {
			matches = matches[:params.MaxMatchesPerFile]
		}

		results = append(results, dto.FileSearchResult{
			Path:       r.Filename,
			Name:       path.Base(r.Filename),
			Created:    utils.FormatEpochMillis(stat.CTime),
			Modified:   utils.FormatEpochMillis(stat.MTime),
			MTime:      stat.MTime,
			MatchCount: total,
			Matches:    matches,
		})
	}

	return results, nil
}

// searchViaCache scans every cached entry with the in-process matcher.
// Cache-path matches carry the matched text and its snippet offset, which
// the live API cannot provide.
func (e *Engine) searchViaCache(params Params, filter resultFilter, pattern *regexp.Regexp) []dto.FileSearchResult {
	var results []dto.FileSearchResult

	for p, entry := range e.cache.Snapshot() {
		if !filter.matchesPath(p) {
			continue
		}
		if !filter.matchesMTime(entry.MTime) {
			continue
		}

		matches := scanContent(entry.Content, pattern, params.ContextLength)
		if len(matches) == 0 {
			continue
		}

		total := len(matches)
		if total > params.MaxMatchesPerFile {
			matches = matches[:params.MaxMatchesPerFile]
		}

		results = append(results, dto.FileSearchResult{
			Path:       p,
			Name:       path.Base(p),
			Created:    utils.FormatEpochMillis(entry.CTime),
			Modified:   utils.FormatEpochMillis(entry.MTime),
			MTime:      entry.MTime,
			MatchCount: total,
			Matches:    matches,
		})
	}

	return results
}

// paginate sorts the full filtered set by modification time (newest first),
// slices out the requested page, and computes totals from the pre-slice set.
func paginate(results []dto.FileSearchResult, params Params, usedFallback bool) *dto.GlobalSearchResponse {
	sort.Slice(results, func(i, j int) bool {
		if results[i].MTime != results[j].MTime {
			return results[i].MTime > results[j].MTime
		}
		return results[i].Path < results[j].Path
	})

	totalFiles := len(results)
	totalMatches := 0
	for _, r := range results {
		totalMatches += r.MatchCount
	}
	totalPages := int(math.Ceil(float64(totalFiles) / float64(params.PageSize)))

	start := (params.Page - 1) * params.PageSize
	end := start + params.PageSize
	if start > totalFiles {
		start = totalFiles
	}
	if end > totalFiles {
		end = totalFiles
	}
	page := results[start:end]

	var alsoFound []string
	if totalPages > 1 {
		seen := make(map[string]bool, totalFiles)
		for i, r := range results {
			if i >= start && i < end {
				continue
			}
			if !seen[r.Name] {
				seen[r.Name] = true
				alsoFound = append(alsoFound, r.Name)
			}
		}
	}

	source := "live search API"
	if usedFallback {
		source = "cached vault contents (live search unavailable)"
	}
	message := fmt.Sprintf("Found %d file(s) with %d match(es) via %s", totalFiles, totalMatches, source)

	if page == nil {
		page = []dto.FileSearchResult{}
	}

	return &dto.GlobalSearchResponse{
		Success:           true,
		Message:           message,
		Results:           page,
		TotalFilesFound:   totalFiles,
		TotalMatchesFound: totalMatches,
		Page:              params.Page,
		PageSize:          params.PageSize,
		TotalPages:        totalPages,
		AlsoFoundInFiles:  alsoFound,
	}
}
