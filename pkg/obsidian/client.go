// Package obsidian is an HTTP client for the Obsidian Local REST API. All
// failures are classified into vaulterr kinds so callers can decide retry
// and fallback behavior without inspecting messages.
package obsidian

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"vaultmcp/pkg/vaulterr"
)

// FileStat mirrors the stat block of the REST API's note representation.
// Timestamps are milliseconds since epoch.
type FileStat struct {
	CTime int64 `json:"ctime"`
	MTime int64 `json:"mtime"`
	Size  int64 `json:"size"`
}

// noteJSON is the application/vnd.olrapi.note+json representation.
type noteJSON struct {
	Content     string         `json:"content"`
	Path        string         `json:"path"`
	Stat        FileStat       `json:"stat"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter"`
}

// MatchSpan is the position of a match within its context snippet as
// reported by the simple search endpoint.
type MatchSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type SimpleSearchMatch struct {
	Context string    `json:"context"`
	Match   MatchSpan `json:"match"`
}

type SimpleSearchResult struct {
	Filename string              `json:"filename"`
	Matches  []SimpleSearchMatch `json:"matches"`
	Score    float64             `json:"score"`
}

type listFilesResponse struct {
	Files []string `json:"files"`
}

// Client talks to a single Obsidian Local REST API endpoint. Requests are
// rate limited so a full cache rebuild does not starve interactive tools.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client for the REST API at baseURL authenticated with
// the given bearer token.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(20), 5),
	}
}

func (c *Client) do(ctx context.Context, op, target string, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classifyTransport(op, target, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(op, target, err)
	}
	return resp, nil
}

// GetFileContent fetches a note's full content together with its stat block.
// Content and stat come from the same response, so they are always from a
// single point in time.
func (c *Client) GetFileContent(ctx context.Context, path string) (string, FileStat, error) {
	const op = "get_file_content"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.vaultURL(path), nil)
	if err != nil {
		return "", FileStat{}, vaulterr.New(vaulterr.KindInternal, op, path, err)
	}
	req.Header.Set("Accept", "application/vnd.olrapi.note+json")

	resp, err := c.do(ctx, op, path, req)
	if err != nil {
		return "", FileStat{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", FileStat{}, classifyStatus(op, path, resp)
	}

	var note noteJSON
	if err := json.NewDecoder(resp.Body).Decode(&note); err != nil {
		return "", FileStat{}, vaulterr.New(vaulterr.KindInternal, op, path, fmt.Errorf("decode note: %w", err))
	}

	return note.Content, note.Stat, nil
}

// ListFiles lists the entries of a vault directory. Subdirectories keep
// their trailing slash so callers can tell them apart from files. Pass ""
// for the vault root.
func (c *Client) ListFiles(ctx context.Context, dir string) ([]string, error) {
	const op = "list_files"

	target := c.baseURL + "/vault/"
	if dir != "" {
		target = c.baseURL + "/vault/" + escapePath(strings.TrimRight(dir, "/")) + "/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, vaulterr.New(vaulterr.KindInternal, op, dir, err)
	}

	resp, err := c.do(ctx, op, dir, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(op, dir, resp)
	}

	var listing listFilesResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, vaulterr.New(vaulterr.KindInternal, op, dir, fmt.Errorf("decode listing: %w", err))
	}

	return listing.Files, nil
}

// SearchSimple runs the REST API's text search. The response reports the
// match position inside each context snippet, but not the matched text or
// any absolute file offset.
func (c *Client) SearchSimple(ctx context.Context, query string, contextLength int) ([]SimpleSearchResult, error) {
	const op = "search_simple"

	params := url.Values{}
	params.Set("query", query)
	params.Set("contextLength", fmt.Sprintf("%d", contextLength))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search/simple/?"+params.Encode(), nil)
	if err != nil {
		return nil, vaulterr.New(vaulterr.KindInternal, op, query, err)
	}

	resp, err := c.do(ctx, op, query, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(op, query, resp)
	}

	var results []SimpleSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, vaulterr.New(vaulterr.KindInternal, op, query, fmt.Errorf("decode search results: %w", err))
	}

	return results, nil
}

// PutFileContent creates or replaces a note.
func (c *Client) PutFileContent(ctx context.Context, path, content string) error {
	return c.writeRequest(ctx, "put_file_content", http.MethodPut, path, content)
}

// AppendFileContent appends to a note, creating it when missing.
func (c *Client) AppendFileContent(ctx context.Context, path, content string) error {
	return c.writeRequest(ctx, "append_file_content", http.MethodPost, path, content)
}

// DeleteFile removes a note from the vault.
func (c *Client) DeleteFile(ctx context.Context, path string) error {
	const op = "delete_file"

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.vaultURL(path), nil)
	if err != nil {
		return vaulterr.New(vaulterr.KindInternal, op, path, err)
	}

	resp, err := c.do(ctx, op, path, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return classifyStatus(op, path, resp)
	}
	return nil
}

// PatchFrontmatter sets a single frontmatter field on a note through the
// REST API's PATCH targeting headers.
func (c *Client) PatchFrontmatter(ctx context.Context, path, field, value string) error {
	const op = "patch_frontmatter"

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.vaultURL(path), strings.NewReader(value))
	if err != nil {
		return vaulterr.New(vaulterr.KindInternal, op, path, err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Operation", "replace")
	req.Header.Set("Target-Type", "frontmatter")
	req.Header.Set("Target", field)
	req.Header.Set("Create-Target-If-Missing", "true")

	resp, err := c.do(ctx, op, path, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return classifyStatus(op, path, resp)
	}
	return nil
}

func (c *Client) writeRequest(ctx context.Context, op, method, path, content string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.vaultURL(path), bytes.NewReader([]byte(content)))
	if err != nil {
		return vaulterr.New(vaulterr.KindInternal, op, path, err)
	}
	req.Header.Set("Content-Type", "text/markdown")

	resp, err := c.do(ctx, op, path, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusCreated {
		return classifyStatus(op, path, resp)
	}
	return nil
}

func (c *Client) vaultURL(path string) string {
	return c.baseURL + "/vault/" + escapePath(path)
}

// escapePath escapes each segment of a vault-relative path while keeping
// the separators intact.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func classifyStatus(op, target string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	kind := vaulterr.KindInternal
	switch {
	case resp.StatusCode == http.StatusNotFound:
		kind = vaulterr.KindNotFound
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusMethodNotAllowed:
		kind = vaulterr.KindBadRequest
	case resp.StatusCode == http.StatusServiceUnavailable ||
		resp.StatusCode == http.StatusBadGateway ||
		resp.StatusCode == http.StatusGatewayTimeout:
		kind = vaulterr.KindUnavailable
	}

	return vaulterr.New(kind, op, target, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
}

func classifyTransport(op, target string, err error) error {
	kind := vaulterr.KindUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		kind = vaulterr.KindTimeout
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		kind = vaulterr.KindTimeout
	}
	return vaulterr.New(kind, op, target, err)
}
