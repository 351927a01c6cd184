package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

type CacheStatusRequest struct{}

type cacheStatus struct {
	Ready       bool   `json:"ready"`
	FileCount   int    `json:"file_count"`
	LastRebuild string `json:"last_rebuild,omitempty"`
}

func (vs *VaultServer) NewCacheStatusTool() {
	tool := mcp.NewTool(
		"cache_status",
		mcp.WithDescription("Report the state of the local vault content cache used as the search fallback"),
	)

	vs.McpServer.AddTool(tool, mcp.NewTypedToolHandler(vs.CacheStatus))
}

// CacheStatus reports readiness and size of the vault content cache
func (vs *VaultServer) CacheStatus(ctx context.Context, req mcp.CallToolRequest, params CacheStatusRequest) (*mcp.CallToolResult, error) {
	status := cacheStatus{
		Ready:     vs.cache.IsReady(),
		FileCount: len(vs.cache.Snapshot()),
	}
	if t := vs.cache.LastRebuild(); !t.IsZero() {
		status.LastRebuild = t.UTC().Format("2006-01-02 15:04:05")
	}

	result, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache status: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(result)),
		},
	}, nil
}
