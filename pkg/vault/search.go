package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"vaultmcp/pkg/search"
	"vaultmcp/pkg/utils"
)

type SearchVaultRequest struct {
	Query             string `json:"query,omitempty" mcp:"Text or regex to search for"`
	Path              string `json:"path,omitempty" mcp:"Restrict results to paths under this prefix (optional)"`
	ModifiedSince     string `json:"modified_since,omitempty" mcp:"Only include notes modified on or after this date (optional)"`
	ModifiedUntil     string `json:"modified_until,omitempty" mcp:"Only include notes modified on or before this date (optional)"`
	UseRegex          bool   `json:"use_regex,omitempty" mcp:"Treat the query as a regular expression"`
	CaseSensitive     bool   `json:"case_sensitive,omitempty" mcp:"Whether the search is case sensitive"`
	Page              int    `json:"page,omitempty" mcp:"Page number, 1-based (optional, default 1)"`
	PageSize          int    `json:"page_size,omitempty" mcp:"Number of files per page (optional, default 10)"`
	MaxMatchesPerFile int    `json:"max_matches_per_file,omitempty" mcp:"Maximum matches shown per file (optional, default 5)"`
	ContextLength     int    `json:"context_length,omitempty" mcp:"Characters of context around each match (optional, default 100)"`
}

func (vs *VaultServer) NewSearchVaultTool() {
	tool := mcp.NewTool(
		"search_vault",
		mcp.WithDescription("Search the whole vault for text or a regex, with date and path filters. Uses the live vault API and falls back to the local content cache when the API is unavailable"),
		mcp.WithString("query", mcp.Description("Text or regex to search for"), mcp.Required()),
		mcp.WithString("path", mcp.Description("Restrict results to paths under this prefix")),
		mcp.WithString("modified_since", mcp.Description("Only include notes modified on or after this date (ISO date or phrases like 'yesterday', '3 days ago')")),
		mcp.WithString("modified_until", mcp.Description("Only include notes modified on or before this date")),
		mcp.WithBoolean("use_regex", mcp.Description("Treat the query as a regular expression")),
		mcp.WithBoolean("case_sensitive", mcp.Description("Whether the search is case sensitive")),
		mcp.WithNumber("page", mcp.Description("Page number, 1-based")),
		mcp.WithNumber("page_size", mcp.Description("Number of files per page")),
		mcp.WithNumber("max_matches_per_file", mcp.Description("Maximum matches shown per file")),
		mcp.WithNumber("context_length", mcp.Description("Characters of context around each match")),
	)

	vs.McpServer.AddTool(tool, mcp.NewTypedToolHandler(vs.SearchVault))
}

// SearchVault performs a vault-wide search through the search engine
func (vs *VaultServer) SearchVault(ctx context.Context, req mcp.CallToolRequest, params SearchVaultRequest) (*mcp.CallToolResult, error) {
	prefix := params.Path
	if prefix != "" {
		cleaned, err := utils.CleanVaultDir(prefix)
		if err != nil {
			return nil, err
		}
		prefix = cleaned
	}

	response, err := vs.search.Search(ctx, search.Params{
		Query:             params.Query,
		PathPrefix:        prefix,
		ModifiedSince:     params.ModifiedSince,
		ModifiedUntil:     params.ModifiedUntil,
		UseRegex:          params.UseRegex,
		CaseSensitive:     params.CaseSensitive,
		Page:              params.Page,
		PageSize:          params.PageSize,
		MaxMatchesPerFile: params.MaxMatchesPerFile,
		ContextLength:     params.ContextLength,
	})
	if err != nil {
		slog.Error("vault search failed", "query", params.Query, "error", err)
		return nil, err
	}

	result, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search response: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(result)),
		},
	}, nil
}
