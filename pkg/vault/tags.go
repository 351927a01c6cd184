package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"vaultmcp/pkg/dto"
	"vaultmcp/pkg/utils"
)

type ListTagsRequest struct {
	Path string `json:"path,omitempty" mcp:"Restrict the tag scan to paths under this prefix (optional)"`
}

func (vs *VaultServer) NewListTagsTool() {
	tool := mcp.NewTool(
		"list_tags",
		mcp.WithDescription("List all tags used across the vault with their note counts"),
		mcp.WithString("path", mcp.Description("Restrict the tag scan to paths under this prefix")),
	)

	vs.McpServer.AddTool(tool, mcp.NewTypedToolHandler(vs.ListTags))
}

var inlineTagPattern = regexp.MustCompile(`(?:^|\s)#([A-Za-z0-9_][A-Za-z0-9_/-]*)`)

// ListTags scans the cached vault contents for inline #tags and
// frontmatter tags
func (vs *VaultServer) ListTags(ctx context.Context, req mcp.CallToolRequest, params ListTagsRequest) (*mcp.CallToolResult, error) {
	if !vs.cache.IsReady() {
		return nil, fmt.Errorf("the vault cache is still warming up, try again shortly")
	}

	prefix := params.Path
	if prefix != "" {
		cleaned, err := utils.CleanVaultDir(prefix)
		if err != nil {
			return nil, err
		}
		prefix = cleaned
	}

	counts := make(map[string]int)
	for path, entry := range vs.cache.Snapshot() {
		if prefix != "" && !strings.HasPrefix(path, prefix) {
			continue
		}

		seen := make(map[string]bool)
		for _, tag := range extractTags(entry.Content) {
			if !seen[tag] {
				seen[tag] = true
				counts[tag]++
			}
		}
	}

	tags := make([]dto.TagCount, 0, len(counts))
	for tag, count := range counts {
		tags = append(tags, dto.TagCount{Tag: tag, Count: count})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})

	result, err := json.MarshalIndent(tags, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tag list: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(result)),
		},
	}, nil
}

// extractTags collects inline #tags from the note body and tag values from
// the frontmatter block.
func extractTags(content string) []string {
	var tags []string

	body := content
	if fields, rest, ok := splitFrontmatter(content); ok {
		body = rest
		if raw, found := fields["tags"]; found {
			for _, t := range strings.FieldsFunc(raw, func(r rune) bool {
				return r == ',' || r == '[' || r == ']' || r == ' '
			}) {
				t = strings.Trim(t, `"'#`)
				if t != "" {
					tags = append(tags, t)
				}
			}
		}
	}

	for _, m := range inlineTagPattern.FindAllStringSubmatch(body, -1) {
		tags = append(tags, m[1])
	}

	return tags
}
