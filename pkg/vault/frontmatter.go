package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"vaultmcp/pkg/dto"
	"vaultmcp/pkg/utils"
)

type GetFrontmatterRequest struct {
	Path string `json:"path,omitempty" mcp:"Vault-relative path of the note"`
}

type SetFrontmatterFieldRequest struct {
	Path  string `json:"path,omitempty" mcp:"Vault-relative path of the note"`
	Field string `json:"field,omitempty" mcp:"Frontmatter field name to set"`
	Value string `json:"value,omitempty" mcp:"Value to assign to the field"`
}

func (vs *VaultServer) NewGetFrontmatterTool() {
	tool := mcp.NewTool(
		"get_frontmatter",
		mcp.WithDescription("Read the frontmatter fields of a note"),
		mcp.WithString("path", mcp.Description("Vault-relative path of the note"), mcp.Required()),
	)

	vs.McpServer.AddTool(tool, mcp.NewTypedToolHandler(vs.GetFrontmatter))
}

// GetFrontmatter parses the YAML frontmatter block of a note into a flat
// field map
func (vs *VaultServer) GetFrontmatter(ctx context.Context, req mcp.CallToolRequest, params GetFrontmatterRequest) (*mcp.CallToolResult, error) {
	path, err := utils.CleanVaultPath(params.Path)
	if err != nil {
		return nil, err
	}

	content, _, err := vs.client.GetFileContent(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read note: %w", err)
	}

	fields, _, ok := splitFrontmatter(content)
	out := dto.FrontmatterResult{
		Path:           path,
		Fields:         fields,
		HasFrontmatter: ok,
	}
	if out.Fields == nil {
		out.Fields = map[string]string{}
	}

	result, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(result)),
		},
	}, nil
}

func (vs *VaultServer) NewSetFrontmatterFieldTool() {
	tool := mcp.NewTool(
		"set_frontmatter_field",
		mcp.WithDescription("Set a single frontmatter field on a note"),
		mcp.WithString("path", mcp.Description("Vault-relative path of the note"), mcp.Required()),
		mcp.WithString("field", mcp.Description("Frontmatter field name to set"), mcp.Required()),
		mcp.WithString("value", mcp.Description("Value to assign to the field"), mcp.Required()),
	)

	vs.McpServer.AddTool(tool, mcp.NewTypedToolHandler(vs.SetFrontmatterField))
}

// SetFrontmatterField updates one frontmatter field through the vault API
func (vs *VaultServer) SetFrontmatterField(ctx context.Context, req mcp.CallToolRequest, params SetFrontmatterFieldRequest) (*mcp.CallToolResult, error) {
	path, err := utils.CleanVaultPath(params.Path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Field) == "" {
		return nil, fmt.Errorf("field must not be empty")
	}

	if err := vs.client.PatchFrontmatter(ctx, path, params.Field, params.Value); err != nil {
		return nil, fmt.Errorf("failed to set frontmatter field: %w", err)
	}

	_ = vs.cache.RefreshFile(ctx, path)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf("Set %s=%s on note: %s", params.Field, params.Value, path)),
		},
	}, nil
}

// splitFrontmatter separates a leading YAML frontmatter block from the note
// body. It handles flat "key: value" lines; nested structures are kept as
// raw text under their top-level key.
func splitFrontmatter(content string) (map[string]string, string, bool) {
	if !strings.HasPrefix(content, "---\n") && content != "---" {
		return nil, content, false
	}

	rest := strings.TrimPrefix(content, "---\n")
	endIdx := strings.Index(rest, "\n---")
	if endIdx < 0 {
		return nil, content, false
	}

	block := rest[:endIdx]
	body := rest[endIdx+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")

	fields := make(map[string]string)
	var currentKey string
	for _, line := range strings.Split(block, "\n") {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "- ") {
			// Continuation of a nested value, keep it attached raw.
			if currentKey != "" {
				if fields[currentKey] != "" {
					fields[currentKey] += " "
				}
				fields[currentKey] += strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
			}
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		currentKey = strings.TrimSpace(key)
		fields[currentKey] = strings.Trim(strings.TrimSpace(value), `"'`)
	}

	return fields, body, true
}
