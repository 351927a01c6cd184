package vault

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"vaultmcp/pkg/utils"
)

type ReadNoteRequest struct {
	Path string `json:"path,omitempty" mcp:"Vault-relative path of the note to read"`
}

func (vs *VaultServer) NewReadNoteTool() {
	tool := mcp.NewTool(
		"read_note",
		mcp.WithDescription("Read the contents of a note from the vault"),
		mcp.WithString("path", mcp.Description("Vault-relative path of the note"), mcp.Required()),
	)

	vs.McpServer.AddTool(tool, mcp.NewTypedToolHandler(vs.ReadNote))
}

// ReadNote reads the contents of a note
func (vs *VaultServer) ReadNote(ctx context.Context, req mcp.CallToolRequest, params ReadNoteRequest) (*mcp.CallToolResult, error) {
	path, err := utils.CleanVaultPath(params.Path)
	if err != nil {
		slog.Error("invalid note path", "path", params.Path, "error", err)
		return nil, err
	}

	content, stat, err := vs.client.GetFileContent(ctx, path)
	if err != nil {
		slog.Error("failed to read note", "path", path, "error", err)
		return nil, fmt.Errorf("failed to read note: %w", err)
	}

	header := fmt.Sprintf("%s (modified %s)\n\n", path, utils.FormatEpochMillis(stat.MTime))
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(header + content),
		},
	}, nil
}
