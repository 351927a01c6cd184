package vault

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"vaultmcp/pkg/utils"
)

type WriteNoteRequest struct {
	Path    string `json:"path,omitempty" mcp:"Vault-relative path of the note to write"`
	Content string `json:"content,omitempty" mcp:"Text content to write to the note"`
}

type AppendNoteRequest struct {
	Path    string `json:"path,omitempty" mcp:"Vault-relative path of the note to append to"`
	Content string `json:"content,omitempty" mcp:"Text content to append to the end of the note"`
}

type DeleteNoteRequest struct {
	Path string `json:"path,omitempty" mcp:"Vault-relative path of the note to delete"`
}

func (vs *VaultServer) NewWriteNoteTool() {
	tool := mcp.NewTool(
		"write_note",
		mcp.WithDescription("Create or replace a note in the vault"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Vault-relative path of the note to write"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Text content to write to the note"),
		),
	)

	vs.McpServer.AddTool(tool, mcp.NewTypedToolHandler(vs.WriteNote))
}

// WriteNote writes content to a note
func (vs *VaultServer) WriteNote(ctx context.Context, req mcp.CallToolRequest, params WriteNoteRequest) (*mcp.CallToolResult, error) {
	path, err := utils.CleanVaultPath(params.Path)
	if err != nil {
		return nil, err
	}

	if err := vs.client.PutFileContent(ctx, path, params.Content); err != nil {
		return nil, fmt.Errorf("failed to write note: %w", err)
	}

	// Best-effort: the write already succeeded, a stale cache entry only
	// degrades the search fallback until the next rebuild.
	_ = vs.cache.RefreshFile(ctx, path)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf("Successfully wrote note: %s", path)),
		},
	}, nil
}

func (vs *VaultServer) NewAppendNoteTool() {
	tool := mcp.NewTool(
		"append_note",
		mcp.WithDescription("Append content to the end of a note, creating it if missing"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Vault-relative path of the note to append to"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Text content to append to the note"),
		),
	)

	vs.McpServer.AddTool(tool, mcp.NewTypedToolHandler(vs.AppendNote))
}

// AppendNote writes content to the end of an existing note
func (vs *VaultServer) AppendNote(ctx context.Context, req mcp.CallToolRequest, params AppendNoteRequest) (*mcp.CallToolResult, error) {
	path, err := utils.CleanVaultPath(params.Path)
	if err != nil {
		return nil, err
	}

	if err := vs.client.AppendFileContent(ctx, path, params.Content); err != nil {
		return nil, fmt.Errorf("failed to append to note: %w", err)
	}

	_ = vs.cache.RefreshFile(ctx, path)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf("Successfully appended to note: %s", path)),
		},
	}, nil
}

func (vs *VaultServer) NewDeleteNoteTool() {
	tool := mcp.NewTool(
		"delete_note",
		mcp.WithDescription("Delete a note from the vault"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Vault-relative path of the note to delete"),
		),
	)

	vs.McpServer.AddTool(tool, mcp.NewTypedToolHandler(vs.DeleteNote))
}

// DeleteNote removes a note from the vault
func (vs *VaultServer) DeleteNote(ctx context.Context, req mcp.CallToolRequest, params DeleteNoteRequest) (*mcp.CallToolResult, error) {
	path, err := utils.CleanVaultPath(params.Path)
	if err != nil {
		return nil, err
	}

	if err := vs.client.DeleteFile(ctx, path); err != nil {
		return nil, fmt.Errorf("failed to delete note: %w", err)
	}

	// The refresh sees NotFound for the deleted file and drops the entry.
	_ = vs.cache.RefreshFile(ctx, path)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf("Successfully deleted note: %s", path)),
		},
	}, nil
}
