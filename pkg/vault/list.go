package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"vaultmcp/pkg/dto"
	"vaultmcp/pkg/utils"
)

type ListNotesRequest struct {
	Path      string `json:"path,omitempty" mcp:"Directory path (optional, defaults to vault root)"`
	Recursive bool   `json:"recursive,omitempty" mcp:"Whether to list recursively"`
}

func (vs *VaultServer) NewListNotesTool() {
	tool := mcp.NewTool(
		"list_notes",
		mcp.WithDescription("List notes and folders in a vault directory"),
		mcp.WithString("path", mcp.Description("Directory path (optional, defaults to vault root)")),
		mcp.WithBoolean("recursive", mcp.Description("Whether to list recursively")),
	)
	vs.McpServer.AddTool(tool, mcp.NewTypedToolHandler(vs.ListNotes))
}

// ListNotes lists notes in a vault directory
func (vs *VaultServer) ListNotes(ctx context.Context, req mcp.CallToolRequest, params ListNotesRequest) (*mcp.CallToolResult, error) {
	dir, err := utils.CleanVaultDir(params.Path)
	if err != nil {
		return nil, err
	}

	var notes []dto.NoteMetadata
	if params.Recursive {
		notes, err = vs.listRecursive(ctx, dir)
	} else {
		notes, err = vs.listDir(ctx, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	result, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notes list: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(result)),
		},
	}, nil
}

func (vs *VaultServer) listDir(ctx context.Context, dir string) ([]dto.NoteMetadata, error) {
	names, err := vs.client.ListFiles(ctx, dir)
	if err != nil {
		return nil, err
	}

	var notes []dto.NoteMetadata
	for _, name := range names {
		full := name
		if dir != "" {
			full = dir + "/" + name
		}

		if strings.HasSuffix(name, "/") {
			notes = append(notes, dto.NoteMetadata{
				Name:  strings.TrimRight(name, "/"),
				Path:  strings.TrimRight(full, "/"),
				IsDir: true,
			})
			continue
		}

		notes = append(notes, dto.NoteMetadata{
			Name: path.Base(full),
			Path: full,
		})
	}

	return notes, nil
}

func (vs *VaultServer) listRecursive(ctx context.Context, dir string) ([]dto.NoteMetadata, error) {
	names, err := vs.client.ListFiles(ctx, dir)
	if err != nil {
		return nil, err
	}

	var notes []dto.NoteMetadata
	for _, name := range names {
		full := name
		if dir != "" {
			full = dir + "/" + name
		}

		if strings.HasSuffix(name, "/") {
			children, err := vs.listRecursive(ctx, strings.TrimRight(full, "/"))
			if err != nil {
				// A subdirectory that fails to list costs us its subtree,
				// not the whole listing.
				continue
			}
			notes = append(notes, children...)
			continue
		}

		notes = append(notes, dto.NoteMetadata{
			Name: path.Base(full),
			Path: full,
		})
	}

	return notes, nil
}
