// Package vault contains the MCP tool implementations for a remote
// Obsidian vault reached through its local REST API.
package vault

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"vaultmcp/pkg/cache"
	"vaultmcp/pkg/dto"
	"vaultmcp/pkg/obsidian"
	"vaultmcp/pkg/search"
)

// VaultClient is the set of remote operations the tools consume.
type VaultClient interface {
	GetFileContent(ctx context.Context, path string) (string, obsidian.FileStat, error)
	ListFiles(ctx context.Context, dir string) ([]string, error)
	PutFileContent(ctx context.Context, path, content string) error
	AppendFileContent(ctx context.Context, path, content string) error
	DeleteFile(ctx context.Context, path string) error
	PatchFrontmatter(ctx context.Context, path, field, value string) error
}

// VaultCache is the store handle the tools need: best-effort refresh after
// writes plus the read side used by the tag and status tools.
type VaultCache interface {
	RefreshFile(ctx context.Context, path string) error
	IsReady() bool
	Snapshot() map[string]cache.Entry
	LastRebuild() time.Time
}

// Searcher answers vault-wide search requests.
type Searcher interface {
	Search(ctx context.Context, params search.Params) (*dto.GlobalSearchResponse, error)
}

type VaultServer struct {
	ctx       context.Context
	McpServer *server.MCPServer
	client    VaultClient
	cache     VaultCache
	search    Searcher
}

func NewVaultServer(ctx context.Context, client VaultClient, cacheStore VaultCache, engine Searcher) *VaultServer {
	vs := &VaultServer{
		ctx:    ctx,
		client: client,
		cache:  cacheStore,
		search: engine,
	}

	vs.McpServer = server.NewMCPServer("vault-server", "v1.0.0", server.WithToolCapabilities(true))
	vs.addTools()

	return vs
}

// addTools adds all the tools to the server
func (vs *VaultServer) addTools() {
	vs.NewReadNoteTool()
	vs.NewWriteNoteTool()
	vs.NewAppendNoteTool()
	vs.NewDeleteNoteTool()
	vs.NewListNotesTool()
	vs.NewSearchVaultTool()
	vs.NewListTagsTool()
	vs.NewGetFrontmatterTool()
	vs.NewSetFrontmatterFieldTool()
	vs.NewCacheStatusTool()
}
