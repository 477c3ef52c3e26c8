// Package dispatch implements tool dispatch and lifecycle: wiring the
// embedding service, project locator, vector store, and crawler behind
// five MCP tools and running them over stdio.
//
// Grounded directly on the teacher's pkg/mcp/server.go: the same
// mcp.NewServer + mcp.AddTool + mcp.StdioTransport shape, with
// per-tool typed input/output structs in place of cagent's single
// "run an agent" tool. Construction mirrors createMCPServer's
// side-effect-free-until-Run discipline: New touches neither the network
// nor the embedding model, and the store is opened (not created) from
// its on-disk path, if any.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coderag/coderag/internal/version"
	"github.com/coderag/coderag/pkg/coderag/embed"
	"github.com/coderag/coderag/pkg/coderag/store"
	"github.com/coderag/coderag/pkg/coderag/types"
	"github.com/coderag/coderag/pkg/coderagerrors"
)

// Server bundles the tool dispatch surface: five MCP tools backed by one
// project's embedding service, store, and crawler.
type Server struct {
	mcp *mcp.Server

	embedder *embed.Service
	project  types.ProjectDescriptor
	store    *store.Store
}

// New constructs a Server scoped to descriptor's store path. Construction
// is side-effect-free: the embedding model is not touched until the
// first search_docs/crawl_docs call (or a manage_docs refresh, which
// re-crawls), and the store file is read if present but never created
// (a missing file just means an empty store, per pkg/coderag/store.Open).
func New(descriptor types.ProjectDescriptor, embedder *embed.Service) (*Server, error) {
	st, err := store.Open(descriptor.StorePath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		embedder: embedder,
		project:  descriptor,
		store:    st,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "coderag",
		Version: version.Version,
	}, nil)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_docs",
		Description: "Search indexed documentation for chunks relevant to a query.",
	}, s.handleSearchDocs)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_docs",
		Description: "List indexed documentation sources and their chunk counts.",
	}, s.handleListDocs)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "crawl_docs",
		Description: "Crawl a documentation site starting from a URL and index its content.",
	}, s.handleCrawlDocs)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "manage_docs",
		Description: "Delete, expire, or refresh indexed documentation chunks matching a URL or source target.",
	}, s.handleManageDocs)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reload_docs",
		Description: "Reload the index from disk, discarding unsaved in-memory changes.",
	}, s.handleReloadDocs)

	return s, nil
}

// Run serves tool calls over stdio until ctx is cancelled, mirroring the
// teacher's StartMCPServer.
func (s *Server) Run(ctx context.Context) error {
	slog.Debug("coderag MCP server starting", "store", s.project.StorePath)
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// wrapErr maps an internal coderagerrors.Error into an *mcp.CallToolResult
// IsError result rather than a transport-level failure, so a single
// failed chunk or fetch doesn't tear down the whole session.
func wrapErr(err error) (*mcp.CallToolResult, error) {
	msg := sanitizeError(err)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}, nil
}

// sanitizeError returns err's client-safe message, redacting the one
// taxonomy entry that embeds a raw internal identifier: a
// *coderagerrors.StorageIOError carries the absolute on-disk store path,
// which spec §7 forbids leaking to an RPC client.
func sanitizeError(err error) string {
	var storageErr *coderagerrors.StorageIOError
	if errors.As(err, &storageErr) {
		return fmt.Sprintf("storage I/O error: %v", storageErr.Cause)
	}
	return coderagerrors.Message(err)
}
