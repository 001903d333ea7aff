// Package mcpserver exposes the search core's two operations, search
// and get_more_search_results, as MCP tools over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/mailsearch/internal/search"
	"github.com/dshills/mailsearch/pkg/types"
)

const (
	// ServerName is the MCP server name.
	ServerName = "mailsearch"
	// ServerVersion is the current server version.
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the search engine and the in-memory
// table of in-flight SearchResults that get_more_search_results resumes.
// A SearchResult is both the response and the pagination cursor (spec
// §4.11), so all this layer keeps is a handle to hand back to the
// caller in place of re-serializing cursor state over the wire.
type Server struct {
	mcp    *server.MCPServer
	engine *search.Engine

	mu      sync.Mutex
	results map[string]*types.SearchResult
}

// NewServer creates a new MCP server instance around engine.
func NewServer(engine *search.Engine) (*Server, error) {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:     mcpServer,
		engine:  engine,
		results: make(map[string]*types.SearchResult),
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("mcpserver: register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() error {
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(getMoreSearchResultsTool(), s.handleGetMoreSearchResults)
	return nil
}

// putResult stores result under a fresh opaque id and returns it.
func (s *Server) putResult(result *types.SearchResult) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.results[id] = result
	s.mu.Unlock()
	return id
}

// getResult looks up a previously stored SearchResult by its handle.
func (s *Server) getResult(id string) (*types.SearchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[id]
	return result, ok
}
