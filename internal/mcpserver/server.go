// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes mdstrip tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mdstrip/internal/apperr"
	"github.com/starford/mdstrip/internal/docservice"
	"github.com/starford/mdstrip/internal/rewrite"
)

const macroGrammarURI = "mdstrip://macro-grammar"

// Server wraps the MCP server with mdstrip tools.
type Server struct {
	mcp       *server.MCPServer
	svc       *docservice.Service
	assetsDir string
	fetch     *fetcher
}

// New creates a new MCP server with all mdstrip tools registered.
func New(svc *docservice.Service, assetsDir string) *Server {
	s := &Server{svc: svc, assetsDir: assetsDir, fetch: newFetcher()}

	s.mcp = server.NewMCPServer(
		"mdstrip",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("rewrite_markdown",
		mcp.WithDescription("Rewrite documentation macros in Markdown text into plain Markdown links. "+
			"Nothing is written to disk. Read get_macro_reference for the supported macros."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown text containing {{Macro(...)}} calls")),
		mcp.WithString("path", mcp.Description("Document path relative to the content root; controls relative links (default: root)")),
	), s.rewriteMarkdown)

	s.mcp.AddTool(mcp.NewTool("rewrite_file",
		mcp.WithDescription("Rewrite one Markdown file under the content root in place and record it in the ledger."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. learn/html/intro.md)")),
	), s.rewriteFile)

	s.mcp.AddTool(mcp.NewTool("list_missing_resources",
		mcp.WithDescription("List terms that resolved to the remote documentation site because no local resource exists, "+
			"most referenced first."),
		mcp.WithString("category", mcp.Description("Reference category: glossary (default) or api")),
	), s.listMissingResources)

	s.mcp.AddTool(mcp.NewTool("get_macro_reference",
		mcp.WithDescription("Returns the supported macro grammar and the Markdown each macro becomes."),
	), s.getMacroReference)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download an image (http/https URL or base64 data URI) into the assets directory. "+
			"Returns a markdownImage field ready to paste into a document."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
		mcp.WithString("document", mcp.Description("Optional document path; the image link is made relative to it")),
	), s.uploadAsset)

	s.mcp.AddResource(
		mcp.NewResource(macroGrammarURI, "Macro Grammar",
			mcp.WithResourceDescription("Supported documentation macros and their rewrites."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMacroGrammarResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) rewriteMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path := req.GetString("path", "")
	res := s.svc.RewriteText(ctx, path, content)
	return mcp.NewToolResultText(res.Text), nil
}

func (s *Server) rewriteFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.RewriteFile(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listMissingResources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", rewrite.CategoryGlossary)
	missing, err := s.svc.Missing(ctx, category)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(missing) == 0 {
		return mcp.NewToolResultText("no missing resources"), nil
	}
	out, _ := json.MarshalIndent(missing, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getMacroReference(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MacroReference), nil
}

func (s *Server) readMacroGrammarResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      macroGrammarURI,
			MIMEType: "text/markdown",
			Text:     MacroReference,
		},
	}, nil
}
