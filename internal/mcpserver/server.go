// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes archive tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/algiz/internal/archive"
	"github.com/starford/algiz/internal/models"
)

const querySyntaxURI = "algiz://query-syntax"

// Server wraps the MCP server with archive tools.
type Server struct {
	mcp     *server.MCPServer
	archive *archive.Archive
}

// New creates a new MCP server with all archive tools registered.
func New(a *archive.Archive, version string) *Server {
	s := &Server{archive: a}

	s.mcp = server.NewMCPServer(
		"Algiz",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Select documents with a tag query. Read the syntax first via "+
			"the query_syntax tool or the "+querySyntaxURI+" resource."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Tag query, e.g. \"color:* -red\"; empty matches everything")),
		mcp.WithString("view", mcp.Description("Project the result: \"query\" for a new query view, or the name of a view to overwrite")),
		mcp.WithString("context", mcp.Description("Taxonym whose subtree tag names are resolved in")),
		mcp.WithBoolean("raw", mcp.Description("Include soft-deleted documents")),
	), s.search)

	s.mcp.AddTool(mcp.NewTool("list_views",
		mcp.WithDescription("List the names of all views."),
	), s.listViews)

	s.mcp.AddTool(mcp.NewTool("list_view",
		mcp.WithDescription("List the slots of a view in order. Missing slots are reported, not skipped."),
		mcp.WithString("name", mcp.Required(), mcp.Description("View name, e.g. main, in, query3")),
	), s.listView)

	s.mcp.AddTool(mcp.NewTool("append_to_view",
		mcp.WithDescription("Append a document to the end of a view."),
		mcp.WithString("name", mcp.Required(), mcp.Description("View name")),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Document id")),
	), s.appendToView)

	s.mcp.AddTool(mcp.NewTool("stash_view",
		mcp.WithDescription("Move the contents of a view into a new stash view and clear it."),
		mcp.WithString("name", mcp.Required(), mcp.Description("View name")),
	), s.stashView)

	s.mcp.AddTool(mcp.NewTool("reflect_view",
		mcp.WithDescription("Append the present slots of the source view onto the target view."),
		mcp.WithString("target", mcp.Required(), mcp.Description("View receiving the slots")),
		mcp.WithString("source", mcp.Required(), mcp.Description("View to copy from")),
	), s.reflectView)

	s.mcp.AddTool(mcp.NewTool("resolve_taxonym",
		mcp.WithDescription("Resolve a qualified, wildcard-capable taxonomy name to nodes."),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Name such as animal:* or red")),
		mcp.WithString("context", mcp.Description("Taxonym to resolve below (default: root)")),
	), s.resolveTaxonym)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Show a document with its tags, sources and blob path."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Document id")),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("ingest_data",
		mcp.WithDescription("Archive a file passed as a base64 data URI. The document lands in the in view."),
		mcp.WithString("data", mcp.Required(), mcp.Description("data:<media type>;base64,<payload>")),
		mcp.WithString("filename", mcp.Description("File name to record; derived from the media type when empty")),
	), s.ingestData)

	s.mcp.AddTool(mcp.NewTool("query_syntax",
		mcp.WithDescription("Returns the tag query language reference."),
	), s.querySyntax)

	s.mcp.AddResource(
		mcp.NewResource(querySyntaxURI, "Query Syntax",
			mcp.WithResourceDescription("Reference for the tag query language used by search."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readQuerySyntaxResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func requireID(req mcp.CallToolRequest) (int64, error) {
	f, err := req.RequireFloat("id")
	if err != nil {
		return 0, err
	}
	if f < 1 || f != float64(int64(f)) {
		return 0, fmt.Errorf("id must be a positive integer, got %v", f)
	}
	return int64(f), nil
}

type searchResult struct {
	Query     string            `json:"query"`
	View      string            `json:"view,omitempty"`
	Count     int               `json:"count"`
	Documents []models.Document `json:"documents"`
}

func (s *Server) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.archive.Search(ctx, text, archive.SearchOptions{
		Raw:     req.GetBool("raw", false),
		View:    req.GetString("view", ""),
		Context: req.GetString("context", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docs, err := s.archive.Documents(ctx, res.IDs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(searchResult{Query: res.Query, View: res.View, Count: len(docs), Documents: docs}), nil
}

func (s *Server) listViews(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.archive.Views().Names()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) listView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slots, err := s.archive.Views().List(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if slots == nil {
		slots = []models.Slot{}
	}
	return jsonResult(slots), nil
}

func (s *Server) appendToView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	idx, err := s.archive.Views().Append(ctx, name, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s/%d", name, idx)), nil
}

func (s *Server) stashView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stash, err := s.archive.Views().Stash(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(stash), nil
}

func (s *Server) reflectView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.archive.Views().Reflect(ctx, target, source)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("reflected %d slots from %s into %s", n, source, target)), nil
}

func (s *Server) resolveTaxonym(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.archive.Resolve(ctx, pattern, req.GetString("context", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no taxonyms found"), nil
	}
	lines := make([]string, len(hits))
	for i, h := range hits {
		lines[i] = fmt.Sprintf("%d\t%s", h.ID, h.Path)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.archive.Document(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d), nil
}

func (s *Server) querySyntax(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(QuerySyntax), nil
}

func (s *Server) readQuerySyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      querySyntaxURI,
			MIMEType: "text/markdown",
			Text:     QuerySyntax,
		},
	}, nil
}
