// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Codex archive to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/codex/internal/apperr"
	"github.com/starford/codex/internal/attachments"
	"github.com/starford/codex/internal/manuscriptservice"
)

const formatURI = "codex://manuscript-format"

// Server wraps the MCP server with Codex tools.
type Server struct {
	mcp *server.MCPServer
	svc *manuscriptservice.Service
	dir *attachments.Dir
}

// New creates an MCP server over svc. dir may be nil, in which case the
// upload_image tool is not registered.
func New(svc *manuscriptservice.Service, dir *attachments.Dir, version string) *Server {
	s := &Server{svc: svc, dir: dir}

	s.mcp = server.NewMCPServer(
		"Codex",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_manuscripts",
		mcp.WithDescription("Search manuscripts by text (title, content and tags, case-insensitive) and optionally by category or tag label."),
		mcp.WithString("query", mcp.Description("Search text; empty matches everything")),
		mcp.WithString("category", mcp.Description("Exact category or tag label")),
	), s.searchManuscripts)

	s.mcp.AddTool(mcp.NewTool("read_manuscript",
		mcp.WithDescription("Read one manuscript with its HTML content."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Manuscript id")),
	), s.readManuscript)

	s.mcp.AddTool(mcp.NewTool("create_manuscript",
		mcp.WithDescription("Append a manuscript written in Markdown. "+
			"Read the format first via get_manuscript_contract or the "+formatURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown document, optionally with YAML frontmatter")),
	), s.createManuscript)

	s.mcp.AddTool(mcp.NewTool("generate_manuscript",
		mcp.WithDescription("Ask the generation backend for a manuscript about a topic and append it."),
		mcp.WithString("topic", mcp.Description("Topic; defaults to \"Sabedoria Digital\"")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Tags to attach")),
	), s.generateManuscript)

	s.mcp.AddTool(mcp.NewTool("toggle_pin",
		mcp.WithDescription("Flip the pinned flag of a manuscript."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Manuscript id")),
	), s.togglePin)

	s.mcp.AddTool(mcp.NewTool("toggle_favorite",
		mcp.WithDescription("Flip the favorite flag of a manuscript."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Manuscript id")),
	), s.toggleFavorite)

	s.mcp.AddTool(mcp.NewTool("delete_manuscript",
		mcp.WithDescription("Delete a manuscript permanently."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Manuscript id")),
	), s.deleteManuscript)

	s.mcp.AddTool(mcp.NewTool("kanban_board",
		mcp.WithDescription("Group manuscripts into the kanban columns."),
	), s.kanbanBoard)

	s.mcp.AddTool(mcp.NewTool("share_manuscript",
		mcp.WithDescription("Build the share text and link of a manuscript for whatsapp, email, pdf, notion or keep."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Manuscript id")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Share target"),
			mcp.Enum("whatsapp", "email", "pdf", "notion", "keep")),
	), s.shareManuscript)

	s.mcp.AddTool(mcp.NewTool("get_manuscript_contract",
		mcp.WithDescription("Returns the Markdown format accepted by create_manuscript."),
	), s.getContract)

	if dir != nil {
		s.mcp.AddTool(mcp.NewTool("upload_image",
			mcp.WithDescription("Store an image from an http(s) URL or a base64 data URI. "+
				"Returns markup to paste into a manuscript body."),
			mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
			mcp.WithString("filename", mcp.Description("Optional file name; the extension must match the content")),
		), s.uploadImage)
	}

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Manuscript Format",
			mcp.WithResourceDescription("Markdown format accepted when creating manuscripts."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found"), nil
	}
	return mcp.NewToolResultError(err.Error()), nil
}

func (s *Server) searchManuscripts(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results := s.svc.List(req.GetString("query", ""), req.GetString("category", ""))
	if len(results) == 0 {
		return mcp.NewToolResultText("no manuscripts found"), nil
	}
	return jsonResult(results)
}

func (s *Server) readManuscript(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.Get(id)
	if err != nil {
		return errorResult(fmt.Errorf("%s: %w", id, err))
	}
	return jsonResult(m)
}

func (s *Server) createManuscript(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.Import([]byte(content))
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", m.ID)), nil
}

func (s *Server) generateManuscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.svc.Generate(ctx, req.GetString("topic", ""), req.GetStringSlice("tags", nil))
	if err != nil {
		if errors.Is(err, apperr.ErrGenerationFailed) {
			return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
		}
		return errorResult(err)
	}
	return jsonResult(m)
}

func (s *Server) togglePin(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.TogglePinned(id)
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s pinned: %t", id, m.Pinned())), nil
}

func (s *Server) toggleFavorite(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.ToggleFavorite(id)
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s favorite: %t", id, m.Favorite())), nil
}

func (s *Server) deleteManuscript(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(id); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) kanbanBoard(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Kanban())
}

func (s *Server) shareManuscript(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.Share(id, target)
	if err != nil {
		return errorResult(err)
	}
	p.Document = ""
	return jsonResult(p)
}

func (s *Server) uploadImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	saved, err := s.dir.Fetch(ctx, rawURL, req.GetString("filename", ""))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(saved)
}

func (s *Server) getContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ManuscriptFormat), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     ManuscriptFormat,
		},
	}, nil
}
