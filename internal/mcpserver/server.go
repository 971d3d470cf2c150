// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/proposal"
	"github.com/starford/ansuz/internal/reconcile"
)

// Options configures the MCP server. Sync may be nil.
type Options struct {
	Notes         *noteservice.Service
	Proposals     *proposal.Service
	Sync          *reconcile.Service
	DefaultUserID int64
	Logger        *slog.Logger
}

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp         *server.MCPServer
	notes       *noteservice.Service
	proposals   *proposal.Service
	sync        *reconcile.Service
	defaultUser int64
	logger      *slog.Logger
}

// New creates a new MCP server with all Ansuz tools registered.
func New(opts Options) *Server {
	s := &Server{
		notes:       opts.Notes,
		proposals:   opts.Proposals,
		sync:        opts.Sync,
		defaultUser: opts.DefaultUserID,
		logger:      opts.Logger,
	}
	if s.defaultUser <= 0 {
		s.defaultUser = 1
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	userOpt := mcp.WithNumber("user_id", mcp.Description("User to act for (defaults to the configured user)"))

	s.mcp.AddTool(mcp.NewTool("propose_text",
		mcp.WithDescription("Generate flashcard proposals from text. A [lang:xx] marker selects the card language. "+
			"Each proposal gets a handle used by decide_proposal and submit_feedback."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Source text")),
		userOpt,
	), s.proposeText)

	s.mcp.AddTool(mcp.NewTool("list_proposals",
		mcp.WithDescription("List proposals, newest last."),
		mcp.WithString("status", mcp.Description("Optional status filter"),
			mcp.Enum("pending", "approved", "rejected", "expired")),
		mcp.WithNumber("limit", mcp.Description("Keep only the newest N")),
		userOpt,
	), s.listProposals)

	s.mcp.AddTool(mcp.NewTool("decide_proposal",
		mcp.WithDescription("Approve or reject the pending proposal behind a handle. "+
			"Approved cards become notes and are pushed to Mochi when credentials are configured."),
		mcp.WithNumber("handle", mcp.Required(), mcp.Description("Proposal handle")),
		mcp.WithString("decision", mcp.Required(), mcp.Enum("approve", "reject")),
		userOpt,
	), s.decideProposal)

	s.mcp.AddTool(mcp.NewTool("submit_feedback",
		mcp.WithDescription("Revise the pending proposal behind a handle. Its pending siblings are replaced."),
		mcp.WithNumber("handle", mcp.Required(), mcp.Description("Proposal handle")),
		mcp.WithString("text", mcp.Required(), mcp.Description("What to change")),
		userOpt,
	), s.submitFeedback)

	s.mcp.AddTool(mcp.NewTool("sync_mochi",
		mcp.WithDescription("Reconcile local notes with the Mochi deck. A backup is written first."),
		mcp.WithString("action", mcp.Required(), mcp.Enum("push", "pull", "both", "repair")),
		userOpt,
	), s.syncMochi)

	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List ingested sources; the pending ones form the proposal queue."),
		mcp.WithString("status", mcp.Description("Optional status filter"),
			mcp.Enum("pending", "processed", "ignored")),
		mcp.WithNumber("limit", mcp.Description("Max results")),
		userOpt,
	), s.listSources)

	s.mcp.AddTool(mcp.NewTool("import_source",
		mcp.WithDescription("Queue a document as a pending source from an http(s) URL or a base64 data URI. "+
			"Markdown, HTML and plain text are supported."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data>")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
		userOpt,
	), s.importSource)

	s.mcp.AddTool(mcp.NewTool("get_card_format",
		mcp.WithDescription("Returns the card format and review workflow."),
	), s.getCardFormat)

	s.mcp.AddResource(
		mcp.NewResource(cardFormatURI, "Card Format",
			mcp.WithResourceDescription("Basic and cloze card rules plus the proposal workflow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCardFormatResource,
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

func (s *Server) user(req mcp.CallToolRequest) int64 {
	if id := req.GetInt("user_id", 0); id > 0 {
		return int64(id)
	}
	return s.defaultUser
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) proposeText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.proposals.ProposeText(ctx, s.user(req), text, "mcp")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

func (s *Server) listProposals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := models.ProposalStatus(req.GetString("status", ""))
	items, err := s.proposals.ListProposals(ctx, s.user(req), status, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

type decideResult struct {
	proposal.DecideResult
	Push      *reconcile.PushResult `json:"push,omitempty"`
	PushError string                `json:"push_error,omitempty"`
}

func (s *Server) decideProposal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handle, err := req.RequireInt("handle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("decision")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	decision := proposal.ParseDecision(raw)
	if decision == proposal.DecisionNone {
		return mcp.NewToolResultError(fmt.Sprintf("unknown decision %q", raw)), nil
	}

	uid := s.user(req)
	res, err := s.proposals.Decide(ctx, uid, int64(handle), decision)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !res.Applied {
		return mcp.NewToolResultError(fmt.Sprintf("no pending proposal for handle %d", handle)), nil
	}
	out := decideResult{DecideResult: res}
	if res.Note != nil && s.sync != nil {
		push, err := s.sync.PushNote(ctx, uid, *res.Note)
		switch {
		case err == nil:
			out.Push = &push
		case errors.Is(err, apperr.ErrMissingCredentials):
			out.PushError = err.Error()
		default:
			s.logger.Warn("mcp: push approved note failed", slog.Int64("user_id", uid), slog.String("error", err.Error()))
			out.PushError = err.Error()
		}
	}
	return jsonResult(out)
}

func (s *Server) submitFeedback(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handle, err := req.RequireInt("handle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.proposals.SubmitFeedback(ctx, s.user(req), int64(handle), text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

func (s *Server) syncMochi(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.sync == nil {
		return mcp.NewToolResultError("mochi sync is not configured"), nil
	}
	raw, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	action, err := reconcile.ParseAction(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rep, err := s.sync.Run(ctx, s.user(req), action)
	if err != nil {
		msg := err.Error()
		if rep.Summary != "" {
			msg += "\npartial: " + rep.Summary
		}
		return mcp.NewToolResultError(msg), nil
	}
	return mcp.NewToolResultText(rep.Summary), nil
}

func (s *Server) listSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.notes.ListSources(ctx, s.user(req), req.GetString("status", ""), req.GetInt("limit", 50))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) getCardFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CardFormat), nil
}

func (s *Server) readCardFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      cardFormatURI,
			MIMEType: "text/markdown",
			Text:     CardFormat,
		},
	}, nil
}
