// Package mcp implements the MCP (Model Context Protocol) server for deskvault.
// Tools run against an already unlocked vault session; the session is locked
// when the server stops.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/deskvault/pkg/vault"
)

// Server represents the MCP server for deskvault.
type Server struct {
	server  *mcp.Server
	session *vault.Session
	policy  *Policy
	logger  *slog.Logger
}

// ServerOptions contains configuration options for the MCP server.
type ServerOptions struct {
	// PolicyDir is the directory searched for mcp-policy.yaml.
	// If empty, DefaultPolicy applies.
	PolicyDir string

	// Version is reported to clients.
	Version string

	Logger *slog.Logger
}

// NewServer creates a new MCP server over sess, which must be unlocked.
func NewServer(sess *vault.Session, opts *ServerOptions) (*Server, error) {
	if opts == nil {
		opts = &ServerOptions{}
	}
	if sess.State() != vault.StateUnlocked {
		return nil, fmt.Errorf("mcp server needs an unlocked vault (state %s)", sess.State())
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	policy := DefaultPolicy()
	if opts.PolicyDir != "" {
		loaded, err := LoadPolicy(opts.PolicyDir)
		switch {
		case err == nil:
			policy = loaded
		case errors.Is(err, ErrPolicyNotFound):
			logger.Debug("no MCP policy, using read-only defaults")
		default:
			// Policy load failure is not fatal - we operate in read-only mode
			logger.Warn("failed to load MCP policy, using read-only defaults", "err", err)
		}
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		server: mcp.NewServer(
			&mcp.Implementation{
				Name:    "deskvault",
				Version: version,
			},
			nil,
		),
		session: sess,
		policy:  policy,
		logger:  logger,
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "task_list",
		Description: "List kanban tasks. Optionally filter by status (backlog, in_progress, blocked, done), tag glob, owner or a text query.",
	}, s.handleTaskList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "task_add",
		Description: "Add a task. Status defaults to backlog and priority to B. Requires policy approval.",
	}, s.handleTaskAdd)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "task_move",
		Description: "Move a task to another status. The id may be a unique prefix of at least 4 characters. Requires policy approval.",
	}, s.handleTaskMove)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "note_list",
		Description: "List notes with their tags and size. Does NOT return note bodies; use note_get for that.",
	}, s.handleNoteList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "note_get",
		Description: "Get a single note including its markdown body.",
	}, s.handleNoteGet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "activity_list",
		Description: "List the most recent activity log entries, newest first.",
	}, s.handleActivityList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "goal_get",
		Description: "Get the primary goal and its progress percentage.",
	}, s.handleGoalGet)
}

// Run starts the MCP server using stdio transport.
func (s *Server) Run(ctx context.Context) error {
	defer s.session.Lock()

	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close locks the vault.
func (s *Server) Close() error {
	s.session.Lock()
	return nil
}

// authorize checks tool against the policy.
func (s *Server) authorize(tool string) error {
	if allowed, reason := s.policy.IsToolAllowed(tool); !allowed {
		s.logger.Warn("MCP tool denied", "tool", tool)
		return fmt.Errorf("%w: %s", ErrToolDenied, reason)
	}
	return nil
}
