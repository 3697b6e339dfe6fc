package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forest6511/deskvault/internal/mcp"
	"github.com/forest6511/deskvault/pkg/crypto"
	"github.com/forest6511/deskvault/pkg/store"
)

// version is reported to MCP clients; overridden at link time.
var version = "dev"

func init() {
	rootCmd.AddCommand(mcpServerCmd)
}

// mcpServerCmd starts the MCP server for AI assistant integration
var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Start the MCP server for AI assistant integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio that exposes the
vault's tasks, notes, activity and goal to an AI assistant.

Available tools:
  - task_list:      List tasks, filtered by status, tag, owner or text
  - task_add:       Add a task (requires policy approval)
  - task_move:      Move a task to another column (requires policy approval)
  - note_list:      List notes without their bodies
  - note_get:       Get one note including its body
  - activity_list:  Recent activity, newest first
  - goal_get:       The primary goal and its progress

Authentication:
  Set DESKVAULT_PASSWORD before starting the server. The password is read
  once and immediately cleared from the environment.

Policy:
  Create mcp-policy.yaml (mode 0600) in the vault directory to allow write
  tools. Without a policy file only read-only tools are available.

  version: 1
  default_action: deny
  allowed_tools: ["task_*", "note_*", "activity_list", "goal_get"]
  denied_tools: []`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := requireVault(ctx); err != nil {
			return err
		}
		// Stdin and stdout carry the protocol, so there is nothing to prompt on.
		password, ok := passwordFromEnv()
		if !ok {
			return fmt.Errorf("%s environment variable is required for mcp-server", envPassword)
		}
		err := unlockWith(ctx, password)
		crypto.SecureWipe(password)
		if err != nil {
			return err
		}

		var policyDir string
		if cfg.Store.Driver != store.DriverMemory {
			policyDir = filepath.Clean(cfg.Store.Path)
		}
		server, err := mcp.NewServer(sess, &mcp.ServerOptions{
			PolicyDir: policyDir,
			Version:   version,
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}

		if err := server.Run(ctx); err != nil {
			// Don't report context canceled as an error
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	},
}
