package cmd

import (
	"context"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/hyperguess/internal/mcp"
)

var mcpDifficulty string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server so an AI assistant can play",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

An MCP client plays the game through tools. Configure it with:

  {
    "mcpServers": {
      "hyperguess": { "command": "hyperguess", "args": ["mcp"] }
    }
  }

Available tools: hyperguess_difficulties, hyperguess_start_game,
hyperguess_submit_guess, hyperguess_state`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol.
		ui.Out = cmd.ErrOrStderr()

		c, err := newController(mcpDifficulty)
		if err != nil {
			return err
		}
		defer c.Close()

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, shutdownSignals()...)
		defer stop()

		return mcp.NewServer(c, buildVersion).ServeStdio(ctx)
	},
}

func init() {
	mcpCmd.Flags().StringVarP(&mcpDifficulty, "difficulty", "d", "", "Starting difficulty (default from config)")
	rootCmd.AddCommand(mcpCmd)
}
