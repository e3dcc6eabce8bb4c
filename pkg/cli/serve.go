package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/doubletabai/tabsql/pkg/api"
	"github.com/doubletabai/tabsql/pkg/tooling"
)

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the JSON API on --http-addr. Prometheus metrics are exposed on /metrics.

Examples:
  tabsql serve --http-addr :8084
  curl -s localhost:8084/api/v1/ask -d '{"question":"How many users are there?"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			return api.Serve(ctx, a.cfg.HTTPAddr, api.NewHandler(a.agent))
		},
	}
}

func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP server on stdio",
		Long: `Run tabsql as a Model Context Protocol server over stdio so LLM agents can ask questions and
add training data.

Configure it in an MCP client:
  {
    "mcpServers": {
      "tabsql": {"command": "tabsql", "args": ["mcp", "--db-driver", "sqlite", "--db-path", "shop.db"]}
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.NewStdioServer(tooling.New(a.agent, version).Server())
			log.Info().Msg("MCP server listening on stdio")
			if err := srv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
