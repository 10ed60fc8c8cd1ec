package main

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"sindanrelay/internal/logging"
	mcpserver "sindanrelay/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over MCP on stdio for operator tooling",
	Long: `Starts an MCP server over stdin/stdout exposing run_pipeline,
inspect_folder and list_archives. The server watches its parent process and
self-terminates when the client goes away.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, sink, err := setup()
	if err != nil {
		return err
	}
	defer sink.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting MCP server over stdio", "unsent", cfg.UnsentDir, "sent", cfg.SentDir)
	return mcpserver.NewServer(cfg).MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
