// rustdoc-mcp is an MCP stdio server answering structured questions
// about rustdoc JSON documentation for Rust workspaces.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Xevion/rustdoc-mcp/internal/config"
	"github.com/Xevion/rustdoc-mcp/internal/logger"
	"github.com/Xevion/rustdoc-mcp/internal/mcp"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "rustdoc-mcp",
		Short:        "MCP server for querying rustdoc JSON documentation",
		Version:      mcp.ServerVersion,
		SilenceUsage: true,
		RunE:         run,
	}
	rootCmd.Flags().String("config", "", "path to config file (default ~/.rustdoc-mcp/config.toml)")
	rootCmd.Flags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.Flags().String("index-path", "", "path to the search index database")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rustdoc-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if idx, _ := cmd.Flags().GetString("index-path"); idx != "" {
		cfg.IndexPath = idx
	}

	// stdout belongs to the protocol; logs go to stderr.
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	srv, err := mcp.NewServer(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize server")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("version", mcp.ServerVersion).
		Str("index", cfg.IndexPath).
		Msg("serving MCP on stdio")
	return srv.Serve(ctx)
}
