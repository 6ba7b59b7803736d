package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/plugreg/plugreg/internal/mcpserver"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the registry over the Model Context Protocol",
	Long:  "Serves tools and plugin-registry:// resources to a connected agent. Speaks stdio by default; pass --http to serve streamable HTTP instead.",
	RunE:  runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	c := buildComponents(cfg)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if cfg.Registry.Watch {
		go watchManifest(ctx, c)
	}

	s := mcpserver.New(mcpserver.Deps{
		Store:     c.store,
		Provider:  c.provider,
		Engine:    c.engine,
		Analyzer:  c.analyzer,
		Validator: c.validator,
		Version:   version,
	})

	if mcpHTTPAddr != "" {
		log.Info().Str("addr", mcpHTTPAddr).Msg("serving MCP over streamable HTTP")
		if err := server.NewStreamableHTTPServer(s).Start(mcpHTTPAddr); err != nil {
			return fmt.Errorf("mcp http server: %w", err)
		}
		return nil
	}

	log.Info().Str("registry_root", cfg.Registry.Root).Msg("serving MCP over stdio")
	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}
