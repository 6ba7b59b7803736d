package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/plugreg/plugreg/internal/analyzer"
	"github.com/plugreg/plugreg/internal/config"
	"github.com/plugreg/plugreg/internal/discovery"
	"github.com/plugreg/plugreg/internal/registry"
	"github.com/plugreg/plugreg/internal/resolver"
	"github.com/plugreg/plugreg/internal/resource"
	"github.com/plugreg/plugreg/internal/validator"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "plugreg",
	Short:   "Plugin registry service for coding agents",
	Long:    "plugreg serves a curated plugin registry to coding agents: discovery queries, project analysis, installation validation, and raw plugin content.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		setupLogging(cfg.Log.Level)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a configuration file")
}

// setupLogging routes structured logs to stderr. Stdout must stay clean:
// the agent protocol owns it in stdio mode.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(os.Stderr).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// components is the assembled service core shared by every serving mode.
type components struct {
	store     *registry.Store
	provider  *resource.Provider
	engine    *discovery.Engine
	analyzer  *analyzer.Analyzer
	validator *validator.Validator
}

// watchManifest runs the manifest watcher until ctx is cancelled.
func watchManifest(ctx context.Context, c *components) {
	if err := c.store.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("manifest watcher stopped")
	}
}

func buildComponents(cfg *config.Config) *components {
	store := registry.NewStore(cfg.Registry.Root,
		registry.WithTTL(cfg.Cache.TTL),
		registry.WithManifestName(cfg.Registry.Manifest),
	)
	return &components{
		store:     store,
		provider:  resource.NewProvider(resolver.New(store)),
		engine:    discovery.NewEngine(store),
		analyzer:  analyzer.New(analyzer.WithNavFolder(cfg.Analyzer.NavFolder)),
		validator: validator.New(),
	}
}
