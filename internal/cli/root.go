// SPDX-License-Identifier: Apache-2.0

// Package cli implements the rxverify command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rxverify/rxverify-mcp/internal/cache"
	"github.com/rxverify/rxverify-mcp/internal/config"
	"github.com/rxverify/rxverify-mcp/internal/logging"
	"github.com/rxverify/rxverify-mcp/internal/metrics"
	"github.com/rxverify/rxverify-mcp/internal/prescription"
	"github.com/rxverify/rxverify-mcp/internal/prescription/decoders"
	"github.com/rxverify/rxverify-mcp/internal/tool"
)

// Version is injected at build time via ldflags.
var Version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// app carries what PersistentPreRunE initialised down to the subcommands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:   "rxverify",
		Short: "Extract and validate prescription data from OCR text",
		Long: "rxverify turns the OCR output of a scanned medical prescription into structured\n" +
			"fields with confidence scores, checks the medications against a known-medicine\n" +
			"list and reports validation findings. It runs as a CLI, an MCP server or an HTTP API.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, opts)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format (json, console)")

	cmd.AddCommand(
		newExtractCommand(a),
		newValidateMedicineCommand(a),
		newCatalogCommand(a),
		newServeCommand(a),
		newHTTPCommand(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

// runtime is the set of long-lived dependencies built from configuration.
type runtime struct {
	service *tool.Service
	metrics *metrics.Metrics
	close   func()
}

func (a *app) buildRuntime(ctx context.Context) (*runtime, error) {
	catalog, err := loadCatalog(a.cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	engine, err := prescription.NewEngineFromCatalog(catalog, prescription.WithWorkers(a.cfg.Engine.Workers))
	if err != nil {
		return nil, err
	}

	rt := &runtime{close: func() {}}
	opts := []tool.Option{tool.WithLogger(a.logger)}

	if a.cfg.Metrics.Enabled {
		rt.metrics = metrics.New()
		opts = append(opts, tool.WithMetrics(rt.metrics))
	}

	if addr := a.cfg.Redis.Addr; addr != "" {
		client, err := cache.NewRedisClient(ctx, addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			a.logger.Warn("result cache disabled", zap.String("addr", addr), zap.Error(err))
		} else {
			rt.close = func() { _ = client.Close() }
			opts = append(opts, tool.WithCache(cache.NewRedisCache(client,
				cache.WithPrefix(a.cfg.Redis.Prefix),
				cache.WithTTL(a.cfg.Redis.TTL),
			)))
		}
	}

	pipeline := prescription.NewPipeline(engine, decoders.All()...)
	rt.service = tool.NewService(pipeline, opts...)
	a.logger.Debug("runtime ready",
		zap.Int("fields", engine.Registry().Len()),
		zap.Int("medicines", len(engine.Medicines().Names())),
		zap.Strings("decoders", pipeline.RegisteredDecoders()),
	)
	return rt, nil
}

func loadCatalog(path string) (*prescription.Catalog, error) {
	if path == "" {
		return prescription.DefaultCatalog()
	}
	return prescription.LoadCatalog(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
