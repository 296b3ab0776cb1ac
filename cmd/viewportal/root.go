package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/config"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/core"
)

const defaultConfigPath = "viewportal.yaml"

type runOptions struct {
	configPath string
	debug      bool
	keyboard   bool
	snapshots  string
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "viewportal",
		Short: "Multi-cell frame viewer fed by camera or synthetic streams",
		Long: `viewportal shows a grid of cells (color, depth, reconstruction, plot)
fed by a capture source. Frames are handed off latest-wins: the producer
never waits for the display.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCommand())
	return root
}

func newRunCommand() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the portal and start capturing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "config file (.yaml, .toml or legacy .cfg)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&opts.keyboard, "keyboard", true, "forward terminal keys to the window")
	cmd.Flags().StringVar(&opts.snapshots, "snapshots", "", "write PNG snapshots into this directory (overrides config)")

	return cmd
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func run(parent context.Context, opts runOptions) error {
	setupLogging(opts.debug)

	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.snapshots != "" {
		cfg.Snapshot.Dir = opts.snapshots
		if cfg.Snapshot.Every <= 0 {
			cfg.Snapshot.Every = 30
		}
	}

	slog.Info("starting viewportal",
		"config", opts.configPath,
		"debug", opts.debug,
		"layout", fmt.Sprintf("%dx%d", cfg.Layout.Rows, cfg.Layout.Cols),
		"source", cfg.Capture.Source,
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := core.NewService(cfg, core.Options{NewSource: newSource})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Shutdown(); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	if _, statErr := os.Stat(opts.configPath); statErr == nil {
		watcher, err := config.NewWatcher(opts.configPath, svc.ApplyConfig)
		if err != nil {
			slog.Warn("config hot reload disabled", "error", err)
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	if opts.keyboard {
		restore, err := forwardKeyboard(ctx, os.Stdin, svc.Input())
		if err != nil {
			slog.Warn("terminal keyboard disabled", "error", err)
		} else {
			defer restore()
		}
	}

	return svc.Run(ctx)
}
