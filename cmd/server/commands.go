package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatroom-server/internal/app"
	"github.com/vovakirdan/chatroom-server/internal/config"
	"github.com/vovakirdan/chatroom-server/internal/log"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

type serveOptions struct {
	configPath string
	addr       string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &serveOptions{}

	rootCmd := &cobra.Command{
		Use:           "chatroom-server",
		Short:         "Realtime chat backend: presence, typing and message fan-out over WebSocket",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	addServeFlags(rootCmd, opts)

	rootCmd.AddCommand(
		newServeCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	addServeFlags(cmd, opts)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), Version)
			return err
		},
	}
}

func addServeFlags(cmd *cobra.Command, opts *serveOptions) {
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to the YAML config file")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func runServe(parent context.Context, opts *serveOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootLogger := log.New("info")
	cfg, path, err := config.Load(bootLogger, opts.configPath)
	if err != nil {
		return err
	}
	cfg.UpdateFrom(config.Config{Addr: opts.addr, LogLevel: opts.logLevel})

	logger := log.New(cfg.LogLevel)
	logger.Info().Str("config", path).Msg("configuration loaded")
	if cfg.JWTSecret == config.Default().JWTSecret {
		logger.Warn().Msg("jwt_secret is the built-in default; set CHATROOM_JWT_SECRET")
	}

	application, err := app.New(&cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Str("version", Version).Msg("starting chatroom server")
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
