package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/libra/internal/config"
	"github.com/jackzampolin/libra/internal/home"
	"github.com/jackzampolin/libra/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Libra server",
	Long: `Start the Libra HTTP server.

The config file is watched; provider, matcher and prompt changes apply
without a restart.

The server provides:
  - /health  - Basic server health check
  - /ready   - Readiness check (services initialized)
  - /status  - Providers, credential and catalog breaker state
  - /metrics - Prometheus metrics

Examples:
  libra serve                    # Start on the configured port (default 8080)
  libra serve --port 3000        # Start on custom port
  libra serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger()
		if err != nil {
			return err
		}

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		mgr, err := config.NewManager(cfgFile, h.Path())
		if err != nil {
			return err
		}
		mgr.SetLogger(logger)
		if f := mgr.ConfigFile(); f != "" {
			logger.Info("using config file", "path", f)
			mgr.WatchConfig()
		} else {
			logger.Info("no config file found, using defaults", "hint", "libra config init")
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: mgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port from config)")

	rootCmd.AddCommand(serveCmd)
}
