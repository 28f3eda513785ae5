package cli

import (
	"fmt"

	"resumescreen/internal/config"
	"resumescreen/internal/extract"
	"resumescreen/internal/scoring"
	"resumescreen/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for candidate scoring",
	Long: `Start an HTTP server that exposes the scoring engine over REST.

Available endpoints:
- POST /score: Score a candidate record or raw resume text against a rule set
- POST /rulesets/validate: Validate a rule set and report every violation
- GET /rulesets: List the loaded rule sets
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")

	// Bind flags to viper config keys
	bindFlag := func(key, flagName string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(flagName)); err != nil {
			panic(err)
		}
	}

	bindFlag("server.port", "port")
	bindFlag("server.host", "host")
	bindFlag("server.tls.mode", "tls-mode")
	bindFlag("server.tls.certfile", "cert-file")
	bindFlag("server.tls.keyfile", "key-file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	registry := scoring.NewRegistry()
	if err := cfg.LoadRuleSets(registry); err != nil {
		logger.Warn("Some rule sets failed to load", "error", err)
	}

	extractor, err := extract.NewExtractor(cmd.Context(), cfg.Extract, logger)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	if cfg.App.WatchRules && cfg.App.RuleSetDir != "" {
		// The server owns its observability manager, so the watcher here
		// reports reloads through logs only.
		watcher := config.NewRuleSetWatcher(cfg.App.RuleSetDir, registry, 0, nil, logger)
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to watch rule set directory: %w", err)
		}
		defer func() {
			if err := watcher.Stop(); err != nil {
				logger.LogError(err, "Failed to stop rule set watcher")
			}
		}()
	}

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
	return server.NewServer(cfg, serverCfg, registry, extractor, logger).Start()
}
