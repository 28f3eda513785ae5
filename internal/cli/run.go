package cli

import (
	"context"
	"errors"
	"fmt"

	"resumescreen/internal/config"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [candidates-file]",
	Short: "Run the screening pipeline continuously",
	Long: `Run the screening pipeline on an interval until interrupted. Each
cycle fetches the candidate source, scores new resumes and persists the
results. Shortlisted candidates are enrolled in the follow-up plan when
follow-ups are enabled.

When app.watchRules is set, rule set files under app.ruleSetDir are
hot-reloaded on change; an edit that fails validation is rejected and the
previous version keeps serving.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var runRuleSet string
var runResults string

func init() {
	runCmd.Flags().StringVarP(&runRuleSet, "ruleset", "r", "", "Rule set name (default from config)")
	runCmd.Flags().StringVar(&runResults, "results", "results.jsonl", "JSONL file scored candidates are appended to")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	sourcePath := ""
	if len(args) == 1 {
		sourcePath = args[0]
	}

	p, cleanup, err := buildPipeline(cmd.Context(), cfg, logger, sourcePath, runResults, runRuleSet, true)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.App.WatchRules && cfg.App.RuleSetDir != "" {
		watcher := config.NewRuleSetWatcher(cfg.App.RuleSetDir, p.Registry, 0, p.Metrics, logger)
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to watch rule set directory: %w", err)
		}
		defer func() {
			if err := watcher.Stop(); err != nil {
				logger.LogError(err, "Failed to stop rule set watcher")
			}
		}()
	}

	logger.Info("Pipeline loop starting",
		"rule_set", p.RuleSet,
		"interval", cfg.Pipeline.Interval,
		"workers", cfg.Pipeline.Workers,
		"watch_rules", cfg.App.WatchRules)

	err = p.RunLoop(cmd.Context(), cfg.Pipeline.Interval)
	if errors.Is(err, context.Canceled) {
		logger.Info("Pipeline loop stopped")
		return nil
	}
	return err
}
