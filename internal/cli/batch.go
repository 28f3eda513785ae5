package cli

import (
	"context"
	"fmt"
	"time"

	"resumescreen/internal/common"
	"resumescreen/internal/config"
	"resumescreen/internal/errors"
	"resumescreen/internal/extract"
	"resumescreen/internal/notify"
	"resumescreen/internal/observability"
	"resumescreen/internal/pipeline"
	"resumescreen/internal/scoring"
	"resumescreen/internal/store"

	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch [candidates-file]",
	Short: "Run the screening pipeline once over a candidate batch",
	Long: `Run the screening pipeline once: fetch raw resumes, extract candidate
records, score them against the configured rule set, persist the results and
send tier notifications.

Candidates are read from a JSONL file when a file argument is given, or from
the configured Google Sheets range when sheets.enabled is set and the
argument is omitted. Results are appended to the --results file and, when
enabled, to the results sheet.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if batchConfig.OutputFormat == "" {
			batchConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(batchConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runBatch,
}

var batchConfig common.CommandConfig
var batchRuleSet string
var batchResults string

func init() {
	batchCmd.Flags().StringVarP(&batchConfig.OutputFile, "output", "o", "", "Summary output file path (default: stdout)")
	batchCmd.Flags().StringVar(&batchConfig.OutputFormat, "format", "", "Summary output format: json, text, or markdown")
	batchCmd.Flags().StringVarP(&batchRuleSet, "ruleset", "r", "", "Rule set name (default from config)")
	batchCmd.Flags().StringVar(&batchResults, "results", "results.jsonl", "JSONL file scored candidates are appended to")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	sourcePath := ""
	if len(args) == 1 {
		sourcePath = args[0]
	}

	// Follow-ups ride on in-process timers, so they only make sense for the
	// long-running run command; a one-shot batch would cancel them on exit.
	p, cleanup, err := buildPipeline(cmd.Context(), cfg, logger, sourcePath, batchResults, batchRuleSet, false)
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := p.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	return common.NewOutputHandler(logger).HandleOutput(stats, batchConfig)
}

// buildPipeline wires a pipeline from the configuration: candidate source,
// extractor, rule set registry, result stores, notifier and metrics. The
// returned cleanup closes every store and flushes the metric exporters.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *errors.Logger, sourcePath, resultsPath, ruleSetName string, withFollowUps bool) (*pipeline.Pipeline, func(), error) {
	if ruleSetName == "" {
		ruleSetName = cfg.Pipeline.DefaultRule
	}
	if ruleSetName == "" {
		return nil, nil, fmt.Errorf("no rule set selected: pass --ruleset or set pipeline.defaultRule")
	}

	registry := scoring.NewRegistry()
	if err := cfg.LoadRuleSets(registry); err != nil {
		logger.Warn("Some rule sets failed to load", "error", err)
	}
	if _, err := registry.Get(ruleSetName); err != nil {
		return nil, nil, err
	}

	extractor, err := extract.NewExtractor(ctx, cfg.Extract, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	obsConfig := observability.GetObservabilityConfig(cfg, Version)
	om, err := observability.NewObservabilityManager(obsConfig, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	var source store.CandidateSource
	switch {
	case sourcePath != "":
		source = store.NewFileSource(sourcePath)
	case cfg.Sheets.Enabled:
		source, err = store.NewSheetsSource(ctx, cfg.Sheets, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create sheets source: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("no candidate source: pass a candidates file or enable sheets")
	}

	var stores []store.ResultStore
	if resultsPath != "" {
		jsonl, err := store.NewJSONLStore(resultsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open results file: %w", err)
		}
		stores = append(stores, jsonl)
	}
	if cfg.Sheets.Enabled {
		sheetsStore, err := store.NewSheetsStore(ctx, cfg.Sheets, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create sheets store: %w", err)
		}
		stores = append(stores, sheetsStore)
	}
	if len(stores) == 0 {
		return nil, nil, fmt.Errorf("no result store: pass --results or enable sheets")
	}

	var notifier notify.Notifier
	var followUps *pipeline.FollowUpScheduler
	if cfg.SMTP.Enabled {
		notifier = notify.NewSMTPNotifier(cfg.SMTP, logger)
		if withFollowUps && cfg.Pipeline.FollowUps {
			followUps = pipeline.NewFollowUpScheduler(notifier, notify.DefaultFollowUpPlan, 0, logger)
		}
	}

	p := &pipeline.Pipeline{
		Source:    source,
		Extractor: extractor,
		Registry:  registry,
		RuleSet:   ruleSetName,
		Stores:    stores,
		Notifier:  notifier,
		FollowUps: followUps,
		Workers:   cfg.Pipeline.Workers,
		Logger:    logger,
		Metrics:   om.GetMetrics(),
	}

	cleanup := func() {
		if followUps != nil {
			followUps.Stop()
		}
		for _, st := range stores {
			if err := st.Close(); err != nil {
				logger.LogError(err, "Failed to close result store")
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "Failed to shut down observability")
		}
	}
	return p, cleanup, nil
}
