package cli

import (
	"context"
	"fmt"

	"resumescreen/internal/common"
	"resumescreen/internal/extract"
	"resumescreen/internal/scoring"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [resume-file]",
	Short: "Score a single resume against a rule set",
	Long: `Score one resume against a job posting's rule set. The command
extracts a structured candidate record from the resume text and prints the
total score, the decision tier and the per-criterion breakdown.

The rule set is selected with --ruleset; without it the configured default
rule is used.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if scoreConfig.OutputFormat == "" {
			scoreConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(scoreConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runScore,
}

var scoreConfig common.CommandConfig
var scoreRuleSet string

func init() {
	scoreCmd.Flags().StringVarP(&scoreConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	scoreCmd.Flags().StringVar(&scoreConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	scoreCmd.Flags().StringVarP(&scoreRuleSet, "ruleset", "r", "", "Rule set name (default from config)")

	// Add completion for format flag
	_ = scoreCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	ruleSetName := scoreRuleSet
	if ruleSetName == "" {
		ruleSetName = cfg.Pipeline.DefaultRule
	}
	if ruleSetName == "" {
		return fmt.Errorf("no rule set selected: pass --ruleset or set pipeline.defaultRule")
	}

	registry := scoring.NewRegistry()
	if err := cfg.LoadRuleSets(registry); err != nil {
		logger.Warn("Some rule sets failed to load", "error", err)
	}
	rules, err := registry.Get(ruleSetName)
	if err != nil {
		return err
	}

	extractor, err := extract.NewExtractor(cmd.Context(), cfg.Extract, logger)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	createInput := func(contents []string) (extract.RawResume, error) {
		if len(contents) != 1 {
			return extract.RawResume{}, fmt.Errorf("expected 1 file path, got %d", len(contents))
		}
		return extract.RawResume{Text: contents[0]}, nil
	}

	logDetails := func(input extract.RawResume, cfg common.CommandConfig) {
		logger.Info("Scoring resume",
			"resume_chars", len(input.Text),
			"rule_set", ruleSetName,
			"output_format", cfg.OutputFormat)
	}

	scoreOperation := func(ctx context.Context, input extract.RawResume) (scoring.ScoreResult, error) {
		candidate, err := extractor.Extract(ctx, input)
		if err != nil {
			return scoring.ScoreResult{}, err
		}
		return scoring.Score(candidate, rules)
	}

	err = common.RunFileCommand(
		cmd.Context(),
		logger,
		scoreConfig,
		args,
		createInput,
		scoreOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to score resume: %w", err)
	}
	logger.Info("Resume scored successfully", "rule_set", ruleSetName)
	return nil
}
