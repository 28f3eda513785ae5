package cli

import (
	"errors"
	"fmt"

	"resumescreen/internal/config"
	resumescreenErrors "resumescreen/internal/errors"
	"resumescreen/internal/scoring"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [ruleset-file...]",
	Short: "Validate rule set files",
	Long: `Validate one or more rule set files (YAML or JSON) without loading
them into a running pipeline. Validation is exhaustive: every violation in a
file is reported in one pass, so a broken rule set can be fixed without
replaying the command per mistake.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	invalid := 0
	for _, path := range args {
		name, ruleCfg, err := config.LoadRuleSetFile(path)
		if err != nil {
			invalid++
			fmt.Printf("%s: unreadable: %v\n", path, err)
			continue
		}

		rules, err := scoring.LoadRuleSet(name, ruleCfg)
		if err != nil {
			invalid++
			var cfgErr *resumescreenErrors.ConfigurationError
			if errors.As(err, &cfgErr) {
				fmt.Printf("%s: INVALID (%d violation(s))\n", path, len(cfgErr.Violations))
				for _, violation := range cfgErr.Violations {
					fmt.Printf("  - %s\n", violation)
				}
			} else {
				fmt.Printf("%s: INVALID: %v\n", path, err)
			}
			continue
		}

		fmt.Printf("%s: OK (%d criteria, fingerprint %s)\n", path, len(rules.Criteria), rules.Fingerprint())
		logger.Debug("Rule set validated", "file", path, "rule_set", name)
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d rule set file(s) invalid", invalid, len(args))
	}
	return nil
}
