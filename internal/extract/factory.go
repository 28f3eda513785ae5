package extract

import (
	"context"
	"fmt"

	"resumescreen/internal/config"
	"resumescreen/internal/errors"
)

// NewExtractor builds the extractor selected by the configuration.
func NewExtractor(ctx context.Context, cfg config.ExtractConfig, logger *errors.Logger) (Extractor, error) {
	switch cfg.Provider {
	case "heuristic", "":
		return NewHeuristicExtractor(), nil
	case "gemini":
		return NewGeminiExtractor(ctx, cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown extract provider %q", cfg.Provider), nil)
	}
}
