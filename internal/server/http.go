package server

import (
	"time"

	"resumescreen/internal/config"
	resumescreenErrors "resumescreen/internal/errors"
	"resumescreen/internal/extract"
	"resumescreen/internal/scoring"
)

// ScoreRequest represents the request body for the score endpoint. Either a
// structured candidate or raw resume text must be provided; when both are
// present the structured candidate wins and the text is ignored.
type ScoreRequest struct {
	Candidate  *scoring.CandidateRecord `json:"candidate,omitempty"`
	ResumeText string                   `json:"resumeText,omitempty"`
	Name       string                   `json:"name,omitempty"`
	Email      string                   `json:"email,omitempty"`
	RuleSet    string                   `json:"ruleSet,omitempty"`
}

// ValidateRuleSetRequest represents the request body for the rule set
// validation endpoint.
type ValidateRuleSetRequest struct {
	Name    string                `json:"name"`
	RuleSet scoring.RuleSetConfig `json:"ruleSet"`
}

// ValidateRuleSetResponse is returned when a rule set passes validation.
type ValidateRuleSetResponse struct {
	Valid       bool   `json:"valid"`
	Name        string `json:"name"`
	Criteria    int    `json:"criteria"`
	Fingerprint string `json:"fingerprint"`
}

type ErrorResponse struct {
	Error      string   `json:"error"`
	Message    string   `json:"message,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// Scoring components
	Registry  *scoring.Registry
	Extractor extract.Extractor

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *LimiterManager

	// Logger
	Logger *resumescreenErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, registry *scoring.Registry, extractor extract.Extractor, logger *resumescreenErrors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *LimiterManager
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		Registry:       registry,
		Extractor:      extractor,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
	}
}
