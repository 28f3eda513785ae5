package extract

import (
	"context"
	"crypto/rand"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"resumescreen/internal/config"
	"resumescreen/internal/errors"
	"resumescreen/internal/scoring"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const extractionPrompt = `Extract the following fields from the resume text below.
Omit any field that is not stated in the text. Do not infer or guess values.

- skills: the list of technical skills
- educationDegree: the highest degree, one of btech, bsc, mtech, msc, mba
- educationYear: the graduation year
- experienceMonths: total professional experience in months
- location: the candidate's current city
- tagline: the candidate's profile headline, if one is present

Resume:
`

// GeminiExtractor extracts candidate fields with the Gemini API using a
// structured output schema. Transient failures are retried with exponential
// backoff, and a circuit breaker sheds load when the API is unhealthy.
type GeminiExtractor struct {
	client         *genai.Client
	config         config.ExtractConfig
	circuitBreaker *gobreaker.CircuitBreaker[*genai.GenerateContentResponse]
	logger         *errors.Logger
}

var _ Extractor = (*GeminiExtractor)(nil)

// NewGeminiExtractor creates a Gemini-backed extractor.
func NewGeminiExtractor(ctx context.Context, cfg config.ExtractConfig, logger *errors.Logger) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, errors.NewExtractError(errors.ErrCodeExtractFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiExtractor{
		client:         client,
		config:         cfg,
		circuitBreaker: newExtractBreaker(cfg.CircuitBreaker, logger),
		logger:         logger,
	}, nil
}

// newExtractBreaker builds the circuit breaker, or returns nil when disabled.
func newExtractBreaker(cfg config.CircuitBreakerConfig, logger *errors.Logger) *gobreaker.CircuitBreaker[*genai.GenerateContentResponse] {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        "Extract-Gemini",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.Info("Circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String(),
					"failure_threshold", cfg.FailureThreshold)
			}
		},
	}

	return gobreaker.NewCircuitBreaker[*genai.GenerateContentResponse](settings)
}

// geminiExtraction is the structured output shape. Pointer fields distinguish
// "not stated in the resume" from zero values.
type geminiExtraction struct {
	Skills           []string `json:"skills"`
	EducationDegree  *string  `json:"educationDegree"`
	EducationYear    *int     `json:"educationYear"`
	ExperienceMonths *int     `json:"experienceMonths"`
	Location         *string  `json:"location"`
	Tagline          *string  `json:"tagline"`
}

// Extract implements Extractor.
func (g *GeminiExtractor) Extract(ctx context.Context, resume RawResume) (scoring.CandidateRecord, error) {
	tracer := otel.Tracer("resumescreen.extract.gemini")
	ctx, span := tracer.Start(ctx, "gemini.extract_candidate")
	defer span.End()

	span.SetAttributes(
		attribute.String("extract.provider", "gemini"),
		attribute.String("extract.model", g.config.Model),
		attribute.Int("input.resume_length", len(resume.Text)),
	)

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	genaiConfig := g.buildExtractionSchema()
	result, err := g.execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model,
				genai.Text(extractionPrompt+resume.Text), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return scoring.CandidateRecord{}, errors.NewExtractError(errors.ErrCodeExtractFailed,
			"Failed to extract candidate fields", err)
	}

	var extraction geminiExtraction
	if err := json.Unmarshal([]byte(result.Text()), &extraction); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return scoring.CandidateRecord{}, errors.NewExtractError(errors.ErrCodeExtractParseFailed,
			"Failed to parse extraction response", err)
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("output.skills", len(extraction.Skills)),
	)

	return g.toRecord(resume, extraction), nil
}

// toRecord maps the structured output onto a candidate record.
func (g *GeminiExtractor) toRecord(resume RawResume, extraction geminiExtraction) scoring.CandidateRecord {
	record := scoring.CandidateRecord{
		Name:             resume.Name,
		Email:            resume.Email,
		Skills:           extraction.Skills,
		ExperienceMonths: extraction.ExperienceMonths,
		Location:         extraction.Location,
		Tagline:          extraction.Tagline,
	}
	if extraction.EducationDegree != nil || extraction.EducationYear != nil {
		record.Education = &scoring.Education{
			Degree: extraction.EducationDegree,
			Year:   extraction.EducationYear,
		}
	}
	return record
}

// buildExtractionSchema creates the structured output schema. No field is
// required: the model omits what the resume does not state.
func (g *GeminiExtractor) buildExtractionSchema() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.config.Temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"skills":           {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				"educationDegree":  {Type: genai.TypeString},
				"educationYear":    {Type: genai.TypeInteger},
				"experienceMonths": {Type: genai.TypeInteger},
				"location":         {Type: genai.TypeString},
				"tagline":          {Type: genai.TypeString},
			},
		},
	}
}

// execute runs fn through the circuit breaker when one is configured.
func (g *GeminiExtractor) execute(fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	if g.circuitBreaker == nil {
		return fn()
	}
	return g.circuitBreaker.Execute(fn)
}

// executeWithRetry retries fn with exponential backoff and jitter.
func (g *GeminiExtractor) executeWithRetry(ctx context.Context, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if g.logger != nil {
				g.logger.Warn("Retrying extraction",
					"attempt", attempt,
					"max_retries", g.config.MaxRetries,
					"error", lastErr.Error())
			}

			// Exponential backoff with jitter to prevent thundering herd
			baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			jitterMax := big.NewInt(int64(float64(baseDelay) * 0.1))
			jitterBig, _ := rand.Int(rand.Reader, jitterMax)
			backoff := min(baseDelay+time.Duration(jitterBig.Int64()), 30*time.Second)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			break
		}
	}

	return nil, fmt.Errorf("extraction failed after %d retries: %w", g.config.MaxRetries, lastErr)
}

// isRetryableError reports whether an error is worth retrying. Auth and
// invalid-input failures are not; timeouts and 5xx responses are.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if goerrors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if goerrors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// BreakerStats returns circuit breaker statistics for the stats endpoint.
func (g *GeminiExtractor) BreakerStats() map[string]any {
	if g.circuitBreaker == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    g.circuitBreaker.Name(),
		"state":   g.circuitBreaker.State().String(),
		"counts":  g.circuitBreaker.Counts(),
		"enabled": true,
	}
}
