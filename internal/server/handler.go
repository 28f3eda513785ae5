package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	resumescreenErrors "resumescreen/internal/errors"
	"resumescreen/internal/extract"
	"resumescreen/internal/observability"
	"resumescreen/internal/scoring"

	"go.opentelemetry.io/otel/attribute"
)

// ScoreResponse is the response body for the score endpoint. The candidate is
// echoed back so callers that submitted raw text can see what was extracted.
type ScoreResponse struct {
	Candidate scoring.CandidateRecord `json:"candidate"`
	Result    scoring.ScoreResult     `json:"result"`
}

// createScoreHandler wraps the score handler with observability
func (s *Server) createScoreHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumescreen.api")
		ctx, span := tracer.Start(ctx, "api.score")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Parse request
		var req ScoreRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		// Validation
		if req.Candidate == nil && strings.TrimSpace(req.ResumeText) == "" {
			err := fmt.Errorf("missing candidate")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing candidate", "either candidate or resumeText is required", http.StatusBadRequest)
			return
		}

		ruleSetName := req.RuleSet
		if ruleSetName == "" {
			ruleSetName = s.AppConfig.Pipeline.DefaultRule
		}
		if ruleSetName == "" {
			err := fmt.Errorf("missing rule set")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing rule set", "ruleSet field is required and no default is configured", http.StatusBadRequest)
			return
		}

		rules, err := s.Registry.Get(ruleSetName)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "unknown_ruleset"))
			writeErrorResponse(w, "Unknown rule set", err.Error(), http.StatusNotFound)
			return
		}

		// Add request attributes to span
		span.SetAttributes(
			attribute.String("rule_set", ruleSetName),
			attribute.Bool("request.structured", req.Candidate != nil),
		)

		var candidate scoring.CandidateRecord
		if req.Candidate != nil {
			candidate = *req.Candidate
		} else {
			candidate, err = s.Extractor.Extract(ctx, extract.RawResume{
				Name:  req.Name,
				Email: req.Email,
				Text:  req.ResumeText,
			})
			if err != nil {
				span.RecordError(err)
				span.SetAttributes(attribute.String("error.type", "extraction"))
				writeErrorResponse(w, "Failed to extract candidate", err.Error(), http.StatusBadGateway)
				return
			}
		}

		metrics := om.GetMetrics()
		scoreStart := time.Now()
		result, err := scoring.Score(candidate, rules)
		if err != nil {
			// The registry never installs an unusable rule set, so this is
			// an internal inconsistency rather than a caller mistake.
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "scoring"))
			writeErrorResponse(w, "Failed to score candidate", err.Error(), http.StatusInternalServerError)
			return
		}
		metrics.RecordScore(ctx, result.RuleSet, string(result.Tier), result.Disqualified, time.Since(scoreStart))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("score.total", result.Total),
			attribute.String("score.tier", string(result.Tier)),
			attribute.Bool("score.disqualified", result.Disqualified),
		)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(ScoreResponse{Candidate: candidate, Result: result}); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// createValidateRuleSetHandler wraps the rule set validation handler with
// observability
func (s *Server) createValidateRuleSetHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumescreen.api")
		_, span := tracer.Start(ctx, "api.validate_ruleset")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req ValidateRuleSetRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.Name) == "" {
			err := fmt.Errorf("missing rule set name")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Missing rule set name", "name field is required", http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.String("rule_set", req.Name),
			attribute.Int("criteria", len(req.RuleSet.Criteria)),
		)

		rules, err := scoring.LoadRuleSet(req.Name, req.RuleSet)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "ruleset_invalid"))
			var cfgErr *resumescreenErrors.ConfigurationError
			if errors.As(err, &cfgErr) {
				span.SetAttributes(attribute.Int("violations", len(cfgErr.Violations)))
				writeJSONResponse(w, http.StatusUnprocessableEntity, ErrorResponse{
					Error:      "Rule set is invalid",
					Message:    fmt.Sprintf("%d violation(s) found", len(cfgErr.Violations)),
					Violations: cfgErr.Violations,
				})
				return
			}
			writeErrorResponse(w, "Failed to validate rule set", err.Error(), http.StatusInternalServerError)
			return
		}

		span.SetAttributes(attribute.Bool("success", true))

		writeJSONResponse(w, http.StatusOK, ValidateRuleSetResponse{
			Valid:       true,
			Name:        rules.Name,
			Criteria:    len(rules.Criteria),
			Fingerprint: rules.Fingerprint(),
		})
	}
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return originalMiddleware(func(w http.ResponseWriter, r *http.Request) {
			// Wrap the ResponseWriter to detect rate limit responses
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			next(wrapper, r)

			// If rate limited, record metric
			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				limitType, _, _ := strings.Cut(getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP), ":")
				metrics.RecordRateLimitHit(r.Context(), limitType)
			}
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
