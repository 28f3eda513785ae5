package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"resumescreen/internal/extract"
)

// healthHandler provides a health check endpoint including extractor and
// rule set registry status
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":  "healthy",
		"service": "resumescreen",
		"version": s.Version,
	}

	// Check rule set registry status
	names := s.Registry.Names()
	response["rule_sets"] = map[string]any{
		"loaded": len(names),
		"names":  names,
	}

	// Check extractor status including the circuit breaker when the Gemini
	// provider is active
	response["extractor"] = s.checkExtractorHealth()

	// A server with no usable rule sets cannot score anything
	if len(names) == 0 {
		response["status"] = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		log.Printf("Failed to encode health response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// checkExtractorHealth reports which extractor is serving requests and, for
// the Gemini provider, the circuit breaker state
func (s *Server) checkExtractorHealth() map[string]any {
	status := map[string]any{
		"provider": s.AppConfig.Extract.Provider,
	}

	if gemini, ok := s.Extractor.(*extract.GeminiExtractor); ok {
		status["circuit_breaker"] = gemini.BreakerStats()
		status["model"] = s.AppConfig.Extract.Model
	}

	return status
}

// ruleSetsHandler lists the rule sets currently installed in the registry
func (s *Server) ruleSetsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	names := s.Registry.Names()
	ruleSets := make([]map[string]any, 0, len(names))
	for _, name := range names {
		rules, err := s.Registry.Get(name)
		if err != nil {
			continue
		}
		ruleSets = append(ruleSets, map[string]any{
			"name":        rules.Name,
			"criteria":    len(rules.Criteria),
			"fingerprint": rules.Fingerprint(),
		})
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"rule_sets": ruleSets,
	})
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"service": "resumescreen",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"rule_sets_loaded": len(s.Registry.Names()),
	}

	// Add rate limiting stats if enabled
	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	// Add configuration info
	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		log.Printf("Failed to encode stats response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	if r.Header.Get("Content-Type") != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeJSONResponse writes a JSON response with the given status code
func writeJSONResponse(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
	})
}
