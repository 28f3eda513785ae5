package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"resumescreen/internal/config"
	"resumescreen/internal/errors"
	"resumescreen/internal/extract"
	"resumescreen/internal/observability"
	"resumescreen/internal/scoring"
)

func testObservability(t *testing.T, cfg *config.Config) *observability.ObservabilityManager {
	t.Helper()
	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{Enabled: false}, cfg)
	if err != nil {
		t.Fatalf("NewObservabilityManager: %v", err)
	}
	return om
}

func newTestServer(t *testing.T) (*Server, *observability.ObservabilityManager) {
	t.Helper()

	registry := scoring.NewRegistry()
	_, err := registry.Load("backend", scoring.RuleSetConfig{
		Criteria: []scoring.Criterion{
			{ID: "skills", Field: scoring.FieldSkills, Type: scoring.TypeSkillsOverlap,
				Weight: 60, RequiredSkills: []string{"Go"}},
			{ID: "experience", Field: scoring.FieldExperienceMonths, Type: scoring.TypeThreshold,
				Weight: 40, Threshold: 12},
		},
		Tiers: []scoring.TierBand{
			{Tier: scoring.TierShortlist, Min: 75},
			{Tier: scoring.TierReview, Min: 40},
			{Tier: scoring.TierReject, Min: 0},
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg := &config.Config{}
	cfg.Extract.Provider = "heuristic"
	cfg.Pipeline.DefaultRule = "backend"

	s := &Server{
		Host:           "localhost",
		Port:           "8080",
		Version:        "test",
		AppConfig:      cfg,
		Registry:       registry,
		Extractor:      extract.NewHeuristicExtractor(),
		APIKeys:        map[string]bool{},
		MaxRequestSize: 1 << 20,
		Logger:         errors.NewLogger(slog.LevelError),
	}
	return s, testObservability(t, cfg)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestScoreHandlerStructuredCandidate(t *testing.T) {
	s, om := newTestServer(t)
	handler := s.createScoreHandler(om)

	body := `{
		"ruleSet": "backend",
		"candidate": {
			"name": "Priya",
			"email": "priya@example.com",
			"skills": ["Go", "SQL"],
			"experienceMonths": 36
		}
	}`
	rec := postJSON(t, handler, "/score", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ScoreResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Result.Total != 100 || resp.Result.Tier != scoring.TierShortlist {
		t.Errorf("result = %+v, want 100/Shortlist", resp.Result)
	}
}

func TestScoreHandlerRawText(t *testing.T) {
	s, om := newTestServer(t)
	handler := s.createScoreHandler(om)

	body := `{
		"name": "Priya",
		"email": "priya@example.com",
		"resumeText": "Engineer with 3 years experience\n\nSkills: Go, SQL"
	}`
	rec := postJSON(t, handler, "/score", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ScoreResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Candidate.Skills) == 0 {
		t.Errorf("extracted candidate has no skills: %+v", resp.Candidate)
	}
	if resp.Result.Tier != scoring.TierShortlist {
		t.Errorf("tier = %s, want Shortlist", resp.Result.Tier)
	}
}

func TestScoreHandlerMissingCandidate(t *testing.T) {
	s, om := newTestServer(t)
	rec := postJSON(t, s.createScoreHandler(om), "/score", `{"ruleSet": "backend"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestScoreHandlerUnknownRuleSet(t *testing.T) {
	s, om := newTestServer(t)
	body := `{"ruleSet": "missing", "candidate": {"name": "X"}}`
	rec := postJSON(t, s.createScoreHandler(om), "/score", body)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestValidateRuleSetHandlerValid(t *testing.T) {
	s, om := newTestServer(t)
	body := `{
		"name": "frontend",
		"ruleSet": {
			"criteria": [
				{"id": "skills", "field": "skills", "type": "skills_overlap",
				 "weight": 100, "requiredSkills": ["React"]}
			],
			"tiers": [
				{"tier": "Shortlist", "min": 70},
				{"tier": "Reject", "min": 0}
			]
		}
	}`
	rec := postJSON(t, s.createValidateRuleSetHandler(om), "/rulesets/validate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ValidateRuleSetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Valid || resp.Name != "frontend" || resp.Fingerprint == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestValidateRuleSetHandlerReportsAllViolations(t *testing.T) {
	s, om := newTestServer(t)
	// Negative weight and a threshold on a text field, both must be reported.
	body := `{
		"name": "broken",
		"ruleSet": {
			"criteria": [
				{"id": "a", "field": "skills", "type": "skills_overlap",
				 "weight": -5, "requiredSkills": ["Go"]},
				{"id": "b", "field": "location", "type": "threshold",
				 "weight": 50, "threshold": 3}
			],
			"tiers": [
				{"tier": "Shortlist", "min": 70},
				{"tier": "Reject", "min": 0}
			]
		}
	}`
	rec := postJSON(t, s.createValidateRuleSetHandler(om), "/rulesets/validate", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Violations) < 2 {
		t.Errorf("violations = %v, want at least 2", resp.Violations)
	}
}

func TestAuthMiddleware(t *testing.T) {
	s, _ := newTestServer(t)
	s.APIKeys = map[string]bool{"valid-key-12345": true}

	handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"invalid key", "X-API-Key", "wrong", http.StatusUnauthorized},
		{"valid key", "X-API-Key", "valid-key-12345", http.StatusOK},
		{"bearer token", "Authorization", "Bearer valid-key-12345", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/score", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	s, om := newTestServer(t)
	s.RateLimit = &config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 60,
		BurstCapacity:  1,
		ByIP:           true,
	}
	s.RateLimiter = NewRateLimiter(60, 1, s.Logger)
	defer s.RateLimiter.Close()

	handler := s.createRateLimitMiddleware(om)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/score", nil)
	req.RemoteAddr = "10.0.0.1:50000"

	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
}

func TestHealthHandlerDegradedWithoutRuleSets(t *testing.T) {
	s, _ := newTestServer(t)
	s.Registry = scoring.NewRegistry()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.168.1.1:1234", nil, "192.168.1.1"},
		{"x-forwarded-for", "10.0.0.1:1234",
			map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"x-real-ip", "10.0.0.1:1234",
			map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		{"invalid forwarded falls through", "10.0.0.2:1234",
			map[string]string{"X-Forwarded-For": "not-an-ip"}, "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := maskAPIKey("short"); got != "****" {
		t.Errorf("maskAPIKey(short) = %q", got)
	}
	if got := maskAPIKey("abcdefgh123456"); got != "abcdefgh****" {
		t.Errorf("maskAPIKey = %q", got)
	}
}
