package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"resumescreen/internal/config"
	"resumescreen/internal/errors"
	"resumescreen/internal/extract"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsStore appends scored candidates to a Google Sheets results tab. The
// sheet is what recruiters actually work from, so rows carry the human-facing
// columns plus the JSON breakdown for auditing. API calls go through a
// circuit breaker so a Sheets outage degrades to local storage instead of
// stalling the pipeline.
type SheetsStore struct {
	service       *sheets.Service
	spreadsheetID string
	appendRange   string
	breaker       *gobreaker.CircuitBreaker[*sheets.AppendValuesResponse]
	logger        *errors.Logger
}

var _ ResultStore = (*SheetsStore)(nil)

// NewSheetsStore creates a Sheets-backed result store.
func NewSheetsStore(ctx context.Context, cfg config.SheetsConfig, logger *errors.Logger) (*SheetsStore, error) {
	service, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &SheetsStore{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		appendRange:   cfg.AppendRange,
		breaker:       newSheetsBreaker(cfg.CircuitBreaker, logger),
		logger:        logger,
	}, nil
}

// newSheetsService builds the Sheets API client, using the configured
// service account file when set and ambient credentials otherwise.
func newSheetsService(ctx context.Context, cfg config.SheetsConfig) (*sheets.Service, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to create Sheets client", err)
	}
	return service, nil
}

// newSheetsBreaker builds the circuit breaker, or returns nil when disabled.
func newSheetsBreaker(cfg config.CircuitBreakerConfig, logger *errors.Logger) *gobreaker.CircuitBreaker[*sheets.AppendValuesResponse] {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        "Store-Sheets",
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
					"to", to.String())
			}
		},
	}

	return gobreaker.NewCircuitBreaker[*sheets.AppendValuesResponse](settings)
}

// Append implements ResultStore.
func (s *SheetsStore) Append(ctx context.Context, sc ScoredCandidate) error {
	breakdown, err := json.Marshal(sc.Result.Breakdown)
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to encode score breakdown", err)
	}

	row := []any{
		sc.ScoredAt.Format("2006-01-02 15:04:05"),
		sc.Candidate.Name,
		sc.Candidate.Email,
		sc.Result.RuleSet,
		sc.Result.Total,
		string(sc.Result.Tier),
		string(breakdown),
	}

	call := func() (*sheets.AppendValuesResponse, error) {
		return s.service.Spreadsheets.Values.
			Append(s.spreadsheetID, s.appendRange, &sheets.ValueRange{Values: [][]any{row}}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
	}

	if s.breaker != nil {
		_, err = s.breaker.Execute(call)
	} else {
		_, err = call()
	}
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreFailed,
			fmt.Sprintf("Failed to append result row for %s", sc.Candidate.Email), err)
	}

	if s.logger != nil {
		s.logger.Debug("Result row appended to sheet",
			"candidate", sc.Candidate.Email,
			"tier", sc.Result.Tier,
			"total", sc.Result.Total)
	}
	return nil
}

// Close implements ResultStore. The Sheets client holds no local state.
func (s *SheetsStore) Close() error { return nil }

// SheetsSource reads candidate rows from a Google Sheets tracking tab. The
// expected columns are name, email and resume text, in that order; extra
// columns are ignored and rows without an email are skipped.
type SheetsSource struct {
	service       *sheets.Service
	spreadsheetID string
	readRange     string
	logger        *errors.Logger
}

var _ CandidateSource = (*SheetsSource)(nil)

// NewSheetsSource creates a Sheets-backed candidate source.
func NewSheetsSource(ctx context.Context, cfg config.SheetsConfig, logger *errors.Logger) (*SheetsSource, error) {
	service, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &SheetsSource{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     cfg.ReadRange,
		logger:        logger,
	}, nil
}

// Fetch implements CandidateSource.
func (s *SheetsSource) Fetch(ctx context.Context) ([]extract.RawResume, error) {
	resp, err := s.service.Spreadsheets.Values.
		Get(s.spreadsheetID, s.readRange).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to read candidate rows from sheet", err)
	}

	resumes := make([]extract.RawResume, 0, len(resp.Values))
	skipped := 0
	for _, row := range resp.Values {
		resume := extract.RawResume{
			Name:  cellString(row, 0),
			Email: cellString(row, 1),
			Text:  cellString(row, 2),
		}
		if resume.Email == "" {
			skipped++
			continue
		}
		resumes = append(resumes, resume)
	}

	if s.logger != nil {
		s.logger.Info("Fetched candidate rows from sheet",
			"range", s.readRange,
			"candidates", len(resumes),
			"skipped", skipped)
	}
	return resumes, nil
}

// cellString returns the cell at index i as a trimmed string, or "" when the
// row is too short. Sheets returns numbers as float64, so format those too.
func cellString(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
