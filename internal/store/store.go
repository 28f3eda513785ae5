package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"resumescreen/internal/errors"
	"resumescreen/internal/extract"
	"resumescreen/internal/scoring"
)

// ScoredCandidate is one pipeline outcome: the extracted record, the score
// it earned, and enough provenance to audit the decision later.
type ScoredCandidate struct {
	Candidate            scoring.CandidateRecord `json:"candidate"`
	Result               scoring.ScoreResult     `json:"result"`
	CandidateFingerprint string                  `json:"candidateFingerprint"`
	RuleSetFingerprint   string                  `json:"ruleSetFingerprint"`
	ScoredAt             time.Time               `json:"scoredAt"`
}

// ResultStore persists scored candidates.
type ResultStore interface {
	Append(ctx context.Context, sc ScoredCandidate) error
	Close() error
}

// CandidateSource supplies raw resumes for the batch pipeline.
type CandidateSource interface {
	Fetch(ctx context.Context) ([]extract.RawResume, error)
}

// JSONLStore appends scored candidates to a local JSON Lines file, one
// object per line. Appends are serialized so concurrent pipeline workers
// never interleave partial lines.
type JSONLStore struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

var _ ResultStore = (*JSONLStore)(nil)

// NewJSONLStore opens (or creates) the results file for appending.
func NewJSONLStore(path string) (*JSONLStore, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
			fmt.Sprintf("Failed to open results file %s", path), err)
	}
	return &JSONLStore{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Append implements ResultStore.
func (s *JSONLStore) Append(_ context.Context, sc ScoredCandidate) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to encode scored candidate", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to write scored candidate", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to write scored candidate", err)
	}
	// Flush per record so a crash loses at most the in-flight line.
	if err := s.writer.Flush(); err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to flush results file", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}

// FileSource reads raw resumes from a JSON Lines file, one RawResume object
// per line. Blank lines are skipped.
type FileSource struct {
	path string
}

var _ CandidateSource = (*FileSource)(nil)

// NewFileSource creates a file-backed candidate source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch implements CandidateSource.
func (s *FileSource) Fetch(_ context.Context) ([]extract.RawResume, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to open candidate file %s", s.path), err)
	}
	defer file.Close()

	var resumes []extract.RawResume
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var resume extract.RawResume
		if err := json.Unmarshal(text, &resume); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeInvalidFormat,
				fmt.Sprintf("Invalid candidate record at %s:%d", s.path, line), err)
		}
		resumes = append(resumes, resume)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read candidate file %s", s.path), err)
	}
	return resumes, nil
}
