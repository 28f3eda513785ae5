package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"resumescreen/internal/scoring"
)

type memoryReloadRecorder struct {
	mu      sync.Mutex
	reloads map[string]bool
}

func (r *memoryReloadRecorder) RecordRuleSetReload(_ context.Context, ruleSet string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reloads == nil {
		r.reloads = make(map[string]bool)
	}
	r.reloads[ruleSet] = success
}

func TestRuleSetWatcherRecordsReloads(t *testing.T) {
	dir := t.TempDir()

	good := `criteria:
  - id: skills
    field: skills
    type: skills_overlap
    weight: 100
    requiredSkills: [Go]
tiers:
  - tier: Shortlist
    min: 75
  - tier: Reject
    min: 0
`
	bad := `criteria:
  - id: skills
    field: certifications
    type: skills_overlap
    weight: 0
tiers: []
`
	goodPath := filepath.Join(dir, "good.yaml")
	badPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(goodPath, []byte(good), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(badPath, []byte(bad), 0o600); err != nil {
		t.Fatal(err)
	}

	registry := scoring.NewRegistry()
	recorder := &memoryReloadRecorder{}
	rw := NewRuleSetWatcher(dir, registry, 0, recorder, nil)

	rw.pending[goodPath] = struct{}{}
	rw.pending[badPath] = struct{}{}
	rw.reloadPending()

	if success, found := recorder.reloads["good"]; !found || !success {
		t.Errorf("good reload recorded as (%v, found=%v), want success", success, found)
	}
	if success, found := recorder.reloads["bad"]; !found || success {
		t.Errorf("bad reload recorded as (%v, found=%v), want failure", success, found)
	}

	if _, err := registry.Get("good"); err != nil {
		t.Errorf("good rule set not loaded: %v", err)
	}
	if _, err := registry.Get("bad"); err == nil {
		t.Error("rejected rule set should not be in the registry")
	}
}
