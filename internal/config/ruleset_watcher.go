package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"resumescreen/internal/errors"
	"resumescreen/internal/scoring"

	"github.com/fsnotify/fsnotify"
)

// ReloadRecorder receives the outcome of every rule set reload attempt.
// The observability metrics satisfy it.
type ReloadRecorder interface {
	RecordRuleSetReload(ctx context.Context, ruleSet string, success bool)
}

// RuleSetWatcher watches the rule set directory and reloads changed files
// into the registry. Reloads are debounced so an editor writing a file in
// several bursts triggers one reload. A file that fails validation leaves
// the previously loaded rule set in place.
type RuleSetWatcher struct {
	mu sync.RWMutex

	dir      string
	registry *scoring.Registry

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan string

	recorder ReloadRecorder
	logger   *errors.Logger

	running bool
	pending map[string]struct{}
}

// NewRuleSetWatcher creates a watcher over dir that reloads into registry.
// A nil recorder disables reload metrics.
func NewRuleSetWatcher(dir string, registry *scoring.Registry, debounceDelay time.Duration, recorder ReloadRecorder, logger *errors.Logger) *RuleSetWatcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}

	return &RuleSetWatcher{
		dir:           dir,
		registry:      registry,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan string, 1),
		recorder:      recorder,
		logger:        logger,
		pending:       make(map[string]struct{}),
	}
}

// Start begins watching the rule set directory
func (rw *RuleSetWatcher) Start() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.running {
		return fmt.Errorf("rule set watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(rw.dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil && rw.logger != nil {
			rw.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
		return fmt.Errorf("failed to watch rule set directory %s: %w", rw.dir, err)
	}
	rw.fsWatcher = watcher

	rw.running = true
	go rw.watchLoop()

	if rw.logger != nil {
		rw.logger.Info("Rule set watcher started",
			"directory", rw.dir,
			"debounce_delay", rw.debounceDelay)
	}
	return nil
}

// Stop stops the watcher
func (rw *RuleSetWatcher) Stop() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if !rw.running {
		return nil
	}

	close(rw.stopChan)

	if rw.debounceTimer != nil {
		rw.debounceTimer.Stop()
	}

	if rw.fsWatcher != nil {
		if err := rw.fsWatcher.Close(); err != nil {
			if rw.logger != nil {
				rw.logger.LogError(err, "Failed to close file system watcher")
			}
			return err
		}
	}

	rw.running = false

	if rw.logger != nil {
		rw.logger.Info("Rule set watcher stopped")
	}
	return nil
}

// IsRunning returns whether the watcher is currently running
func (rw *RuleSetWatcher) IsRunning() bool {
	rw.mu.RLock()
	defer rw.mu.RUnlock()
	return rw.running
}

// watchLoop is the main event loop for file watching
func (rw *RuleSetWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-rw.fsWatcher.Events:
			if !ok {
				return
			}
			if rw.shouldProcessEvent(event) {
				rw.scheduleReload(event.Name)
			}

		case err, ok := <-rw.fsWatcher.Errors:
			if !ok {
				return
			}
			if rw.logger != nil {
				rw.logger.LogError(err, "Rule set watcher error")
			}

		case <-rw.reloadChan:
			rw.reloadPending()

		case <-rw.stopChan:
			return
		}
	}
}

// shouldProcessEvent filters events down to rule set file modifications
func (rw *RuleSetWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if !isRuleSetFile(filepath.Base(event.Name)) {
		return false
	}
	// Write and create cover normal saves, rename covers atomic writes.
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// scheduleReload records the changed file and resets the debounce timer
func (rw *RuleSetWatcher) scheduleReload(path string) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	rw.pending[path] = struct{}{}

	if rw.debounceTimer != nil {
		rw.debounceTimer.Stop()
	}
	rw.debounceTimer = time.AfterFunc(rw.debounceDelay, func() {
		select {
		case rw.reloadChan <- "":
		default:
			// Reload already scheduled
		}
	})
}

// reloadPending reloads every file that changed since the last reload
func (rw *RuleSetWatcher) reloadPending() {
	rw.mu.Lock()
	paths := make([]string, 0, len(rw.pending))
	for path := range rw.pending {
		paths = append(paths, path)
	}
	rw.pending = make(map[string]struct{})
	rw.mu.Unlock()

	for _, path := range paths {
		name, cfg, err := LoadRuleSetFile(path)
		if err != nil {
			if rw.logger != nil {
				rw.logger.LogError(err, "Failed to read changed rule set file", "file", path)
			}
			continue
		}
		if _, err := rw.registry.Load(name, cfg); err != nil {
			// Keep serving the previously loaded rule set for this posting.
			if rw.recorder != nil {
				rw.recorder.RecordRuleSetReload(context.Background(), name, false)
			}
			if rw.logger != nil {
				rw.logger.LogError(err, "Rejected changed rule set, keeping previous version",
					"file", path, "rule_set", name)
			}
			continue
		}
		if rw.recorder != nil {
			rw.recorder.RecordRuleSetReload(context.Background(), name, true)
		}
		if rw.logger != nil {
			rw.logger.Info("Rule set reloaded", "file", path, "rule_set", name)
		}
	}
}
