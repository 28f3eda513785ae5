package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"resumescreen/internal/errors"
	"resumescreen/internal/extract"
	"resumescreen/internal/notify"
	"resumescreen/internal/observability"
	"resumescreen/internal/scoring"
	"resumescreen/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Pipeline runs the batch screening flow: fetch raw resumes, extract
// candidate records, score them against a job posting's rule set, persist
// the results, and send tier-appropriate notifications.
type Pipeline struct {
	Source    store.CandidateSource
	Extractor extract.Extractor
	Registry  *scoring.Registry
	RuleSet   string
	Stores    []store.ResultStore
	Notifier  notify.Notifier
	FollowUps *FollowUpScheduler
	Workers   int
	Logger    *errors.Logger
	Metrics   *observability.Metrics
}

// Stats summarizes one pipeline run.
type Stats struct {
	Fetched      int                  `json:"fetched"`
	Scored       int                  `json:"scored"`
	Failed       int                  `json:"failed"`
	Disqualified int                  `json:"disqualified"`
	Notified     int                  `json:"notified"`
	ByTier       map[scoring.Tier]int `json:"byTier"`
}

// Run executes one batch over the source. Failures are per-candidate: a
// resume that cannot be extracted or stored is counted and logged, and the
// rest of the batch continues. Run fails outright only when the source or
// the rule set is unusable.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	tracer := otel.Tracer("resumescreen.pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()

	stats := Stats{ByTier: make(map[scoring.Tier]int)}

	rules, err := p.Registry.Get(p.RuleSet)
	if err != nil {
		span.RecordError(err)
		return stats, err
	}

	resumes, err := p.Source.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		return stats, err
	}
	stats.Fetched = len(resumes)
	span.SetAttributes(
		attribute.String("rule_set", p.RuleSet),
		attribute.Int("candidates", len(resumes)),
	)

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan extract.RawResume)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for resume := range jobs {
				outcome := p.processOne(ctx, resume, rules)

				mu.Lock()
				if outcome.failed {
					stats.Failed++
				} else {
					stats.Scored++
					stats.ByTier[outcome.tier]++
					if outcome.disqualified {
						stats.Disqualified++
					}
					if outcome.notified {
						stats.Notified++
					}
				}
				mu.Unlock()
			}
		}()
	}

	for _, resume := range resumes {
		select {
		case jobs <- resume:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return stats, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if p.Logger != nil {
		p.Logger.Info("Pipeline run complete",
			"rule_set", p.RuleSet,
			"fetched", stats.Fetched,
			"scored", stats.Scored,
			"failed", stats.Failed,
			"disqualified", stats.Disqualified,
			"notified", stats.Notified)
	}
	return stats, nil
}

type outcome struct {
	failed       bool
	disqualified bool
	notified     bool
	tier         scoring.Tier
}

// processOne runs one candidate through extract, score, store and notify.
func (p *Pipeline) processOne(ctx context.Context, resume extract.RawResume, rules *scoring.RuleSet) outcome {
	extractStart := time.Now()
	candidate, err := p.Extractor.Extract(ctx, resume)
	if p.Metrics != nil {
		p.Metrics.RecordExtraction(ctx, extractorName(p.Extractor), err, time.Since(extractStart))
	}
	if err != nil {
		if p.Logger != nil {
			p.Logger.LogError(err, "Extraction failed", "candidate", resume.Email)
		}
		return outcome{failed: true}
	}

	scoreStart := time.Now()
	result, err := scoring.Score(candidate, rules)
	if err != nil {
		// Only an unusable rule set reaches here, and the registry never
		// installs one. Treat it as a per-candidate failure anyway.
		if p.Logger != nil {
			p.Logger.LogError(err, "Scoring failed", "candidate", resume.Email)
		}
		return outcome{failed: true}
	}
	if p.Metrics != nil {
		p.Metrics.RecordScore(ctx, result.RuleSet, string(result.Tier), result.Disqualified, time.Since(scoreStart))
	}

	sc := store.ScoredCandidate{
		Candidate:            candidate,
		Result:               result,
		CandidateFingerprint: candidate.Fingerprint(),
		RuleSetFingerprint:   rules.Fingerprint(),
		ScoredAt:             time.Now().UTC(),
	}

	stored := false
	for _, st := range p.Stores {
		if err := st.Append(ctx, sc); err != nil {
			if p.Metrics != nil {
				p.Metrics.RecordStoreFailure(ctx, fmt.Sprintf("%T", st))
			}
			if p.Logger != nil {
				p.Logger.LogError(err, "Store append failed", "candidate", resume.Email)
			}
			continue
		}
		stored = true
	}
	if !stored && len(p.Stores) > 0 {
		// A result that landed nowhere is lost; count the candidate failed.
		return outcome{failed: true}
	}

	o := outcome{tier: result.Tier, disqualified: result.Disqualified}
	o.notified = p.notifyCandidate(ctx, sc)
	return o
}

// notifyCandidate sends the initial tier notification and, for shortlisted
// candidates, schedules the follow-up plan. Notification failures never fail
// the candidate: the score is already persisted.
func (p *Pipeline) notifyCandidate(ctx context.Context, sc store.ScoredCandidate) bool {
	if p.Notifier == nil {
		return false
	}

	msg, ok := notify.InitialMessage(sc)
	if !ok {
		return false
	}
	if err := p.Notifier.Send(ctx, msg); err != nil {
		if p.Metrics != nil {
			p.Metrics.RecordNotifyFailure(ctx)
		}
		if p.Logger != nil {
			p.Logger.LogError(err, "Notification failed", "candidate", sc.Candidate.Email)
		}
		return false
	}

	if p.FollowUps != nil && sc.Result.Tier == scoring.TierShortlist {
		p.FollowUps.Schedule(sc.Candidate.Email)
	}
	return true
}

// extractorName labels extraction metrics by provider.
func extractorName(e extract.Extractor) string {
	switch e.(type) {
	case *extract.GeminiExtractor:
		return "gemini"
	case *extract.HeuristicExtractor:
		return "heuristic"
	default:
		return fmt.Sprintf("%T", e)
	}
}
