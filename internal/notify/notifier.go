package notify

import (
	"context"
	"fmt"

	"resumescreen/internal/scoring"
	"resumescreen/internal/store"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers candidate-facing email.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// FollowUpStep is one entry in the follow-up plan: an offset in days after
// the initial notification and the message to send then. Day 1 is the day
// of the initial notification itself.
type FollowUpStep struct {
	OffsetDays int
	Message    string
}

// DefaultFollowUpPlan is the standard eight-message cadence sent to
// shortlisted candidates over roughly three weeks.
var DefaultFollowUpPlan = []FollowUpStep{
	{1, "Thanks for applying - we received your resume."},
	{2, "Reminder: We are reviewing your application."},
	{4, "Update: Your application is under consideration."},
	{7, "Interview scheduling - next steps."},
	{10, "Final reminder - keep an eye on your inbox."},
	{14, "Status update from recruitment team."},
	{18, "Last call for confirmation."},
	{24, "Closing the application process. Thank you."},
}

// tierTemplates maps decision tiers to the initial notification body. Tiers
// outside the standard three get no initial mail.
var tierTemplates = map[scoring.Tier]struct {
	subject string
	body    string
}{
	scoring.TierShortlist: {
		subject: "Application update: next steps",
		body: "Hi %s,\n\nGood news: your application for %s has been shortlisted. " +
			"Our recruitment team will reach out shortly to schedule an interview.\n\n" +
			"Regards,\nRecruitment Team",
	},
	scoring.TierReview: {
		subject: "Application received",
		body: "Hi %s,\n\nThanks for applying for %s. Your application is under " +
			"review and we will get back to you with an update soon.\n\n" +
			"Regards,\nRecruitment Team",
	},
	scoring.TierReject: {
		subject: "Application update",
		body: "Hi %s,\n\nThank you for your interest in %s. After careful review " +
			"we will not be moving forward with your application at this time. " +
			"We encourage you to apply for future openings.\n\n" +
			"Regards,\nRecruitment Team",
	},
}

// InitialMessage builds the tier-appropriate notification for a scored
// candidate, or ok=false when the tier has no template or the candidate has
// no email address.
func InitialMessage(sc store.ScoredCandidate) (Message, bool) {
	if sc.Candidate.Email == "" {
		return Message{}, false
	}
	tpl, ok := tierTemplates[sc.Result.Tier]
	if !ok {
		return Message{}, false
	}

	name := sc.Candidate.Name
	if name == "" {
		name = "there"
	}
	return Message{
		To:      sc.Candidate.Email,
		Subject: tpl.subject,
		Body:    fmt.Sprintf(tpl.body, name, sc.Result.RuleSet),
	}, true
}

// FollowUpMessage builds follow-up number n (1-based) of the plan for a
// candidate email address.
func FollowUpMessage(email string, n int, step FollowUpStep) Message {
	return Message{
		To:      email,
		Subject: fmt.Sprintf("Follow-up #%d", n),
		Body:    step.Message,
	}
}
