package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Well-known pause reasons. Reasons are free-form; these are the values
// clients offer by default.
const (
	PauseReasonBreak          = "break"
	PauseReasonBlocker        = "blocker"
	PauseReasonWaitingForInfo = "waiting_for_info"
	PauseReasonDependency     = "dependency"
	PauseReasonOther          = "other"
)

// Pause is one entry of a task's pause ledger.
// ResumedAt is nil while the pause is active.
type Pause struct {
	ID                 uuid.UUID  `json:"id"`
	TaskID             uuid.UUID  `json:"task_id"`
	PausedAt           time.Time  `json:"paused_at"`
	ResumedAt          *time.Time `json:"resumed_at,omitempty"`
	WorkDuration       int64      `json:"work_duration"`
	Reason             string     `json:"reason"`
	Comment            string     `json:"comment,omitempty"`
	ProgressPercentage int        `json:"progress_percentage"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (p *Pause) Active() bool {
	return p.ResumedAt == nil
}

// Duration is how long the pause lasted, 0 while it is still active.
func (p *Pause) Duration() int64 {
	if p.ResumedAt == nil {
		return 0
	}
	return ElapsedSeconds(p.PausedAt, *p.ResumedAt)
}

// PauseInput carries the caller-supplied pause parameters.
type PauseInput struct {
	Reason   string
	Comment  string
	Progress *int
}

// PauseLimits bounds free-text pause fields.
type PauseLimits struct {
	MaxReasonLength  int
	MaxCommentLength int
}

func DefaultPauseLimits() PauseLimits {
	return PauseLimits{MaxReasonLength: 255, MaxCommentLength: 2000}
}

// Normalize trims the free-text fields.
func (in PauseInput) Normalize() PauseInput {
	in.Reason = strings.TrimSpace(in.Reason)
	in.Comment = strings.TrimSpace(in.Comment)
	return in
}

// Validate checks the input; out-of-range progress is rejected, never clamped.
func (in PauseInput) Validate(limits PauseLimits) error {
	verr := &ValidationError{}

	if in.Reason == "" {
		verr.Add("reason", "is required")
	} else if limits.MaxReasonLength > 0 && len(in.Reason) > limits.MaxReasonLength {
		verr.Addf("reason", "must be at most %d characters", limits.MaxReasonLength)
	} else if HasControlChars(in.Reason) {
		verr.Add("reason", "must not contain control characters")
	}
	if limits.MaxCommentLength > 0 && len(in.Comment) > limits.MaxCommentLength {
		verr.Addf("comment", "must be at most %d characters", limits.MaxCommentLength)
	}
	if in.Progress != nil && (*in.Progress < 0 || *in.Progress > 100) {
		verr.Add("progress", "must be between 0 and 100")
	}

	return verr.OrNil()
}

func (in PauseInput) progress() int {
	if in.Progress == nil {
		return 0
	}
	return *in.Progress
}

// HasControlChars reports whether s contains line breaks or other control
// characters, which single-line fields such as titles and reasons reject.
func HasControlChars(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
