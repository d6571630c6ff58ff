package report

import (
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/tasktimer/internal/models"
)

// Report is the full read-only view of one task.
type Report struct {
	TaskDetails  TaskDetails  `json:"task_details"`
	PauseHistory PauseHistory `json:"pause_history"`
	TimeSummary  TimeSummary  `json:"time_summary"`
	Statistics   Statistics   `json:"statistics"`
}

type TaskDetails struct {
	ID            uuid.UUID       `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Priority      models.Priority `json:"priority"`
	Status        models.Status   `json:"status"`
	DueAt         *time.Time      `json:"due_at,omitempty"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	LastResumedAt *time.Time      `json:"last_resumed_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type PauseHistory struct {
	TotalPauses             int           `json:"total_pauses"`
	Pauses                  []PauseDetail `json:"pauses"`
	TotalPauseTime          int64         `json:"total_pause_time"`
	TotalPauseTimeFormatted string        `json:"total_pause_time_formatted"`
}

// PauseDetail is one numbered pause, newest first in PauseHistory.
type PauseDetail struct {
	ID                       uuid.UUID  `json:"id"`
	PauseNumber              int        `json:"pause_number"`
	PausedAt                 time.Time  `json:"paused_at"`
	ResumedAt                *time.Time `json:"resumed_at"`
	PauseDuration            int64      `json:"pause_duration"`
	PauseDurationFormatted   string     `json:"pause_duration_formatted"`
	WorkBeforePause          int64      `json:"work_before_pause"`
	WorkBeforePauseFormatted string     `json:"work_before_pause_formatted"`
	Reason                   string     `json:"reason"`
	Comment                  string     `json:"comment"`
	ProgressPercentage       int        `json:"progress_percentage"`
	IsActive                 bool       `json:"is_active"`
}

type TimeSummary struct {
	TotalWorkingTime                int64   `json:"total_working_time"`
	TotalWorkingTimeFormatted       string  `json:"total_working_time_formatted"`
	TotalPauseTime                  int64   `json:"total_pause_time"`
	TotalPauseTimeFormatted         string  `json:"total_pause_time_formatted"`
	TotalElapsedTime                int64   `json:"total_elapsed_time"`
	TotalElapsedTimeFormatted       string  `json:"total_elapsed_time_formatted"`
	ProductiveTimePercentage        float64 `json:"productive_time_percentage"`
	CurrentSessionDuration          int64   `json:"current_session_duration"`
	CurrentSessionDurationFormatted string  `json:"current_session_duration_formatted"`
}

type Statistics struct {
	PauseCount                    int            `json:"pause_count"`
	AveragePauseDuration          int64          `json:"average_pause_duration"`
	AveragePauseDurationFormatted string         `json:"average_pause_duration_formatted"`
	LongestPause                  *PauseInfo     `json:"longest_pause"`
	ShortestPause                 *PauseInfo     `json:"shortest_pause"`
	PausesByReason                map[string]int `json:"pauses_by_reason"`
	MostCommonReason              string         `json:"most_common_reason,omitempty"`
}

type PauseInfo struct {
	ID                uuid.UUID  `json:"id"`
	Duration          int64      `json:"duration"`
	DurationFormatted string     `json:"duration_formatted"`
	Reason            string     `json:"reason"`
	PausedAt          time.Time  `json:"paused_at"`
	ResumedAt         *time.Time `json:"resumed_at"`
}

// Build projects t and its pauses at instant now.
func Build(t *models.Task, pauses []*models.Pause, now time.Time) *Report {
	chrono := Chronological(pauses)
	stats := ComputeStats(t, chrono)

	return &Report{
		TaskDetails: TaskDetails{
			ID:            t.ID,
			Title:         t.Title,
			Description:   t.Description,
			Priority:      t.Priority,
			Status:        t.Status,
			DueAt:         t.DueAt,
			StartedAt:     t.StartedAt,
			LastResumedAt: t.LastResumedAt,
			CompletedAt:   t.CompletedAt,
			CreatedAt:     t.CreatedAt,
			UpdatedAt:     t.UpdatedAt,
		},
		PauseHistory: PauseHistory{
			TotalPauses:             t.PauseCount,
			Pauses:                  pauseDetails(chrono),
			TotalPauseTime:          stats.TotalPauseDuration,
			TotalPauseTimeFormatted: FormatDuration(stats.TotalPauseDuration),
		},
		TimeSummary: timeSummary(t, stats, now),
		Statistics: Statistics{
			PauseCount:                    t.PauseCount,
			AveragePauseDuration:          stats.AveragePauseDuration,
			AveragePauseDurationFormatted: FormatDuration(stats.AveragePauseDuration),
			LongestPause:                  longestPause(chrono),
			ShortestPause:                 shortestPause(chrono),
			PausesByReason:                stats.PausesByReason,
			MostCommonReason:              mostCommonReason(stats.PausesByReason),
		},
	}
}

// Chronological returns a copy of pauses ordered by paused_at.
func Chronological(pauses []*models.Pause) []*models.Pause {
	out := slices.Clone(pauses)
	slices.SortStableFunc(out, func(a, b *models.Pause) int {
		return a.PausedAt.Compare(b.PausedAt)
	})
	return out
}

// pauseDetails numbers chronologically ordered pauses from 1 and returns them
// newest first.
func pauseDetails(chrono []*models.Pause) []PauseDetail {
	details := make([]PauseDetail, len(chrono))
	for i, p := range chrono {
		d := p.Duration()
		details[len(chrono)-1-i] = PauseDetail{
			ID:                       p.ID,
			PauseNumber:              i + 1,
			PausedAt:                 p.PausedAt,
			ResumedAt:                p.ResumedAt,
			PauseDuration:            d,
			PauseDurationFormatted:   FormatDuration(d),
			WorkBeforePause:          p.WorkDuration,
			WorkBeforePauseFormatted: FormatDuration(p.WorkDuration),
			Reason:                   p.Reason,
			Comment:                  p.Comment,
			ProgressPercentage:       p.ProgressPercentage,
			IsActive:                 p.Active(),
		}
	}
	return details
}

func timeSummary(t *models.Task, stats Stats, now time.Time) TimeSummary {
	elapsed := t.TotalElapsedTime(now)
	session := t.CurrentSessionDuration(now)
	return TimeSummary{
		TotalWorkingTime:                t.TotalWorkingTime,
		TotalWorkingTimeFormatted:       FormatDuration(t.TotalWorkingTime),
		TotalPauseTime:                  stats.TotalPauseDuration,
		TotalPauseTimeFormatted:         FormatDuration(stats.TotalPauseDuration),
		TotalElapsedTime:                elapsed,
		TotalElapsedTimeFormatted:       FormatDuration(elapsed),
		ProductiveTimePercentage:        ProductivePercentage(t.TotalWorkingTime, elapsed),
		CurrentSessionDuration:          session,
		CurrentSessionDurationFormatted: FormatDuration(session),
	}
}

// ProductivePercentage is working/elapsed as a percentage rounded to two
// decimals, 0 when nothing has elapsed.
func ProductivePercentage(working, elapsed int64) float64 {
	if elapsed <= 0 {
		return 0
	}
	return math.Round(float64(working)/float64(elapsed)*100*100) / 100
}

// longestPause keeps the first of equally long closed pauses.
func longestPause(chrono []*models.Pause) *PauseInfo {
	var best *models.Pause
	for _, p := range chrono {
		if p.Active() {
			continue
		}
		if best == nil || p.Duration() > best.Duration() {
			best = p
		}
	}
	return pauseInfo(best)
}

func shortestPause(chrono []*models.Pause) *PauseInfo {
	var best *models.Pause
	for _, p := range chrono {
		if p.Active() {
			continue
		}
		if best == nil || p.Duration() < best.Duration() {
			best = p
		}
	}
	return pauseInfo(best)
}

func pauseInfo(p *models.Pause) *PauseInfo {
	if p == nil {
		return nil
	}
	return &PauseInfo{
		ID:                p.ID,
		Duration:          p.Duration(),
		DurationFormatted: FormatDuration(p.Duration()),
		Reason:            p.Reason,
		PausedAt:          p.PausedAt,
		ResumedAt:         p.ResumedAt,
	}
}
