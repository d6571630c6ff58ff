// Package report derives read-only views over a task and its pause ledger and
// audit log. Nothing here touches the store or mutates its inputs.
package report

import (
	"github.com/gurkanbulca/tasktimer/internal/models"
)

// Stats aggregates a task's pause ledger. Only closed pauses contribute to
// durations; the active one is reported separately.
type Stats struct {
	TotalPauses          int            `json:"total_pauses"`
	TotalPauseDuration   int64          `json:"total_pause_duration"`
	TotalWorkingTime     int64          `json:"total_working_time"`
	AveragePauseDuration int64          `json:"average_pause_duration"`
	PausesByReason       map[string]int `json:"pauses_by_reason"`
	ActivePause          *models.Pause  `json:"active_pause"`
}

// ComputeStats builds the pause statistics of t from its full ledger.
func ComputeStats(t *models.Task, pauses []*models.Pause) Stats {
	s := Stats{
		TotalPauses:      len(pauses),
		TotalWorkingTime: t.TotalWorkingTime,
		PausesByReason:   countByReason(pauses),
	}

	var closed int64
	for _, p := range pauses {
		if p.Active() {
			s.ActivePause = p
			continue
		}
		s.TotalPauseDuration += p.Duration()
		closed++
	}
	if closed > 0 {
		s.AveragePauseDuration = s.TotalPauseDuration / closed
	}
	return s
}

func countByReason(pauses []*models.Pause) map[string]int {
	counts := make(map[string]int)
	for _, p := range pauses {
		counts[p.Reason]++
	}
	return counts
}

// mostCommonReason picks the highest count, breaking ties by the
// lexicographically smallest reason.
func mostCommonReason(counts map[string]int) string {
	var best string
	bestCount := 0
	for reason, n := range counts {
		if n > bestCount || (n == bestCount && reason < best) {
			best, bestCount = reason, n
		}
	}
	return best
}
