package report

import (
	"fmt"
	"strings"
)

// FormatDuration renders seconds as "1h 2m 3s", omitting zero units.
// Zero renders as "0s".
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

// FormatClock renders seconds as zero-padded hours and minutes, e.g. "01h 05m".
func FormatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02dh %02dm", seconds/3600, (seconds%3600)/60)
}
