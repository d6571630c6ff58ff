package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/gurkanbulca/tasktimer/internal/models"
	"github.com/gurkanbulca/tasktimer/internal/report"
	"github.com/gurkanbulca/tasktimer/internal/service"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}

// ago renders t relative to now, or "-" when unset.
func ago(t *time.Time, now time.Time) string {
	if t == nil {
		return "-"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}

func renderTasks(w io.Writer, tasks []models.Task, now time.Time) {
	table := newTable(w, "ID", "Title", "Priority", "Status", "Worked", "Pauses", "Due", "Created")
	for _, t := range tasks {
		due := ago(t.DueAt, now)
		if t.IsOverdue(now) {
			due += " (overdue)"
		}
		created := t.CreatedAt
		table.Append([]string{
			t.ID.String(),
			t.Title,
			string(t.Priority),
			string(t.Status),
			report.FormatDuration(t.TotalWorkingTime),
			strconv.Itoa(t.PauseCount),
			due,
			ago(&created, now),
		})
	}
	table.Render()
}

func renderBoard(w io.Writer, buckets map[models.Status][]service.TaskSummary) {
	table := newTable(w, "Status", "ID", "Title", "Priority", "Worked")
	for _, st := range models.Statuses() {
		for _, t := range buckets[st] {
			table.Append([]string{
				string(st),
				t.ID.String(),
				t.Title,
				string(t.Priority),
				report.FormatDuration(t.TotalWorkingTime),
			})
		}
	}
	table.Render()
}

func renderStats(w io.Writer, s report.Stats, now time.Time) {
	fmt.Fprintf(w, "Pauses:            %s\n", humanize.Comma(int64(s.TotalPauses)))
	fmt.Fprintf(w, "Working time:      %s\n", report.FormatDuration(s.TotalWorkingTime))
	fmt.Fprintf(w, "Pause time:        %s\n", report.FormatDuration(s.TotalPauseDuration))
	fmt.Fprintf(w, "Average pause:     %s\n", report.FormatDuration(s.AveragePauseDuration))
	if s.ActivePause != nil {
		fmt.Fprintf(w, "Paused since:      %s (%s)\n", ago(&s.ActivePause.PausedAt, now), s.ActivePause.Reason)
	}
	if len(s.PausesByReason) == 0 {
		return
	}

	reasons := make([]string, 0, len(s.PausesByReason))
	for r := range s.PausesByReason {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)

	table := newTable(w, "Reason", "Count")
	for _, r := range reasons {
		table.Append([]string{r, strconv.Itoa(s.PausesByReason[r])})
	}
	table.Render()
}

func renderPauses(w io.Writer, pauses []models.Pause, now time.Time) {
	table := newTable(w, "Paused", "Resumed", "Duration", "Worked before", "Reason", "Progress")
	for _, p := range pauses {
		paused := p.PausedAt
		duration := report.FormatDuration(p.Duration())
		if p.Active() {
			duration = "Ongoing"
		}
		table.Append([]string{
			ago(&paused, now),
			ago(p.ResumedAt, now),
			duration,
			report.FormatDuration(p.WorkDuration),
			p.Reason,
			fmt.Sprintf("%d%%", p.ProgressPercentage),
		})
	}
	table.Render()
}

func renderTimeline(w io.Writer, entries []report.TimelineEntry, now time.Time) {
	table := newTable(w, "When", "Type", "Detail")
	for _, e := range entries {
		at := e.CreatedAt
		detail := e.Description
		if e.Kind == report.KindSnapshot && e.Snapshot != nil && e.Snapshot.Snapshot != nil {
			detail = snapshotDetail(e.Snapshot)
		}
		table.Append([]string{ago(&at, now), string(e.Kind), detail})
	}
	table.Render()
}

func snapshotDetail(s *report.SnapshotView) string {
	progress := "-"
	if s.ProgressAtSnapshot != nil {
		progress = fmt.Sprintf("%d%%", *s.ProgressAtSnapshot)
	}
	detail := fmt.Sprintf("%s snapshot, progress %s, worked %s (+%s)",
		s.Type, progress, report.FormatDuration(s.TotalTimeAtSnapshot), report.FormatDuration(s.TimeChange))
	if s.ProgressChange != nil {
		detail += fmt.Sprintf(", progress %+d", *s.ProgressChange)
	}
	return detail
}

func renderReport(w io.Writer, r *report.Report, now time.Time) {
	d := r.TaskDetails
	fmt.Fprintf(w, "%s [%s, %s priority]\n", d.Title, d.Status, d.Priority)
	fmt.Fprintf(w, "Started:           %s\n", ago(d.StartedAt, now))
	if d.CompletedAt != nil {
		fmt.Fprintf(w, "Completed:         %s\n", ago(d.CompletedAt, now))
	}

	ts := r.TimeSummary
	fmt.Fprintf(w, "Working time:      %s\n", ts.TotalWorkingTimeFormatted)
	fmt.Fprintf(w, "Pause time:        %s\n", ts.TotalPauseTimeFormatted)
	fmt.Fprintf(w, "Elapsed:           %s\n", ts.TotalElapsedTimeFormatted)
	fmt.Fprintf(w, "Productive:        %s%%\n", humanize.FtoaWithDigits(ts.ProductiveTimePercentage, 2))
	if ts.CurrentSessionDuration > 0 {
		fmt.Fprintf(w, "Current session:   %s\n", ts.CurrentSessionDurationFormatted)
	}
	if r.Statistics.MostCommonReason != "" {
		fmt.Fprintf(w, "Top pause reason:  %s\n", r.Statistics.MostCommonReason)
	}
	if len(r.PauseHistory.Pauses) == 0 {
		return
	}

	table := newTable(w, "#", "Paused", "Duration", "Worked before", "Reason", "Progress")
	for _, p := range r.PauseHistory.Pauses {
		paused := p.PausedAt
		duration := p.PauseDurationFormatted
		if p.IsActive {
			duration = "Ongoing"
		}
		table.Append([]string{
			strconv.Itoa(p.PauseNumber),
			ago(&paused, now),
			duration,
			p.WorkBeforePauseFormatted,
			p.Reason,
			fmt.Sprintf("%d%%", p.ProgressPercentage),
		})
	}
	table.Render()
}
