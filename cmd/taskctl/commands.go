package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gurkanbulca/tasktimer/internal/models"
	"github.com/gurkanbulca/tasktimer/internal/report"
	"github.com/gurkanbulca/tasktimer/internal/service"
)

type taskResponse struct {
	Task models.Task `json:"task"`
}

func createCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [title]",
		Short: "Create a pending task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"title": args[0]}
			if d, _ := cmd.Flags().GetString("description"); d != "" {
				req["description"] = d
			}
			if p, _ := cmd.Flags().GetString("priority"); p != "" {
				req["priority"] = p
			}
			if due, _ := cmd.Flags().GetString("due"); due != "" {
				dueAt, err := parseDue(due, a.now())
				if err != nil {
					return err
				}
				req["due_at"] = dueAt.Format(time.RFC3339)
			}

			var resp taskResponse
			if err := a.call(cmd, "CreateTask", req, &resp); err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) { renderTasks(w, []models.Task{resp.Task}, a.now()) })
		},
	}
	cmd.Flags().String("description", "", "task description")
	cmd.Flags().String("priority", "", "low, medium or high")
	cmd.Flags().String("due", "", "due date as RFC3339 or a duration from now such as 48h")
	return cmd
}

// parseDue accepts an RFC3339 timestamp or a duration relative to now.
func parseDue(raw string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--due must be RFC3339 or a duration, got %q", raw)
	}
	return now.Add(d).UTC(), nil
}

func listCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := map[string]any{}
			if s, _ := cmd.Flags().GetString("status"); s != "" {
				req["status"] = s
			}
			if p, _ := cmd.Flags().GetString("priority"); p != "" {
				req["priority"] = p
			}
			if n, _ := cmd.Flags().GetInt("limit"); n > 0 {
				req["limit"] = n
			}

			var resp struct {
				Tasks []models.Task `json:"tasks"`
			}
			if err := a.call(cmd, "ListTasks", req, &resp); err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) { renderTasks(w, resp.Tasks, a.now()) })
		},
	}
	cmd.Flags().String("status", "", "comma separated statuses")
	cmd.Flags().String("priority", "", "low, medium or high")
	cmd.Flags().IntP("limit", "n", 0, "maximum number of tasks")
	return cmd
}

func boardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show tasks grouped by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				TasksByStatus map[models.Status][]service.TaskSummary `json:"tasks_by_status"`
			}
			if err := a.call(cmd, "TasksByStatus", nil, &resp); err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) { renderBoard(w, resp.TasksByStatus) })
		},
	}
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a task with its pauses and audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.call(cmd, "DeleteTask", map[string]any{"id": args[0]}, nil); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	}
}

// transitionCmd builds the commands that only take a task id and return it.
func transitionCmd(a *app, use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp taskResponse
			if err := a.call(cmd, method, map[string]any{"id": args[0]}, &resp); err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) { renderTasks(w, []models.Task{resp.Task}, a.now()) })
		},
	}
}

func startCmd(a *app) *cobra.Command {
	return transitionCmd(a, "start", "Start a pending task", "StartTask")
}

func resumeCmd(a *app) *cobra.Command {
	return transitionCmd(a, "resume", "Resume a paused task", "ResumeTask")
}

func completeCmd(a *app) *cobra.Command {
	return transitionCmd(a, "complete", "Complete a running task", "CompleteTask")
}

func pauseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pause [id]",
		Short: "Pause a running task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")
			req := map[string]any{"id": args[0], "reason": reason}
			if c, _ := cmd.Flags().GetString("comment"); c != "" {
				req["comment"] = c
			}
			if cmd.Flags().Changed("progress") {
				p, _ := cmd.Flags().GetInt("progress")
				req["progress"] = p
			}

			var resp struct {
				Pause models.Pause `json:"pause"`
				Task  models.Task  `json:"task"`
				Stats *report.Stats `json:"stats"`
			}
			if err := a.call(cmd, "PauseTask", req, &resp); err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) {
				renderTasks(w, []models.Task{resp.Task}, a.now())
				if resp.Stats != nil {
					renderStats(w, *resp.Stats, a.now())
				}
			})
		},
	}
	cmd.Flags().StringP("reason", "r", "", "why the task is paused")
	cmd.Flags().StringP("comment", "c", "", "free text comment")
	cmd.Flags().IntP("progress", "p", 0, "progress percentage at the pause, 0 to 100")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func statsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [id]",
		Short: "Show pause statistics of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Stats report.Stats `json:"stats"`
			}
			if err := a.call(cmd, "GetPauseStats", map[string]any{"id": args[0]}, &resp); err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) { renderStats(w, resp.Stats, a.now()) })
		},
	}
}

func historyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history [id]",
		Short: "Show the pause history of a task, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Pauses []models.Pause `json:"pauses"`
			}
			if err := a.call(cmd, "GetPauseHistory", map[string]any{"id": args[0]}, &resp); err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) { renderPauses(w, resp.Pauses, a.now()) })
		},
	}
}

func timelineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline [id]",
		Short: "Show events and snapshots of a task, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Timeline []report.TimelineEntry `json:"timeline"`
			}
			if err := a.call(cmd, "GetTimeline", map[string]any{"id": args[0]}, &resp); err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) { renderTimeline(w, resp.Timeline, a.now()) })
		},
	}
}

func reportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report [id]",
		Short: "Show the full time report of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Report report.Report `json:"report"`
			}
			if err := a.call(cmd, "GetReport", map[string]any{"id": args[0]}, &resp); err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) { renderReport(w, &resp.Report, a.now()) })
		},
	}
}
