package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tonearm/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the enrichment queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var (
		states     []string
		failedOnly bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List enrichment jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseStates(states)
			if err != nil {
				return err
			}
			if failedOnly {
				filter = append(filter, queue.StateFailed)
			}
			return ctx.withStores(cmd, func(runCtx context.Context, s *stores) error {
				jobs, err := s.queue.List(runCtx, filter...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, jobViews(jobs))
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Artist", "Audio", "State", "Attempts", "Created", "Next attempt", "Error"},
					buildJobRows(jobs),
					0, 2, 4,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&states, "state", "s", nil, "Filter by state: pending, retrying, claimed, failed (repeatable)")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only show failed jobs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write JSON instead of a table")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(cmd, func(runCtx context.Context, s *stores) error {
				health, err := s.queue.Health(runCtx)
				if err != nil {
					return err
				}
				writeKeyValues(cmd.OutOrStdout(), [][2]string{
					{"Total", strconv.Itoa(health.Total)},
					{"Pending", strconv.Itoa(health.Pending)},
					{"Retrying", strconv.Itoa(health.Retrying)},
					{"Claimed", strconv.Itoa(health.Claimed)},
					{"Failed", strconv.Itoa(health.Failed)},
					{"Oldest pending", formatTime(health.OldestPending)},
				})
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Return failed jobs to pending (all failed jobs when no id is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStores(cmd, func(runCtx context.Context, s *stores) error {
				n, err := s.queue.RetryFailed(runCtx, ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retrying %d failed jobs\n", n)
				return nil
			})
		},
	}
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Delete failed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(cmd, func(runCtx context.Context, s *stores) error {
				n, err := s.queue.ClearFailed(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed jobs\n", n)
				return nil
			})
		},
	}
}

func parseStates(values []string) ([]queue.State, error) {
	states := make([]queue.State, 0, len(values))
	for _, v := range values {
		state := queue.State(strings.ToLower(strings.TrimSpace(v)))
		switch state {
		case queue.StatePending, queue.StateRetrying, queue.StateClaimed, queue.StateFailed:
			states = append(states, state)
		default:
			return nil, fmt.Errorf("unknown queue state %q", v)
		}
	}
	return states, nil
}

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid job id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type jobView struct {
	ID            int64  `json:"id"`
	State         string `json:"state"`
	AudioID       int64  `json:"audio_id,omitempty"`
	Artist        string `json:"artist,omitempty"`
	Payload       string `json:"payload"`
	Attempts      int    `json:"attempts"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"created_at"`
	NextAttemptAt string `json:"next_attempt_at,omitempty"`
}

func jobViews(jobs []*queue.Job) []jobView {
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		view := jobView{
			ID:        job.ID,
			State:     string(job.State()),
			Payload:   job.RawPayload,
			Attempts:  job.Attempts,
			Error:     job.Error,
			CreatedAt: job.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
		if body := job.Payload.AudioArtist; body != nil {
			view.AudioID = body.AudioID
			view.Artist = body.Artist
		}
		if job.NextAttemptAt != nil {
			view.NextAttemptAt = job.NextAttemptAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		views = append(views, view)
	}
	return views
}

func buildJobRows(jobs []*queue.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		artist, audio := "(malformed)", "-"
		if body := job.Payload.AudioArtist; body != nil {
			artist = body.Artist
			audio = strconv.FormatInt(body.AudioID, 10)
		}
		created := job.CreatedAt
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			artist,
			audio,
			string(job.State()),
			strconv.Itoa(job.Attempts),
			formatTime(&created),
			formatTime(job.NextAttemptAt),
			truncate(job.Error, 60),
		})
	}
	return rows
}

func truncate(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max-1]) + "…"
}
