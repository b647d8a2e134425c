package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SpheneDev/VenuePlus-sub000/internal/db"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

const historyPrefixScan = 500

var (
	historyLimit       int
	historyEventsLimit int
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
	historyShowCmd.Flags().IntVar(&historyEventsLimit, "events", 200, "maximum number of events to show")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent macro runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase(cmd.Context(), GetConfig())
		if err != nil {
			return err
		}
		defer database.Close()

		runs, err := db.NewRunRepository(database).List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
			return nil
		}

		rows := make([][]string, 0, len(runs))
		for _, run := range runs {
			rows = append(rows, []string{
				shortID(run.ID),
				formatTimestamp(run.SubmittedAt),
				valueOr(run.Source, "-"),
				valueOr(run.Channel, "-"),
				strconv.Itoa(run.Sent),
				strconv.Itoa(run.Failed),
				formatOutcome(run.Outcome),
			})
		}
		return writeTable(cmd.OutOrStdout(), []string{"RUN", "SUBMITTED", "SOURCE", "CHANNEL", "SENT", "FAILED", "OUTCOME"}, rows)
	},
}

// runDetail is the JSON shape of a run with its events.
type runDetail struct {
	*models.Run
	Events []*models.RunEvent `json:"events"`
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run and its events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase(cmd.Context(), GetConfig())
		if err != nil {
			return err
		}
		defer database.Close()

		run, err := findRun(cmd.Context(), db.NewRunRepository(database), args[0])
		if errors.Is(err, db.ErrRunNotFound) {
			return &PreflightError{
				Message:  fmt.Sprintf("run %q not found", args[0]),
				Hint:     "Use a run ID or ID prefix shown by history",
				NextStep: "venueplus history",
			}
		}
		if err != nil {
			return err
		}

		runEvents, err := db.NewEventRepository(database).ListByRun(cmd.Context(), run.ID, historyEventsLimit)
		if err != nil {
			return err
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), runDetail{Run: run, Events: runEvents})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run:       %s\n", run.ID)
		fmt.Fprintf(out, "Source:    %s\n", valueOr(run.Source, "-"))
		fmt.Fprintf(out, "Channel:   %s\n", valueOr(run.Channel, "-"))
		fmt.Fprintf(out, "Submitted: %s\n", formatTimestamp(run.SubmittedAt))
		if run.CompletedAt != nil {
			fmt.Fprintf(out, "Completed: %s (%s)\n", formatTimestamp(*run.CompletedAt), formatDuration(run.CompletedAt.Sub(run.SubmittedAt)))
		}
		fmt.Fprintf(out, "Steps:     %d (%d sends)\n", run.StepCount, run.SendCount)
		fmt.Fprintf(out, "Result:    %d sent, %d failed  %s\n", run.Sent, run.Failed, formatOutcome(run.Outcome))

		if len(runEvents) == 0 {
			return nil
		}
		fmt.Fprintln(out)
		rows := make([][]string, 0, len(runEvents))
		for _, event := range runEvents {
			rows = append(rows, []string{
				event.Timestamp.Local().Format("15:04:05.000"),
				string(event.Type),
				truncate(string(event.Payload), 80),
			})
		}
		return writeTable(out, []string{"TIME", "EVENT", "PAYLOAD"}, rows)
	},
}

// findRun resolves a full run ID, or a unique prefix among recent runs.
func findRun(ctx context.Context, runs *db.RunRepository, id string) (*models.Run, error) {
	run, err := runs.Get(ctx, id)
	if !errors.Is(err, db.ErrRunNotFound) || len(id) < 4 {
		return run, err
	}

	recent, listErr := runs.List(ctx, historyPrefixScan)
	if listErr != nil {
		return nil, listErr
	}
	var match *models.Run
	for _, candidate := range recent {
		if !strings.HasPrefix(candidate.ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("run prefix %q is ambiguous", id)
		}
		match = candidate
	}
	if match == nil {
		return nil, err
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
