package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SpheneDev/VenuePlus-sub000/internal/dispatch"
	"github.com/SpheneDev/VenuePlus-sub000/internal/macro"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
	"github.com/SpheneDev/VenuePlus-sub000/internal/scheduler"
)

var (
	runDrain     bool
	runNoHistory bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	addInputFlags(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&runDrain, "drain", false, "sleep straight to each wake time instead of ticking")
	cmd.Flags().BoolVar(&runNoHistory, "no-history", false, "do not record the run in history")
}

var runCmd = &cobra.Command{
	Use:   "run [line...]",
	Short: "Compile macro text and send it",
	Long: `Compile macro text and deliver each line to stdout, spaced by the chat
cooldowns. Status changes go to stderr. Exits with status 1 when nothing
was sent.`,
	Example: `  venueplus run -c shout "Doors open at 9!" "/wait 2" "Free drinks for the first ten guests"
  cat announcement.txt | venueplus run -c yell --stdin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readMacroInput(args, inputFile, inputStdin, cmd.InOrStdin(), stdinPiped())
		if err != nil {
			return err
		}
		opts, err := parserOptions(GetConfig(), inputChannel, inputTarget)
		if err != nil {
			return err
		}

		return executeRun(cmd, runRequest{
			steps:   macro.Parse(text, opts),
			source:  "text",
			channel: opts.Channel,
		})
	},
}

type runRequest struct {
	steps   []models.Step
	source  string
	channel models.Channel
}

// runSummary is the JSON result of a run.
type runSummary struct {
	RunID     string         `json:"run_id"`
	Source    string         `json:"source"`
	Channel   models.Channel `json:"channel"`
	Sent      int            `json:"sent"`
	Failed    int            `json:"failed"`
	Outcome   models.Outcome `json:"outcome"`
	Status    string         `json:"status"`
	Messages  []string       `json:"messages"`
	StartedAt time.Time      `json:"started_at"`
	Duration  string         `json:"duration"`
}

func executeRun(cmd *cobra.Command, req runRequest) error {
	cfg := GetConfig()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chatLog := dispatch.NewChatLog(max(len(req.steps), 1))
	var d dispatch.Dispatcher = chatLog
	jsonMode := IsJSONOutput() || IsJSONLOutput()
	if !jsonMode {
		d = dispatch.Multi(dispatch.NewWriterDispatcher(cmd.OutOrStdout(), ""), chatLog)
	}

	e, err := newEngine(ctx, cfg, d, !runNoHistory)
	if err != nil {
		return err
	}
	defer e.Close()

	started := time.Now()
	runID := e.runner.SubmitRun(scheduler.Submission{
		Steps:   req.steps,
		Source:  req.source,
		Channel: req.channel,
	}, started)

	status := cmd.ErrOrStderr()
	var snap scheduler.Snapshot
	if runDrain {
		snap, err = e.runner.Drain(ctx)
	} else {
		snap, err = hostLoop(ctx, e.runner, cfg.Runner.TickInterval, func(text string) {
			if !jsonMode && text != "" {
				fmt.Fprintln(status, text)
			}
		})
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(status, "Interrupted.")
	}

	final := e.runner.Status(time.Now())
	if final == "" {
		final = string(snap.Outcome)
	}

	if jsonMode {
		messages := make([]string, 0, len(chatLog.Snapshot()))
		for _, entry := range chatLog.Snapshot() {
			messages = append(messages, entry.Text)
		}
		if err := WriteOutput(cmd.OutOrStdout(), runSummary{
			RunID:     runID,
			Source:    req.source,
			Channel:   req.channel,
			Sent:      snap.Sent,
			Failed:    snap.Failed,
			Outcome:   snap.Outcome,
			Status:    final,
			Messages:  messages,
			StartedAt: started,
			Duration:  formatDuration(time.Since(started)),
		}); err != nil {
			return err
		}
	} else if runDrain {
		fmt.Fprintln(status, final)
	}
	if !jsonMode {
		fmt.Fprintln(status, formatOutcome(snap.Outcome))
	}

	if snap.Outcome == models.OutcomeFailed {
		return &ExitError{Code: 1}
	}
	return nil
}

// hostLoop ticks the runner at interval until the run settles, reporting
// every status line change.
func hostLoop(ctx context.Context, runner *scheduler.Runner, interval time.Duration, onStatus func(string)) (scheduler.Snapshot, error) {
	if interval <= 0 {
		interval = scheduler.DefaultConfig().TickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""
	for {
		now := time.Now()
		runner.Tick(ctx, now)
		if text := runner.Status(now); text != last {
			last = text
			onStatus(text)
		}
		if _, pending := runner.NextWake(); !pending {
			return runner.Snapshot(), nil
		}

		select {
		case <-ctx.Done():
			return runner.Snapshot(), ctx.Err()
		case <-ticker.C:
		}
	}
}
