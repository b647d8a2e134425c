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

	"github.com/SpheneDev/VenuePlus-sub000/internal/announce"
	"github.com/SpheneDev/VenuePlus-sub000/internal/config"
	"github.com/SpheneDev/VenuePlus-sub000/internal/dispatch"
	"github.com/SpheneDev/VenuePlus-sub000/internal/logging"
)

var (
	announceList      bool
	announceFire      string
	announceNoHistory bool
)

func init() {
	rootCmd.AddCommand(announceCmd)

	announceCmd.Flags().BoolVar(&announceList, "list", false, "list jobs and their next firing, then exit")
	announceCmd.Flags().StringVar(&announceFire, "fire", "", "fire one job immediately, wait for it to finish, then exit")
	announceCmd.Flags().BoolVar(&announceNoHistory, "no-history", false, "do not record runs in history")
}

var announceCmd = &cobra.Command{
	Use:   "announce",
	Short: "Send macros on the schedules in announce.jobs",
	Long: `Run the announcement scheduler in the foreground. Each job in the
announce.jobs config section renders a library macro on its cron schedule
and submits it, replacing any run still in flight. Cooldown and runner
settings are re-read when the config file changes.`,
	Example: `  venueplus announce --list
  venueplus announce --fire doors-open
  venueplus announce`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		jobs := announceJobs(cfg.Announce.Jobs)
		if len(jobs) == 0 {
			return &PreflightError{
				Message:  "no announcement jobs configured",
				Hint:     "Add entries under announce.jobs with name, schedule and macro",
				NextStep: "venueplus macros list",
			}
		}

		lib, err := loadMacroLibrary(cmd, cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var d dispatch.Dispatcher = dispatch.NewWriterDispatcher(cmd.OutOrStdout(), "15:04:05")
		if announceList {
			d = dispatch.Discard
		}
		e, err := newEngine(ctx, cfg, d, !announceNoHistory && !announceList)
		if err != nil {
			return err
		}
		defer e.Close()

		svc, err := announce.New(e.runner, lib.macros, cfg.ParserOptions(), jobs,
			announce.WithMinGap(cfg.Announce.MinGap),
			announce.WithLogger(logging.Component("announce")))
		if err != nil {
			return err
		}

		if announceList {
			return writeUpcoming(cmd, svc, time.Now())
		}

		if announceFire != "" {
			runID, err := svc.Fire(announceFire)
			if err != nil {
				return err
			}
			snap, err := hostLoop(ctx, e.runner, cfg.Runner.TickInterval, func(text string) {
				if text != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), text)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", shortID(runID), formatOutcome(snap.Outcome))
			return nil
		}

		e.watchConfig()
		for _, u := range svc.Upcoming(time.Now()) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%-20s next %s\n", u.Job, formatTimestamp(u.Next))
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Announcing. Press Ctrl+C to stop.")

		return svc.Run(ctx, cfg.Runner.TickInterval)
	},
}

// upcomingItem is the JSON shape of a scheduled job.
type upcomingItem struct {
	Name     string            `json:"name"`
	Schedule string            `json:"schedule"`
	Macro    string            `json:"macro"`
	Vars     map[string]string `json:"vars,omitempty"`
	Next     time.Time         `json:"next"`
}

func writeUpcoming(cmd *cobra.Command, svc *announce.Service, now time.Time) error {
	byName := make(map[string]announce.Job)
	for _, job := range svc.Jobs() {
		byName[job.Name] = job
	}

	upcoming := svc.Upcoming(now)
	if IsJSONOutput() || IsJSONLOutput() {
		items := make([]upcomingItem, 0, len(upcoming))
		for _, u := range upcoming {
			job := byName[u.Job]
			items = append(items, upcomingItem{Name: job.Name, Schedule: job.Schedule, Macro: job.Macro, Vars: job.Vars, Next: u.Next})
		}
		return WriteOutput(cmd.OutOrStdout(), items)
	}

	rows := make([][]string, 0, len(upcoming))
	for _, u := range upcoming {
		job := byName[u.Job]
		rows = append(rows, []string{job.Name, job.Schedule, job.Macro, formatTimestamp(u.Next), formatDuration(u.Next.Sub(now))})
	}
	return writeTable(cmd.OutOrStdout(), []string{"JOB", "SCHEDULE", "MACRO", "NEXT", "IN"}, rows)
}

func announceJobs(configured []config.JobConfig) []announce.Job {
	jobs := make([]announce.Job, 0, len(configured))
	for _, jc := range configured {
		jobs = append(jobs, announce.Job{
			Name:     jc.Name,
			Schedule: jc.Schedule,
			Macro:    jc.Macro,
			Vars:     jc.Vars,
		})
	}
	return jobs
}
