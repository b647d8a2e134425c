package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SpheneDev/VenuePlus-sub000/internal/config"
	"github.com/SpheneDev/VenuePlus-sub000/internal/dispatch"
	"github.com/SpheneDev/VenuePlus-sub000/internal/tui"
)

var uiNoHistory bool

func init() {
	rootCmd.AddCommand(uiCmd)
	uiCmd.Flags().StringVarP(&inputChannel, "channel", "c", "", "initial channel for plain lines")
	uiCmd.Flags().StringVarP(&inputTarget, "target", "t", "", "initial whisper target (Name@World)")
	uiCmd.Flags().BoolVar(&uiNoHistory, "no-history", false, "do not record runs in history")
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive macro editor",
	Long: `Open the terminal macro editor. Type macro text, pick a channel with
ctrl+n/ctrl+p and send it with ctrl+s. Delivered lines appear in the chat
log panel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

func runTUI(cmd *cobra.Command) error {
	if IsNonInteractive() {
		return &PreflightError{
			Message:  "the editor requires an interactive terminal",
			Hint:     "Run without --non-interactive and with a TTY, or use venueplus run",
			NextStep: "venueplus run --help",
		}
	}

	cfg := GetConfig()
	opts, err := parserOptions(cfg, inputChannel, inputTarget)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chatLog := dispatch.NewChatLog(dispatch.DefaultChatLogSize)
	feed := tui.NewEventFeed(tui.DefaultFeedSize)
	e, err := newEngine(ctx, cfg, chatLog, !uiNoHistory, feed)
	if err != nil {
		return err
	}
	defer e.Close()

	themes := make(chan string, 1)
	e.watchConfig(func(reloaded *config.Config) {
		select {
		case themes <- reloaded.TUI.Theme:
		default:
		}
	})

	return tui.Run(ctx, tui.Options{
		Runner:  e.runner,
		ChatLog: chatLog,
		Feed:    feed,
		Parser:  opts,
		Theme:   cfg.TUI.Theme,
		Themes:  themes,
	})
}
