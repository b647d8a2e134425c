package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/SpheneDev/VenuePlus-sub000/internal/cooldown"
	"github.com/SpheneDev/VenuePlus-sub000/internal/macro"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

var (
	inputChannel string
	inputTarget  string
	inputFile    string
	inputStdin   bool
)

func init() {
	rootCmd.AddCommand(parseCmd)
	addInputFlags(parseCmd)
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&inputChannel, "channel", "c", "", "channel for plain lines (say, yell, shout, party, fc, whisper, ls1-8, cwls1-8, ...)")
	cmd.Flags().StringVarP(&inputTarget, "target", "t", "", "whisper target as Name@World")
	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "read macro text from file (- for stdin)")
	cmd.Flags().BoolVar(&inputStdin, "stdin", false, "read macro text from stdin")
}

// parsedStep is the JSON shape of one compiled step.
type parsedStep struct {
	Index    int             `json:"index"`
	Kind     models.StepKind `json:"kind"`
	Seconds  float64         `json:"seconds,omitempty"`
	Text     string          `json:"text,omitempty"`
	Category models.Category `json:"category,omitempty"`
}

type parseResult struct {
	Channel   models.Channel `json:"channel"`
	Target    string         `json:"target,omitempty"`
	StepCount int            `json:"step_count"`
	SendCount int            `json:"send_count"`
	Steps     []parsedStep   `json:"steps"`
}

var parseCmd = &cobra.Command{
	Use:   "parse [line...]",
	Short: "Compile macro text into steps without sending",
	Long: `Compile macro text into the send and wait steps it would produce.

Plain lines are wrapped for the chosen channel, "/wait N" inserts a pause,
other "/" lines are sent as typed, and a 0.2s pause is added after every
15 counted lines.`,
	Example: `  venueplus parse -c yell "Last call!" "/wait 1" "Thanks for coming"
  venueplus parse -c whisper -t "Tataru Taru@Sargatanas" -f greet.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readMacroInput(args, inputFile, inputStdin, cmd.InOrStdin(), stdinPiped())
		if err != nil {
			return err
		}
		opts, err := parserOptions(GetConfig(), inputChannel, inputTarget)
		if err != nil {
			return err
		}

		steps := macro.Parse(text, opts)
		result := parseResult{
			Channel:   opts.Channel,
			Target:    opts.Target.String(),
			StepCount: len(steps),
			SendCount: models.CountSends(steps),
			Steps:     describeSteps(steps),
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, result)
		}

		if len(steps) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No steps: input was empty or every line was dropped.")
			return nil
		}

		rows := make([][]string, 0, len(result.Steps))
		for _, step := range result.Steps {
			rows = append(rows, []string{strconv.Itoa(step.Index), string(step.Kind), formatStepDetail(step)})
		}
		if err := writeTable(out, []string{"#", "KIND", "DETAIL"}, rows); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d steps, %d sends on %s\n", result.StepCount, result.SendCount, result.Channel)
		return nil
	},
}

func describeSteps(steps []models.Step) []parsedStep {
	out := make([]parsedStep, 0, len(steps))
	for i, step := range steps {
		ps := parsedStep{Index: i + 1, Kind: step.Kind}
		if step.IsWait() {
			ps.Seconds = step.Seconds
		} else {
			ps.Text = step.Text
			ps.Category = cooldown.Classify(step.Text)
		}
		out = append(out, ps)
	}
	return out
}

func formatStepDetail(step parsedStep) string {
	if step.Kind == models.StepKindWait {
		return fmt.Sprintf("%ss", strconv.FormatFloat(step.Seconds, 'f', -1, 64))
	}
	return fmt.Sprintf("%s  [%s]", step.Text, formatCategory(step.Category))
}
