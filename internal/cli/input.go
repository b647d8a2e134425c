package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/SpheneDev/VenuePlus-sub000/internal/config"
	"github.com/SpheneDev/VenuePlus-sub000/internal/logging"
	"github.com/SpheneDev/VenuePlus-sub000/internal/macro"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

// errNoInput is returned when no macro text source was given.
var errNoInput = &PreflightError{
	Message:  "no macro text given",
	Hint:     "Pass text as arguments, use --file, or pipe it with --stdin",
	NextStep: `venueplus parse "Hello" "/wait 1" "Hello again"`,
}

// readMacroInput returns macro text from a file, stdin or the arguments, in
// that order of preference. Each argument is one line.
func readMacroInput(args []string, file string, useStdin bool, stdin io.Reader, piped bool) (string, error) {
	switch {
	case file == "-":
		return readAll(stdin, "stdin")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read macro file: %w", err)
		}
		return string(data), nil
	case useStdin:
		if !piped {
			return "", errNoInput
		}
		return readAll(stdin, "stdin")
	case len(args) > 0:
		return strings.Join(args, "\n"), nil
	case piped:
		return readAll(stdin, "stdin")
	default:
		return "", errNoInput
	}
}

func readAll(r io.Reader, name string) (string, error) {
	if r == nil {
		return "", errors.New("no input reader")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// parserOptions overlays the channel and target flags on the configured
// parser defaults. Whispering without a target is allowed since command
// lines still go out.
func parserOptions(cfg *config.Config, channel, target string) (macro.Options, error) {
	opts := cfg.ParserOptions()
	if strings.TrimSpace(channel) != "" {
		ch, err := models.ParseChannel(channel)
		if err != nil {
			return opts, err
		}
		opts.Channel = ch
	}
	if strings.TrimSpace(target) != "" {
		opts.Target = models.ParseTarget(target)
	}
	if opts.Channel == models.ChannelWhisper && !opts.Target.Resolved() {
		logger := logging.Component("cli")
		logger.Warn().Msg("whisper channel without --target: plain lines will be dropped")
	}
	return opts, nil
}
