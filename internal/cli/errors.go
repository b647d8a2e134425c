package cli

import (
	"fmt"
	"os"
	"strings"
)

// ExitError carries a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// PreflightError reports a missing prerequisite with a hint for the user.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
}

func (e *PreflightError) Error() string {
	return e.Message
}

func printError(err error) {
	if pf, ok := err.(*PreflightError); ok {
		fmt.Fprintln(os.Stderr, colorize("Error:", colorRed), pf.Message)
		if strings.TrimSpace(pf.Hint) != "" {
			fmt.Fprintln(os.Stderr, "Hint:", pf.Hint)
		}
		if strings.TrimSpace(pf.NextStep) != "" {
			fmt.Fprintln(os.Stderr, "Try:", pf.NextStep)
		}
		return
	}
	fmt.Fprintln(os.Stderr, colorize("Error:", colorRed), err)
}
