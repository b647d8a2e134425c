package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpheneDev/VenuePlus-sub000/internal/dispatch"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
	"github.com/SpheneDev/VenuePlus-sub000/internal/scheduler"
)

func resetFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		jsonOutput, jsonlOutput, noColor, noProgress = false, false, false, false
		inputChannel, inputTarget, inputFile, inputStdin = "", "", "", false
		runDrain, runNoHistory = false, false
		historyLimit = 20
		macroVars, macroListTags = nil, nil
	}
	reset()
	t.Cleanup(reset)
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("database:\n  path: %s\nlogging:\n  level: error\nmacros:\n  dir: %s\n",
		filepath.Join(dir, "history.db"), filepath.Join(dir, "macros"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(bytes.NewReader(nil))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestHostLoopRunsUntilSettled(t *testing.T) {
	log := dispatch.NewChatLog(8)
	runner := scheduler.New(scheduler.DefaultConfig(), nil, log)
	runner.Submit([]models.Step{
		models.Send("/say one"),
		models.Wait(0.05),
		models.Send("/say two"),
	}, time.Now())

	var statuses []string
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := hostLoop(ctx, runner, 10*time.Millisecond, func(text string) {
		statuses = append(statuses, text)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Sent)
	assert.Equal(t, models.OutcomeAllSent, snap.Outcome)
	assert.Equal(t, int64(2), log.Total())
	require.NotEmpty(t, statuses)
	assert.Equal(t, "All messages sent (2).", statuses[len(statuses)-1])
}

func TestHostLoopStopsOnCancel(t *testing.T) {
	runner := scheduler.New(scheduler.DefaultConfig(), nil, dispatch.Discard)
	runner.Submit([]models.Step{models.Send("/say one"), models.Wait(60), models.Send("/say two")}, time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	snap, err := hostLoop(ctx, runner, 10*time.Millisecond, func(string) {})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, snap.Sent)
	assert.Equal(t, 1, snap.Pending)
}

func TestRunCommandJSONAndHistory(t *testing.T) {
	resetFlags(t)
	cfgPath := writeTestConfig(t)

	stdout, _, err := execute(t, "--config", cfgPath, "--json", "run", "-c", "shout", "Doors open at nine!", "/wait 0.05", "First round is on the house")
	require.NoError(t, err)

	var summary runSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, models.OutcomeAllSent, summary.Outcome)
	assert.Equal(t, models.ChannelShout, summary.Channel)
	assert.Equal(t, []string{"/shout Doors open at nine!", "/shout First round is on the house"}, summary.Messages)

	resetFlags(t)
	stdout, _, err = execute(t, "--config", cfgPath, "--json", "history")
	require.NoError(t, err)

	var runs []models.Run
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].ID)
	assert.Equal(t, models.OutcomeAllSent, runs[0].Outcome)
	assert.Equal(t, "text", runs[0].Source)

	resetFlags(t)
	stdout, _, err = execute(t, "--config", cfgPath, "--json", "history", "show", summary.RunID[:8])
	require.NoError(t, err)
	assert.Contains(t, stdout, string(models.EventTypeRunCompleted))
}

func TestRunCommandEmptyBatchFails(t *testing.T) {
	resetFlags(t)
	cfgPath := writeTestConfig(t)

	// A whisper with no target drops every plain line.
	_, _, err := execute(t, "--config", cfgPath, "--json", "run", "--no-history", "-c", "whisper", "nobody hears this")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

func TestParseCommandJSON(t *testing.T) {
	resetFlags(t)
	cfgPath := writeTestConfig(t)

	stdout, _, err := execute(t, "--config", cfgPath, "--json", "parse", "-c", "yell", "hello", "/wait 2", "/em waves")
	require.NoError(t, err)

	var result parseResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 3, result.StepCount)
	assert.Equal(t, 2, result.SendCount)
	assert.Equal(t, "/yell hello", result.Steps[0].Text)
	assert.Equal(t, "/em waves", result.Steps[2].Text)
}

func TestMacrosRunBuiltin(t *testing.T) {
	resetFlags(t)
	cfgPath := writeTestConfig(t)

	stdout, _, err := execute(t, "--config", cfgPath, "--json", "macros", "list")
	require.NoError(t, err)
	var items []macroListItem
	require.NoError(t, json.Unmarshal([]byte(stdout), &items))
	require.NotEmpty(t, items)

	_, _, err = execute(t, "--config", cfgPath, "--json", "macros", "show", "no-such-macro")
	var pf *PreflightError
	require.ErrorAs(t, err, &pf)
}
