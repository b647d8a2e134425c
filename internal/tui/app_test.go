package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpheneDev/VenuePlus-sub000/internal/dispatch"
	"github.com/SpheneDev/VenuePlus-sub000/internal/macro"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
	"github.com/SpheneDev/VenuePlus-sub000/internal/scheduler"
	"github.com/SpheneDev/VenuePlus-sub000/internal/tui/styles"
)

var t0 = time.Date(2026, 6, 20, 21, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T) (model, *dispatch.ChatLog, *EventFeed) {
	t.Helper()
	chatLog := dispatch.NewChatLog(16)
	feed := NewEventFeed(4)
	runner := scheduler.New(scheduler.DefaultConfig(), nil, chatLog, scheduler.WithEventSink(feed))

	m := newModel(context.Background(), Options{
		Runner:  runner,
		ChatLog: chatLog,
		Feed:    feed,
		Parser:  macro.DefaultOptions(),
	})
	m.clock = func() time.Time { return t0 }
	return m, chatLog, feed
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	updated, ok := next.(model)
	require.True(t, ok)
	return updated
}

func TestChannelCycling(t *testing.T) {
	m, _, _ := newTestModel(t)
	require.Equal(t, models.ChannelSay, m.parser.Channel)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, models.NextChannel(models.ChannelSay, 1), m.parser.Channel)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Equal(t, models.ChannelSay, m.parser.Channel)
}

func TestSubmitAndTickDeliversLines(t *testing.T) {
	m, chatLog, feed := newTestModel(t)
	m.editor.SetValue("Doors are open!")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotEmpty(t, m.lastRun)
	assert.Equal(t, models.OutcomeInProgress, m.outcome)

	m = update(t, m, tickMsg(t0))
	entries := chatLog.Snapshot()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Text, "Doors are open!")
	assert.Equal(t, models.OutcomeAllSent, m.outcome)
	assert.Equal(t, "All messages sent (1).", m.status)

	types := make([]models.EventType, 0)
	for _, event := range feed.Recent() {
		types = append(types, event.Type)
	}
	assert.Contains(t, types, models.EventTypeRunCompleted)

	view := m.View()
	assert.Contains(t, view, "Doors are open!")
	assert.Contains(t, view, "All messages sent (1).")
}

func TestWhisperWithoutTargetWarns(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.parser.Channel = models.ChannelWhisper
	m.editor.SetValue("psst")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Contains(t, m.notice, "No whisper target")

	m.target.SetValue("Tataru Taru@Sargatanas")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Empty(t, m.notice)
}

func TestFocusToggle(t *testing.T) {
	m, _, _ := newTestModel(t)
	require.Equal(t, focusEditor, m.focus)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusTarget, m.focus)
	assert.True(t, m.target.Focused())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusEditor, m.focus)
}

func TestClearAndHelp(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.editor.SetValue("line")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Empty(t, m.editor.Value())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyF1})
	assert.True(t, m.help.ShowAll)
}

func TestThemeChange(t *testing.T) {
	m, _, _ := newTestModel(t)
	require.Equal(t, "default", m.styles.Theme.Name)

	m = update(t, m, ThemeChangedMsg{Theme: "high-contrast"})
	assert.Equal(t, "high-contrast", m.styles.Theme.Name)

	m = update(t, m, ThemeChangedMsg{Theme: "neon"})
	assert.Equal(t, styles.DefaultTheme.Name, m.styles.Theme.Name)
}

func TestSmallTerminal(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 10})
	assert.True(t, strings.HasPrefix(m.View(), m.styles.Warning.Render("Terminal too small (40x10).")))
}

func TestEventFeedKeepsNewest(t *testing.T) {
	feed := NewEventFeed(2)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, feed.Emit(context.Background(), models.RunEvent{ID: id}))
	}
	recent := feed.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)
	assert.Equal(t, "c", recent[1].ID)

	var nilFeed *EventFeed
	assert.Nil(t, nilFeed.Recent())
}
