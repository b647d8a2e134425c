// Package tui implements the VenuePlus terminal macro editor.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/SpheneDev/VenuePlus-sub000/internal/cooldown"
	"github.com/SpheneDev/VenuePlus-sub000/internal/dispatch"
	"github.com/SpheneDev/VenuePlus-sub000/internal/macro"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
	"github.com/SpheneDev/VenuePlus-sub000/internal/scheduler"
	"github.com/SpheneDev/VenuePlus-sub000/internal/tui/styles"
)

// Options wires the editor to a runner.
type Options struct {
	Runner  *scheduler.Runner
	ChatLog *dispatch.ChatLog
	Feed    *EventFeed
	Parser  macro.Options
	Theme   string

	// Themes, when set, delivers palette names after config reloads.
	Themes <-chan string
}

// Run launches the editor and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	if opts.Runner == nil {
		return errors.New("tui: runner is required")
	}
	program := tea.NewProgram(newModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type focusArea int

const (
	focusEditor focusArea = iota
	focusTarget
)

const (
	minWidth      = 60
	minHeight     = 18
	editorHeight  = 8
	chatLogLines  = 8
	sourceTUI     = "tui"
	timestampForm = "15:04:05"
)

type model struct {
	ctx     context.Context
	runner  *scheduler.Runner
	chatLog *dispatch.ChatLog
	feed    *EventFeed
	parser  macro.Options
	themes  <-chan string

	styles styles.Styles
	keys   KeyMap
	help   help.Model
	editor textarea.Model
	target textinput.Model
	focus  focusArea

	width   int
	height  int
	now     time.Time
	status  string
	outcome models.Outcome
	lastRun string
	notice  string

	clock func() time.Time
}

func newModel(ctx context.Context, opts Options) model {
	theme, _ := styles.Lookup(opts.Theme)

	editor := textarea.New()
	editor.Placeholder = "Type macro lines. /wait 2 pauses, /commands go out as-is."
	editor.ShowLineNumbers = true
	editor.CharLimit = 0
	editor.SetHeight(editorHeight)
	editor.Focus()

	target := textinput.New()
	target.Prompt = "Whisper to: "
	target.Placeholder = "First Last@World"
	if opts.Parser.Target.Name != "" {
		target.SetValue(opts.Parser.Target.String())
	}

	parser := opts.Parser
	if !parser.Channel.Valid() {
		parser.Channel = models.ChannelSay
	}

	chatLog := opts.ChatLog
	if chatLog == nil {
		chatLog = dispatch.NewChatLog(dispatch.DefaultChatLogSize)
	}

	return model{
		ctx:     ctx,
		runner:  opts.Runner,
		chatLog: chatLog,
		feed:    opts.Feed,
		parser:  parser,
		themes:  opts.Themes,
		styles:  styles.BuildStyles(theme),
		keys:    DefaultKeyMap(),
		help:    help.New(),
		editor:  editor,
		target:  target,
		now:     time.Now(),
		clock:   time.Now,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, tickCmd(m.runner.Config().TickInterval), waitForTheme(m.themes))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.editor.SetWidth(max(msg.Width-4, 20))
		m.target.Width = max(msg.Width-20, 10)
		return m, nil
	case tickMsg:
		m.now = time.Time(msg)
		m.runner.Tick(m.ctx, m.now)
		m.status = m.runner.Status(m.now)
		m.outcome = m.runner.Outcome(m.now)
		return m, tickCmd(m.runner.Config().TickInterval)
	case ThemeChangedMsg:
		theme, _ := styles.Lookup(msg.Theme)
		m.styles = styles.BuildStyles(theme)
		return m, waitForTheme(m.themes)
	}

	return m.updateFocused(msg)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Submit):
		m.submit()
		return m, nil
	case key.Matches(msg, m.keys.NextChannel):
		m.parser.Channel = models.NextChannel(m.parser.Channel, 1)
		m.notice = ""
		return m, nil
	case key.Matches(msg, m.keys.PrevChannel):
		m.parser.Channel = models.NextChannel(m.parser.Channel, -1)
		m.notice = ""
		return m, nil
	case key.Matches(msg, m.keys.SwitchFocus):
		return m.toggleFocus()
	case key.Matches(msg, m.keys.Clear):
		m.editor.Reset()
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	return m.updateFocused(msg)
}

func (m model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == focusTarget {
		m.target, cmd = m.target.Update(msg)
	} else {
		m.editor, cmd = m.editor.Update(msg)
	}
	return m, cmd
}

func (m model) toggleFocus() (tea.Model, tea.Cmd) {
	if m.focus == focusEditor {
		m.focus = focusTarget
		m.editor.Blur()
		return m, m.target.Focus()
	}
	m.focus = focusEditor
	m.target.Blur()
	return m, m.editor.Focus()
}

// submit compiles the editor text and replaces any run in flight.
func (m *model) submit() {
	opts := m.parser
	opts.Target = models.ParseTarget(m.target.Value())
	if opts.Channel == models.ChannelWhisper && !opts.Target.Resolved() {
		m.notice = "No whisper target: plain lines will be dropped."
	} else {
		m.notice = ""
	}

	now := m.clock()
	m.lastRun = m.runner.SubmitRun(scheduler.Submission{
		Steps:   macro.Parse(m.editor.Value(), opts),
		Source:  sourceTUI,
		Channel: opts.Channel,
	}, now)
	m.status = m.runner.Status(now)
	m.outcome = m.runner.Outcome(now)
}

func (m model) View() string {
	if m.width > 0 && m.height > 0 && (m.width < minWidth || m.height < minHeight) {
		return joinLines(m.smallViewLines()) + "\n"
	}

	lines := []string{
		m.styles.Title.Render("VenuePlus") + "  " + m.channelLine(),
		"",
		m.editorPanel(),
		m.targetLine(),
	}
	if m.notice != "" {
		lines = append(lines, m.styles.Warning.Render(m.notice))
	}
	lines = append(lines, "", m.styles.Accent.Render("Chat log"))
	lines = append(lines, m.chatLines()...)
	if m.feed != nil {
		lines = append(lines, "", m.styles.Accent.Render("Run events"))
		lines = append(lines, m.eventLines()...)
	}
	lines = append(lines, "", m.statusLine(), "", m.help.View(m.keys))

	return joinLines(lines) + "\n"
}

func (m model) smallViewLines() []string {
	return []string{
		m.styles.Warning.Render(fmt.Sprintf("Terminal too small (%dx%d).", m.width, m.height)),
		m.styles.Muted.Render(fmt.Sprintf("Resize to at least %dx%d.", minWidth, minHeight)),
		m.styles.Muted.Render("Press ctrl+q to quit."),
	}
}

func (m model) channelLine() string {
	ch := m.parser.Channel
	label := string(ch)
	if marker, ok := ch.Marker(); ok {
		label = fmt.Sprintf("%s (%s)", ch, marker)
	}
	return m.styles.Muted.Render("channel ") + m.styles.Focus.Render(label)
}

func (m model) editorPanel() string {
	panel := m.styles.Panel
	if m.focus == focusEditor {
		panel = m.styles.FocusPanel
	}
	return panel.Render(m.editor.View())
}

func (m model) targetLine() string {
	if m.parser.Channel != models.ChannelWhisper && m.focus != focusTarget {
		return m.styles.Muted.Render(m.target.Prompt + valueOrDash(m.target.Value()) + "  (whisper only)")
	}
	return m.target.View()
}

func (m model) chatLines() []string {
	entries := m.chatLog.Snapshot()
	if len(entries) == 0 {
		return []string{m.styles.Muted.Render("  nothing sent yet")}
	}
	if len(entries) > chatLogLines {
		entries = entries[len(entries)-chatLogLines:]
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		style := m.styles.ForCategory(cooldown.Classify(entry.Text))
		lines = append(lines, m.styles.Muted.Render("  "+entry.Time.Format(timestampForm)+" ")+style.Render(entry.Text))
	}
	return lines
}

func (m model) eventLines() []string {
	recent := m.feed.Recent()
	if len(recent) == 0 {
		return []string{m.styles.Muted.Render("  no events")}
	}
	lines := make([]string, 0, len(recent))
	for _, event := range recent {
		lines = append(lines, m.styles.Muted.Render(fmt.Sprintf("  %s %s", event.Timestamp.Format(timestampForm+".000"), event.Type)))
	}
	return lines
}

func (m model) statusLine() string {
	snap := m.runner.Snapshot()
	counts := m.styles.Muted.Render(fmt.Sprintf("pending %d  sent %d  failed %d", snap.Pending, snap.Sent, snap.Failed))
	if m.status == "" {
		return counts
	}
	return m.styles.ForOutcome(m.outcome).Render(m.status) + "  " + counts
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
