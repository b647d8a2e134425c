package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

// Styles contains lipgloss styles derived from theme tokens.
type Styles struct {
	Theme       Theme
	Title       lipgloss.Style
	Text        lipgloss.Style
	Muted       lipgloss.Style
	Accent      lipgloss.Style
	Panel       lipgloss.Style
	FocusPanel  lipgloss.Style
	Focus       lipgloss.Style
	Success     lipgloss.Style
	Warning     lipgloss.Style
	Error       lipgloss.Style
	Whisper     lipgloss.Style
	Chat        lipgloss.Style
	StatusBusy  lipgloss.Style
	StatusOK    lipgloss.Style
	StatusWarn  lipgloss.Style
	StatusError lipgloss.Style
}

// DefaultStyles builds styles from the default theme.
func DefaultStyles() Styles {
	return BuildStyles(DefaultTheme)
}

// BuildStyles converts theme tokens into lipgloss styles.
func BuildStyles(theme Theme) Styles {
	tokens := theme.Tokens
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	panel := lipgloss.NewStyle().
		Foreground(lipgloss.Color(tokens.Text)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(tokens.Border)).
		Padding(0, 1)

	return Styles{
		Theme:       theme,
		Title:       fg(tokens.Accent).Bold(true),
		Text:        fg(tokens.Text),
		Muted:       fg(tokens.TextMuted),
		Accent:      fg(tokens.Accent),
		Panel:       panel,
		FocusPanel:  panel.BorderForeground(lipgloss.Color(tokens.Focus)),
		Focus:       fg(tokens.Focus).Bold(true),
		Success:     fg(tokens.Success),
		Warning:     fg(tokens.Warning),
		Error:       fg(tokens.Error),
		Whisper:     fg(tokens.Whisper),
		Chat:        fg(tokens.Chat),
		StatusBusy:  fg(tokens.Accent).Bold(true),
		StatusOK:    fg(tokens.Success).Bold(true),
		StatusWarn:  fg(tokens.Warning).Bold(true),
		StatusError: fg(tokens.Error).Bold(true),
	}
}

// ForOutcome picks the status line style for a run outcome.
func (s Styles) ForOutcome(o models.Outcome) lipgloss.Style {
	switch o {
	case models.OutcomeInProgress:
		return s.StatusBusy
	case models.OutcomeAllSent:
		return s.StatusOK
	case models.OutcomePartial, models.OutcomeReplaced:
		return s.StatusWarn
	case models.OutcomeFailed:
		return s.StatusError
	default:
		return s.Muted
	}
}

// ForCategory picks the style for a delivered line.
func (s Styles) ForCategory(c models.Category) lipgloss.Style {
	switch c {
	case models.CategoryWhisper:
		return s.Whisper
	case models.CategoryChat:
		return s.Chat
	default:
		return s.Text
	}
}
