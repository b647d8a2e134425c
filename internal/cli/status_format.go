package cli

import (
	"fmt"
	"strings"

	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

func formatOutcome(outcome models.Outcome) string {
	label, color := statusLabelForOutcome(outcome)
	return colorize(formatStatusLabel(label, string(outcome)), color)
}

func formatCategory(category models.Category) string {
	switch category {
	case models.CategoryWhisper:
		return colorize(string(category), colorMagenta)
	case models.CategoryChat:
		return colorize(string(category), colorCyan)
	default:
		return string(category)
	}
}

func statusLabelForOutcome(outcome models.Outcome) (string, string) {
	switch outcome {
	case models.OutcomeAllSent:
		return "OK", colorGreen
	case models.OutcomeInProgress:
		return "BUSY", colorCyan
	case models.OutcomePartial, models.OutcomeReplaced:
		return "WARN", colorYellow
	case models.OutcomeFailed:
		return "ERR", colorRed
	default:
		return "WARN", colorYellow
	}
}

func formatStatusLabel(label, status string) string {
	normalized := strings.TrimSpace(status)
	if normalized != "" {
		normalized = strings.ReplaceAll(normalized, "_", " ")
	}
	if normalized == "" {
		return label
	}
	return fmt.Sprintf("%s %s", label, normalized)
}
