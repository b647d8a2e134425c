package cooldown

import (
	"strconv"
	"strings"

	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

// whisperCommands are the tell forms, including the short alias.
var whisperCommands = map[string]struct{}{
	"/tell": {},
	"/t":    {},
}

// chatCommands are the public chat commands the host throttles.
var chatCommands = map[string]struct{}{
	"/say":         {},
	"/s":           {},
	"/echo":        {},
	"/e":           {},
	"/yell":        {},
	"/y":           {},
	"/shout":       {},
	"/sh":          {},
	"/party":       {},
	"/p":           {},
	"/freecompany": {},
	"/fc":          {},
}

func init() {
	for i := 1; i <= models.LinkshellCount; i++ {
		n := strconv.Itoa(i)
		for _, prefix := range []string{"/l", "/linkshell", "/cwl", "/cwlinkshell"} {
			chatCommands[prefix+n] = struct{}{}
		}
	}
}

// Classify maps a fully formed send line to its cooldown category using the
// leading token, case-insensitively.
func Classify(text string) models.Category {
	token := strings.TrimSpace(text)
	if idx := strings.IndexAny(token, " \t"); idx >= 0 {
		token = token[:idx]
	}
	token = strings.ToLower(token)

	if _, ok := whisperCommands[token]; ok {
		return models.CategoryWhisper
	}
	if _, ok := chatCommands[token]; ok {
		return models.CategoryChat
	}
	return models.CategoryUncategorized
}
