package cmd

import (
	"strings"

	"github.com/vkcli/vk-cli/internal/resolve"
)

// suggestCommand finds the closest command name to the unknown input.
// Returns empty string if nothing is close.
func suggestCommand(unknown string, commands []string) string {
	if s := resolve.Suggest(unknown, commands, 1); len(s) > 0 {
		return s[0]
	}
	return ""
}

// suggestFlag finds the closest flag name to the unknown input.
// Leading dashes are ignored for comparison, but the match keeps its prefix.
func suggestFlag(unknown string, flagNames []string) string {
	stripped := strings.TrimLeft(unknown, "-")
	if stripped == "" {
		return ""
	}
	original := make(map[string]string, len(flagNames))
	names := make([]string, 0, len(flagNames))
	for _, f := range flagNames {
		name := strings.TrimLeft(f, "-")
		if _, ok := original[name]; ok {
			continue
		}
		original[name] = f
		names = append(names, name)
	}
	if s := resolve.Suggest(stripped, names, 1); len(s) > 0 {
		return original[s[0]]
	}
	return ""
}
