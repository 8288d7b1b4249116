package utils

import "strings"

const ellipsis = "..."

// TruncateForLog flattens s onto one line and cuts it to limit runes.
// Prompts, answers and model output are multi-line, console log entries are not.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}
