package nl2sql

import (
	"regexp"
	"strings"
)

var (
	fencePattern  = regexp.MustCompile("(?is)```(?:sql)?\n(.*?)```")
	selectPattern = regexp.MustCompile(`(?i)^select\b`)
)

// ExtractSQL pulls a single SELECT candidate out of raw model output, which
// may contain commentary, markdown fencing, or several statements. It never
// fabricates a statement: when nothing recognizable exists the second return
// is false.
func ExtractSQL(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}

	candidate := trimmed
	if match := fencePattern.FindStringSubmatch(trimmed); match != nil {
		candidate = strings.TrimSpace(match[1])
	}
	candidate = strings.TrimRight(candidate, ";")

	var lines []string
	for _, line := range strings.Split(candidate, "\n") {
		if trimmedLine := strings.TrimSpace(line); trimmedLine != "" {
			lines = append(lines, trimmedLine)
		}
	}
	for i, line := range lines {
		if selectPattern.MatchString(line) {
			return strings.TrimSpace(strings.Join(lines[i:], " ")), true
		}
	}

	if selectPattern.MatchString(candidate) {
		return candidate, true
	}
	return "", false
}
