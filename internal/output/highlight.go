package output

import (
	"fmt"
	"strings"

	"annotext/internal/matcher"

	"github.com/fatih/color"
)

var (
	termColor        = color.New(color.FgYellow, color.Bold)
	replacementColor = color.New(color.FgGreen)
	deletedColor     = color.New(color.FgRed)
)

// Highlight marks every match in text, followed by its replacement.
// matches must be sorted and non-overlapping.
func Highlight(text string, matches []matcher.Match) string {
	var sb strings.Builder
	cursor := 0
	for _, m := range matches {
		if m.Start < cursor || m.End > len(text) {
			continue
		}
		sb.WriteString(text[cursor:m.Start])
		sb.WriteString(termColor.Sprint(text[m.Start:m.End]))
		sb.WriteString(replacementColor.Sprintf("[%s]", m.Replacement))
		cursor = m.End
	}
	sb.WriteString(text[cursor:])
	return sb.String()
}

// MatchLines lists the matches one per line with their byte ranges.
func MatchLines(matches []matcher.Match) []string {
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("%d-%d %s -> %s", m.Start, m.End, termColor.Sprint(m.Term), replacementColor.Sprint(m.Replacement)))
	}
	return lines
}

// Deleted formats one lost logical id.
func Deleted(namespace, id string) string {
	return deletedColor.Sprintf("- %s/%s", namespace, id)
}
