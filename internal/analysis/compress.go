package analysis

import "strings"

// compactMaxLines caps a compacted answer so remote-AI-disabled replies stay
// terse in the conversation view.
const compactMaxLines = 8

// Compact reduces a locally generated report to its load-bearing lines: only
// lines carrying emphasis (**...**) or bullets survive, capped to
// compactMaxLines, and warning/success lines are bolded so they stand out
// without the full report around them.
func Compact(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	kept := make([]string, 0, compactMaxLines)
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !strings.Contains(line, "**") && !isBulletLine(line) {
			continue
		}
		if needsEmphasis(line) {
			line = "**" + line + "**"
		}
		kept = append(kept, line)
		if len(kept) >= compactMaxLines {
			break
		}
	}
	if len(kept) == 0 {
		// Nothing matched the markers; better to return the original than
		// an empty answer.
		return text
	}
	return strings.Join(kept, "\n")
}

func isBulletLine(line string) bool {
	return strings.HasPrefix(line, "•") || strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ")
}

// needsEmphasis reports whether a warning or success line still lacks bold
// markers.
func needsEmphasis(line string) bool {
	if strings.Contains(line, "**") {
		return false
	}
	return strings.Contains(line, "⚠") || strings.Contains(line, "✅")
}
