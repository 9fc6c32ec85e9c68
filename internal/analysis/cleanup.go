package analysis

import (
	"regexp"
	"strings"
)

var (
	codeFencePattern  = regexp.MustCompile("(?s)```.*?```")
	urlPattern        = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\\(\\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)
	whitespacePattern = regexp.MustCompile(`[\s\v\x{1c}-\x{1f}\p{Z}\x{0085}]+`)
)

// Clean removes fenced code blocks and URLs from model output and collapses
// whitespace. The passes repeat until the text is stable, so Clean is
// idempotent.
func Clean(text string) string {
	for {
		next := cleanOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func cleanOnce(text string) string {
	text = codeFencePattern.ReplaceAllString(text, "")
	text = urlPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
