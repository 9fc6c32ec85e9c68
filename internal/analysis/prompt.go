package analysis

import (
	"fmt"
	"unicode/utf8"
)

// DefaultMaxChars is the page text budget sent to the model.
const DefaultMaxChars = 4000

// DefaultTemperature is the sampling temperature for every completion.
const DefaultTemperature = 0.1

const promptTemplate = "Here is the content from the website %s:\n\n%s\n\nBased on this content, %s"

// BuildPrompt composes the single user message sent to the model.
func BuildPrompt(url, pageText, instruction string) string {
	return fmt.Sprintf(promptTemplate, url, pageText, instruction)
}

// Truncate keeps the first maxChars characters of text. It may cut mid-word.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i]
		}
		n++
	}
	return text
}
