package tts

import "strings"

// pauseReplacer adds a space after clause and sentence punctuation so the
// engine leaves an audible gap there.
var pauseReplacer = strings.NewReplacer(
	",", ", ",
	".", ". ",
	"!", "! ",
	"?", "? ",
)

// NormalizeText prepares text for synthesis by inserting a space after every
// comma, period, exclamation mark and question mark. Existing whitespace is
// kept, so "a, b" becomes "a,  b".
func NormalizeText(text string) string {
	return pauseReplacer.Replace(text)
}

// SplitParagraphs splits text on newlines and drops blank lines.
func SplitParagraphs(text string) []string {
	lines := strings.Split(text, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		paragraphs = append(paragraphs, line)
	}
	return paragraphs
}
