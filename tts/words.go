package tts

import (
	"fmt"
	"strings"
)

// DefaultMaxWords is the input cap hosts apply before calling Speak or
// SaveToFile.
const DefaultMaxWords = 2000

// CountWords returns the number of whitespace separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CheckWordLimit returns ErrTooManyWords if text has more than max words.
// A max of zero or less disables the check.
func CheckWordLimit(text string, max int) error {
	if max <= 0 {
		return nil
	}
	if n := CountWords(text); n > max {
		return fmt.Errorf("%w: %d words (max %d)", ErrTooManyWords, n, max)
	}
	return nil
}
