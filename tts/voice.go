package tts

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// BestVoice returns the first voice that speaks locale, works offline and has
// at least QualityHigh. The order of voices is preserved, so engines control
// tie-breaking. ok is false when nothing qualifies.
func BestVoice(voices []Voice, locale language.Tag) (voice Voice, ok bool) {
	for _, v := range voices {
		if v.RequiresNetwork {
			continue
		}
		if v.Quality < QualityHigh {
			continue
		}
		if SameLocale(v.Locale, locale) {
			return v, true
		}
	}
	return Voice{}, false
}

// FindVoice returns the voice with the given name, ignoring case.
func FindVoice(voices []Voice, name string) (Voice, bool) {
	for _, v := range voices {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return Voice{}, false
}

// SameLocale reports whether two tags name the same language and region.
func SameLocale(a, b language.Tag) bool {
	return a == b || a.String() == b.String()
}

// Prosody holds the pitch and rate multipliers applied to the engine.
type Prosody struct {
	Pitch float64
	Rate  float64
}

// Natural delivery: neutral pitch, slightly slow.
const (
	DefaultPitch      = 1.0
	DefaultSpeechRate = 0.95
)

// VoiceCategory is a named pitch/rate preset.
type VoiceCategory string

// Voice categories offered to hosts.
const (
	CategoryNatural VoiceCategory = "natural"
	CategoryMale    VoiceCategory = "male"
	CategoryFemale  VoiceCategory = "female"
	CategoryChild   VoiceCategory = "child"
	CategoryRobot   VoiceCategory = "robot"
)

var categoryProsody = map[VoiceCategory]Prosody{
	CategoryNatural: {Pitch: DefaultPitch, Rate: DefaultSpeechRate},
	CategoryMale:    {Pitch: 0.8, Rate: 0.9},
	CategoryFemale:  {Pitch: 1.2, Rate: 1.0},
	CategoryChild:   {Pitch: 1.5, Rate: 1.1},
	CategoryRobot:   {Pitch: 0.5, Rate: 0.8},
}

// VoiceCategories lists the categories in display order.
func VoiceCategories() []VoiceCategory {
	return []VoiceCategory{CategoryNatural, CategoryMale, CategoryFemale, CategoryChild, CategoryRobot}
}

// Prosody returns the preset for the category.
func (c VoiceCategory) Prosody() (Prosody, bool) {
	p, ok := categoryProsody[c]
	return p, ok
}

// ParseVoiceCategory parses a category name, ignoring case.
func ParseVoiceCategory(s string) (VoiceCategory, error) {
	c := VoiceCategory(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := categoryProsody[c]; !ok {
		return "", fmt.Errorf("unknown voice category %q: must be one of %v", s, VoiceCategories())
	}
	return c, nil
}
