package tts

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultLocale is the language engines fall back to.
var DefaultLocale = language.AmericanEnglish

// LanguageOption is a language offered to the user.
type LanguageOption struct {
	Name string
	Tag  language.Tag
}

// Languages is the catalog of languages hosts offer for selection.
var Languages = []LanguageOption{
	{Name: "English (US)", Tag: language.AmericanEnglish},
	{Name: "English (UK)", Tag: language.BritishEnglish},
	{Name: "Hindi", Tag: language.MustParse("hi-IN")},
	{Name: "French", Tag: language.MustParse("fr-FR")},
	{Name: "German", Tag: language.MustParse("de-DE")},
	{Name: "Spanish", Tag: language.MustParse("es-ES")},
}

// InCatalog reports whether the catalog lists a language with the same base
// language as tag.
func InCatalog(tag language.Tag) bool {
	base, _ := tag.Base()
	for _, opt := range Languages {
		if b, _ := opt.Tag.Base(); b == base {
			return true
		}
	}
	return false
}

// LookupLanguage resolves a BCP 47 tag ("de-DE", "de_DE") or a fuzzy catalog
// name ("germ", "english uk").
func LookupLanguage(query string) (language.Tag, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return language.Und, fmt.Errorf("%w: empty name", ErrUnknownLanguage)
	}

	if tag, err := language.Parse(strings.ReplaceAll(query, "_", "-")); err == nil {
		return tag, nil
	}

	names := make([]string, len(Languages))
	for i, opt := range Languages {
		names[i] = opt.Name
	}
	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return language.Und, fmt.Errorf("%w: %q", ErrUnknownLanguage, query)
	}
	return Languages[matches[0].Index].Tag, nil
}

// DisplayName returns the English name of a tag, such as "American English".
func DisplayName(tag language.Tag) string {
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

// SelfName returns the name of a tag in its own language, such as "Deutsch".
func SelfName(tag language.Tag) string {
	return display.Self.Name(tag)
}
