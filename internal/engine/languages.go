// ABOUTME: Fixed catalog of supported reply languages and selection matching.
// ABOUTME: Selection accepts ISO code or display name, case-insensitively.

package engine

import "strings"

// Language is one supported reply locale.
type Language struct {
	Code string
	Name string
}

// languages is the fixed supported set. Order is presentation order.
var languages = []Language{
	{Code: "en", Name: "English"},
	{Code: "hi", Name: "Hindi"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "zh", Name: "Chinese"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ar", Name: "Arabic"},
}

// Languages returns the supported language catalog.
func Languages() []Language {
	return languages
}

// MatchLanguage resolves a user's selection against the catalog by
// code or display name, ignoring case and surrounding whitespace.
func MatchLanguage(input string) (Language, bool) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return Language{}, false
	}
	for _, lang := range languages {
		if needle == lang.Code || needle == strings.ToLower(lang.Name) {
			return lang, true
		}
	}
	return Language{}, false
}
