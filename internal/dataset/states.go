package dataset

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stateAliases maps title-cased spellings seen in shipping addresses to the
// names used by the boundary layer.
var stateAliases = map[string]string{
	"Dadra And Nagar":   "Dadra and Nagar Haveli and Daman and Diu",
	"New Delhi":         "Delhi",
	"Andaman & Nicobar": "Andaman and Nicobar",
	"Jammu & Kashmir":   "Jammu and Kashmir",
	"Rj":                "Rajasthan",
}

var canonicalStates = buildCanonical()

// titleCase builds a fresh caser per call: a Caser keeps state and must
// not be shared between goroutines.
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

func buildCanonical() map[string]string {
	m := make(map[string]string, len(stateAliases))
	for _, canonical := range stateAliases {
		m[titleCase(canonical)] = canonical
	}
	return m
}

// NormalizeState returns the shared join key for a state name coming from
// either the fact table or the boundary layer. It is idempotent.
func NormalizeState(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	titled := titleCase(name)
	if alias, ok := stateAliases[titled]; ok {
		return alias
	}
	if canonical, ok := canonicalStates[titled]; ok {
		return canonical
	}
	return titled
}
