package types

import (
	"fmt"
	"strings"
)

// Language selects the catalog and UI strings.
type Language string

const (
	English Language = "en"
	French  Language = "fr"
)

// DefaultLanguage is used when no preference has been saved.
const DefaultLanguage = French

// Languages lists every supported language in display order.
var Languages = []Language{English, French}

// ParseLanguage accepts "en" or "fr" in any case.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case English:
		return English, nil
	case French:
		return French, nil
	}
	return "", fmt.Errorf("unsupported language %q (valid: en, fr)", s)
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == English || l == French
}

func (l Language) String() string { return string(l) }
