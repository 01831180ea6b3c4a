// Package catalog resolves fruit names across the supported languages.
//
// Each fruit is keyed by a stable identifier and carries one display name per
// language, so a name typed in French and one typed in English resolve to the
// same fruit without relying on two lists staying positionally aligned.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"fruity/internal/types"
)

// ErrUnknownFruit is wrapped by validation errors for names missing from the catalog.
var ErrUnknownFruit = errors.New("unknown fruit")

// Fruit is one catalog entry.
type Fruit struct {
	ID    string
	Names map[types.Language]string
}

// Name returns the display name in lang, or "" if the fruit has none.
func (f Fruit) Name(lang types.Language) string {
	return f.Names[lang]
}

// Canonical returns the English name, which is the grouping key everywhere.
func (f Fruit) Canonical() string {
	return f.Names[types.English]
}

// Catalog is an immutable, ordered set of fruits. It is safe for concurrent use.
type Catalog struct {
	fruits []Fruit
	// exact maps lower-cased names (any language) to fruit index.
	exact map[string]int
	// folded maps case- and diacritic-folded names (any language) to fruit index.
	folded map[string]int
}

// New builds a catalog, rejecting duplicate ids, missing translations and
// names that would resolve to two different fruits.
func New(fruits []Fruit) (*Catalog, error) {
	c := &Catalog{
		fruits: make([]Fruit, 0, len(fruits)),
		exact:  make(map[string]int),
		folded: make(map[string]int),
	}
	ids := make(map[string]struct{}, len(fruits))

	for i, f := range fruits {
		if f.ID == "" {
			return nil, fmt.Errorf("fruit #%d has no id", i)
		}
		if _, dup := ids[f.ID]; dup {
			return nil, fmt.Errorf("duplicate fruit id %q", f.ID)
		}
		ids[f.ID] = struct{}{}

		names := make(map[types.Language]string, len(types.Languages))
		for _, lang := range types.Languages {
			name := strings.TrimSpace(f.Names[lang])
			if name == "" {
				return nil, fmt.Errorf("fruit %q has no %s name", f.ID, lang)
			}
			names[lang] = name

			if err := c.index(c.exact, strings.ToLower(name), i, f.ID); err != nil {
				return nil, err
			}
			if err := c.index(c.folded, Fold(name), i, f.ID); err != nil {
				return nil, err
			}
		}
		c.fruits = append(c.fruits, Fruit{ID: f.ID, Names: names})
	}
	return c, nil
}

func (c *Catalog) index(m map[string]int, key string, idx int, id string) error {
	if prev, ok := m[key]; ok && prev != idx {
		return fmt.Errorf("name %q is shared by %q and %q", key, c.fruits[prev].ID, id)
	}
	m[key] = idx
	return nil
}

// MustNew is New for static tables.
func MustNew(fruits []Fruit) *Catalog {
	c, err := New(fruits)
	if err != nil {
		panic(err)
	}
	return c
}

// Fruits returns the catalog entries in catalog order.
func (c *Catalog) Fruits() []Fruit {
	out := make([]Fruit, len(c.fruits))
	copy(out, c.fruits)
	return out
}

// Names returns the display names for lang in catalog order.
func (c *Catalog) Names(lang types.Language) []string {
	out := make([]string, 0, len(c.fruits))
	for _, f := range c.fruits {
		out = append(out, f.Names[lang])
	}
	return out
}

// Len returns the number of fruits.
func (c *Catalog) Len() int { return len(c.fruits) }

// IsValid reports whether text names a fruit in lang's list (case-insensitive, exact).
func (c *Catalog) IsValid(text string, lang types.Language) bool {
	idx, ok := c.exact[strings.ToLower(strings.TrimSpace(text))]
	if !ok {
		return false
	}
	return strings.EqualFold(c.fruits[idx].Names[lang], strings.TrimSpace(text))
}

// Canonicalize maps a name in any language to its English catalog name.
// Unknown names are returned unchanged.
func (c *Catalog) Canonicalize(text string) string {
	idx, ok := c.exact[strings.ToLower(strings.TrimSpace(text))]
	if !ok {
		return text
	}
	return c.fruits[idx].Canonical()
}

// Localize maps a canonical (English) name to its display name in lang.
// Unknown names are returned unchanged.
func (c *Catalog) Localize(canonical string, lang types.Language) string {
	idx, ok := c.exact[strings.ToLower(strings.TrimSpace(canonical))]
	if !ok || !strings.EqualFold(c.fruits[idx].Canonical(), strings.TrimSpace(canonical)) {
		return canonical
	}
	if name := c.fruits[idx].Names[lang]; name != "" {
		return name
	}
	return canonical
}

// Lookup resolves text against every language ignoring case and diacritics,
// so "peche", "Pêche" and "PEACH" all find the same fruit.
func (c *Catalog) Lookup(text string) (Fruit, bool) {
	idx, ok := c.folded[Fold(text)]
	if !ok {
		return Fruit{}, false
	}
	return c.fruits[idx], true
}

// Suggest returns up to limit names from lang's list containing text
// (case- and diacritic-insensitive), in catalog order. Exact matches are left
// out since there is nothing left to complete.
func (c *Catalog) Suggest(text string, lang types.Language, limit int) []string {
	query := Fold(text)
	if query == "" || limit <= 0 {
		return nil
	}
	var out []string
	for _, f := range c.fruits {
		name := f.Names[lang]
		folded := Fold(name)
		if folded == query {
			continue
		}
		if strings.Contains(folded, query) {
			out = append(out, name)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// Validate returns a *types.ValidationError wrapping ErrUnknownFruit when text
// is not in lang's list. The reason carries suggestions when there are any.
func (c *Catalog) Validate(text string, lang types.Language) error {
	if c.IsValid(text, lang) {
		return nil
	}
	reason := fmt.Sprintf("not in the %s catalog", lang)
	if f, ok := c.Lookup(text); ok {
		reason = fmt.Sprintf("%s (did you mean %q?)", reason, f.Names[lang])
	} else if hints := c.Suggest(text, lang, 3); len(hints) > 0 {
		reason = fmt.Sprintf("%s (did you mean %s?)", reason, strings.Join(hints, ", "))
	}
	return &types.ValidationError{Field: "fruit", Value: text, Reason: reason, Err: ErrUnknownFruit}
}
