// Package i18n holds the storefront string tables and the per-user language preference.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed locales/*.json
var localeFS embed.FS

// Language is one of the two supported locales
type Language string

// Supported languages. English is the default.
const (
	English Language = "en"
	Amharic Language = "am"

	Default = English
)

// Languages lists every supported locale
var Languages = []Language{English, Amharic}

// ParseLanguage validates a language code
func ParseLanguage(s string) (Language, bool) {
	switch Language(s) {
	case English, Amharic:
		return Language(s), true
	}
	return "", false
}

// Catalog is the immutable set of string tables
type Catalog struct {
	tables map[Language]map[string]string
}

// Load reads the embedded string tables
func Load() (*Catalog, error) {
	c := &Catalog{tables: make(map[Language]map[string]string, len(Languages))}
	for _, lang := range Languages {
		b, err := localeFS.ReadFile("locales/" + string(lang) + ".json")
		if err != nil {
			return nil, fmt.Errorf("reading %s table: %w", lang, err)
		}
		table := map[string]string{}
		if err := json.Unmarshal(b, &table); err != nil {
			return nil, fmt.Errorf("parsing %s table: %w", lang, err)
		}
		c.tables[lang] = table
	}
	return c, nil
}

// MustLoad is Load for package initialisation
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog builds a catalog from in-memory tables
func NewCatalog(tables map[Language]map[string]string) *Catalog {
	return &Catalog{tables: tables}
}

// Lookup returns the string for key in lang, or key itself when it is absent
func (c *Catalog) Lookup(lang Language, key string) string {
	if v, ok := c.tables[lang][key]; ok {
		return v
	}
	return key
}

// Table returns a copy of the whole table for lang
func (c *Catalog) Table(lang Language) map[string]string {
	out := make(map[string]string, len(c.tables[lang]))
	for k, v := range c.tables[lang] {
		out[k] = v
	}
	return out
}

// Translator is the active-locale view of a catalog for one session
type Translator struct {
	catalog *Catalog

	mu   sync.RWMutex
	lang Language
}

// Translator returns a translator for lang, falling back to the default locale
func (c *Catalog) Translator(lang Language) *Translator {
	if _, ok := ParseLanguage(string(lang)); !ok {
		lang = Default
	}
	return &Translator{catalog: c, lang: lang}
}

// T looks key up in the active locale. Missing keys come back unchanged.
func (t *Translator) T(key string) string {
	return t.catalog.Lookup(t.Language(), key)
}

// Language returns the active locale
func (t *Translator) Language() Language {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lang
}

// SetLanguage switches the active locale
func (t *Translator) SetLanguage(lang Language) {
	t.mu.Lock()
	t.lang = lang
	t.mu.Unlock()
}
