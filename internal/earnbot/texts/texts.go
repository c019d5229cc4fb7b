// Package texts holds the localized message catalog and template rendering.
package texts

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// MissingPrefix marks a resolved string for a key absent from every table.
const MissingPrefix = "MISSING_TEXT:"

// Catalog resolves (language, key) pairs to message templates. It is built
// once at startup and immutable afterwards.
type Catalog struct {
	tables      map[string]map[string]string
	defaultLang string
	log         *zap.Logger
}

// NewCatalog builds a catalog over the built-in tables. defaultLang must be
// one of the table languages.
func NewCatalog(defaultLang string, log *zap.Logger) (*Catalog, error) {
	if _, ok := tables[defaultLang]; !ok {
		return nil, fmt.Errorf("default language %q has no message table", defaultLang)
	}
	return &Catalog{
		tables:      tables,
		defaultLang: defaultLang,
		log:         log,
	}, nil
}

// DefaultLanguage returns the catalog's fallback language code.
func (c *Catalog) DefaultLanguage() string {
	return c.defaultLang
}

// HasLanguage reports whether a language has its own table.
func (c *Catalog) HasLanguage(lang string) bool {
	_, ok := c.tables[lang]
	return ok
}

// Languages returns the language codes with a table, default first.
func (c *Catalog) Languages() []string {
	out := []string{c.defaultLang}
	for lang := range c.tables {
		if lang != c.defaultLang {
			out = append(out, lang)
		}
	}
	return out
}

// Resolve looks up a key in the requested language, falling back to the
// default language and finally to a sentinel embedding the key. It never
// fails; a sentinel return is logged since it means a catalog gap.
func (c *Catalog) Resolve(key, lang string) string {
	if table, ok := c.tables[lang]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := c.tables[c.defaultLang][key]; ok {
		return msg
	}
	c.log.Warn("message key missing from catalog",
		zap.String("key", key),
		zap.String("lang", lang))
	return MissingPrefix + key
}

var placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)

// Render fills {name} placeholders in a template. It returns an error naming
// any placeholder the params map does not supply; callers validate before
// sending so a template change cannot crash message delivery.
func Render(template string, params map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		val, ok := params[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return val
	})
	if len(missing) > 0 {
		return out, fmt.Errorf("unfilled placeholders: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
