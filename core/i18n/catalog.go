// Package i18n resolves message keys to localized text.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed messages/*.yaml
var bundled embed.FS

// maxMatchCache bounds the tag cache; tags arrive from arbitrary senders.
const maxMatchCache = 256

// Localizer resolves a message key for a language tag. Implementations never
// return an empty string; unknown tags fall back to the default language.
type Localizer interface {
	Resolve(key, lang string, args ...any) string
	Languages() []string
}

// Catalog is a Localizer backed by one flat key/value bundle per language.
// Templates use indexed fmt verbs such as %[1]s.
type Catalog struct {
	def     string
	langs   []string
	bundles map[string]map[string]string
	matcher language.Matcher

	matched sync.Map // canonical tag -> bundle language
	cached  atomic.Int32
}

// NewCatalog loads the bundles shipped with the binary.
func NewCatalog(defaultLang string) (*Catalog, error) {
	return LoadCatalog(bundled, "messages", defaultLang)
}

// LoadCatalog reads every <lang>.yaml file in dir.
func LoadCatalog(fsys fs.FS, dir, defaultLang string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read %s: %w", dir, err)
	}
	bundles := make(map[string]map[string]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", name, err)
		}
		msgs := make(map[string]string)
		if err := yaml.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", name, err)
		}
		bundles[strings.TrimSuffix(name, ".yaml")] = msgs
	}
	return NewCatalogFromBundles(defaultLang, bundles)
}

// NewCatalogFromBundles builds a Catalog from in-memory bundles keyed by language code.
func NewCatalogFromBundles(defaultLang string, bundles map[string]map[string]string) (*Catalog, error) {
	def := strings.ToLower(strings.TrimSpace(defaultLang))
	if _, ok := bundles[def]; !ok {
		return nil, fmt.Errorf("i18n: no bundle for default language %q", defaultLang)
	}

	langs := make([]string, 0, len(bundles))
	for code := range bundles {
		if code != def {
			langs = append(langs, code)
		}
	}
	sort.Strings(langs)
	langs = append([]string{def}, langs...)

	tags := make([]language.Tag, 0, len(langs))
	for _, code := range langs {
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("i18n: bundle %q: %w", code, err)
		}
		tags = append(tags, tag)
	}

	return &Catalog{
		def:     def,
		langs:   langs,
		bundles: bundles,
		matcher: language.NewMatcher(tags),
	}, nil
}

// Default returns the fallback language code.
func (c *Catalog) Default() string { return c.def }

// Languages lists bundle codes, default first.
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.langs...)
}

// Match maps an arbitrary tag such as "uk-UA" onto a bundle code.
func (c *Catalog) Match(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return c.def
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return c.def
	}
	key := tag.String()
	if code, ok := c.matched.Load(key); ok {
		return code.(string)
	}
	code := c.def
	if _, idx, conf := c.matcher.Match(tag); conf != language.No {
		code = c.langs[idx]
	}
	if c.cached.Add(1) <= maxMatchCache {
		c.matched.Store(key, code)
	}
	return code
}

// Resolve returns the template for key in lang, formatted with args.
// Keys missing from both the matched and the default bundle yield "[missing: key]".
func (c *Catalog) Resolve(key, lang string, args ...any) string {
	tmpl, ok := c.bundles[c.Match(lang)][key]
	if !ok {
		tmpl, ok = c.bundles[c.def][key]
	}
	if !ok || tmpl == "" {
		return "[missing: " + key + "]"
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}
