// Package i18n serves the bot texts from YAML catalogs keyed by language.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var locales embed.FS

// Translator resolves localized strings using dot-separated keys.
type Translator interface {
	T(key string) string
	Lang() string
}

// catalog maps language -> flattened key -> text.
type catalog map[string]map[string]string

// Manager stores all available translations.
type Manager struct {
	catalog     catalog
	defaultLang string
}

// Load loads the catalog compiled into the binary.
func Load(defaultLang string) (*Manager, error) {
	return LoadFS(locales, "locales", defaultLang)
}

// LoadFromDir loads translations from a directory containing YAML files.
func LoadFromDir(dir, defaultLang string) (*Manager, error) {
	return LoadFS(os.DirFS(dir), ".", defaultLang)
}

// LoadFS merges every YAML file in root of fsys. A file holds one or more
// top-level language sections; later files override earlier keys.
func LoadFS(fsys fs.FS, root, defaultLang string) (*Manager, error) {
	names, err := fs.Glob(fsys, path.Join(root, "*.y*ml"))
	if err != nil {
		return nil, fmt.Errorf("i18n: list %s: %w", root, err)
	}
	sort.Strings(names)

	merged := make(catalog)
	for _, name := range names {
		if err := merged.loadFile(fsys, name); err != nil {
			return nil, err
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("i18n: no yaml files found in %s", root)
	}

	if defaultLang == "" {
		defaultLang = "ru"
	}
	if _, ok := merged[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}

	return &Manager{catalog: merged, defaultLang: defaultLang}, nil
}

// Translator returns a translator for lang, or for the default language
// when lang is unknown.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	lang = normalize(lang)
	if _, ok := m.catalog[lang]; !ok {
		lang = m.defaultLang
	}

	return translator{lang: lang, fallback: m.defaultLang, catalog: m.catalog}
}

// Languages returns the loaded languages in sorted order.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}

	languages := make([]string, 0, len(m.catalog))
	for lang := range m.catalog {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}

// Missing lists keys of the default language that lang does not define.
func (m *Manager) Missing(lang string) []string {
	if m == nil {
		return nil
	}

	texts := m.catalog[normalize(lang)]
	var missing []string
	for key := range m.catalog[m.defaultLang] {
		if _, ok := texts[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

type translator struct {
	lang     string
	fallback string
	catalog  catalog
}

func (t translator) Lang() string {
	return t.lang
}

// T returns the text for key, falling back to the default language and
// finally to the key itself.
func (t translator) T(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}

	for _, lang := range [...]string{t.lang, t.fallback} {
		if text, ok := t.catalog[lang][key]; ok && text != "" {
			return text
		}
	}
	return key
}

// Tf looks up key and formats it with args.
func Tf(t Translator, key string, args ...any) string {
	if t == nil {
		return key
	}
	return fmt.Sprintf(t.T(key), args...)
}

func (c catalog) loadFile(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("i18n: read file %s: %w", name, err)
	}

	var sections map[string]any
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return fmt.Errorf("i18n: parse file %s: %w", name, err)
	}

	for lang, body := range sections {
		lang = normalize(lang)
		tree, ok := body.(map[string]any)
		if lang == "" || !ok {
			continue
		}
		if c[lang] == nil {
			c[lang] = make(map[string]string)
		}
		flatten("", tree, c[lang])
	}
	return nil
}

// flatten writes nested sections as dot-separated keys. Non-string
// scalars are kept in their printed form.
func flatten(prefix string, tree map[string]any, out map[string]string) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}

		switch v := value.(type) {
		case map[string]any:
			flatten(key, v, out)
		case string:
			out[key] = v
		case nil:
		default:
			out[key] = fmt.Sprint(v)
		}
	}
}

func normalize(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
