// Package i18n resolves the static prompt catalog of the chat widget. Bot
// prompts, menu labels, and error messages live in per-language YAML files;
// dynamic content (knowledge-base answers) is translated at runtime by the
// translate package instead.
package i18n

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const defaultDir = "internal/i18n"

// Translator resolves localized strings using dot-separated keys.
type Translator interface {
	T(key string) string
	Tf(key string, args ...any) string
	Lang() string
}

// Manager stores all loaded translation catalogs and hands out per-language
// translators. Reload swaps the catalogs atomically, so translators obtained
// before a reload keep working.
type Manager struct {
	mu           sync.RWMutex
	dir          string
	translations map[string]map[string]string
	defaultLang  string
}

// Load loads translations from the default directory.
func Load(defaultLang string) (*Manager, error) {
	return LoadFromDir(defaultDir, defaultLang)
}

// LoadFromDir loads translations from a directory of YAML catalogs. Each file
// maps a language code to a nested key tree which is flattened to dot keys.
func LoadFromDir(dir, defaultLang string) (*Manager, error) {
	catalog, err := parseDir(dir)
	if err != nil {
		return nil, err
	}

	if defaultLang == "" {
		defaultLang = "en"
	}

	if _, ok := catalog[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}

	return &Manager{dir: dir, translations: catalog, defaultLang: defaultLang}, nil
}

// Reload re-parses the catalog directory and swaps the catalogs in place.
func (m *Manager) Reload() error {
	catalog, err := parseDir(m.dir)
	if err != nil {
		return err
	}

	if _, ok := catalog[m.defaultLang]; !ok {
		return fmt.Errorf("i18n: default language %q is missing after reload", m.defaultLang)
	}

	m.mu.Lock()
	m.translations = catalog
	m.mu.Unlock()
	return nil
}

// Translator returns a translator for the requested language, falling back to
// the default language for unknown codes and missing keys.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	norm := strings.ToLower(strings.TrimSpace(lang))

	m.mu.RLock()
	defer m.mu.RUnlock()

	if norm == "" || m.translations[norm] == nil {
		norm = m.defaultLang
	}

	return translator{
		lang:     norm,
		fallback: m.defaultLang,
		manager:  m,
	}
}

// Languages returns all loaded language codes.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	languages := make([]string, 0, len(m.translations))
	for lang := range m.translations {
		languages = append(languages, lang)
	}
	return languages
}

func (m *Manager) lookup(lang, key string) string {
	if m == nil || lang == "" {
		return ""
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if entries := m.translations[lang]; entries != nil {
		if value, ok := entries[key]; ok {
			return value
		}
	}

	return ""
}

type translator struct {
	lang     string
	fallback string
	manager  *Manager
}

func (t translator) Lang() string {
	return t.lang
}

func (t translator) T(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}

	if value := t.manager.lookup(t.lang, key); value != "" {
		return value
	}

	if value := t.manager.lookup(t.fallback, key); value != "" {
		return value
	}

	return key
}

// Tf resolves the key and applies fmt formatting to it.
func (t translator) Tf(key string, args ...any) string {
	format := t.T(key)
	if len(args) == 0 {
		return format
	}

	return fmt.Sprintf(format, args...)
}

func parseDir(dir string) (map[string]map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read dir %s: %w", dir, err)
	}

	catalog := make(map[string]map[string]string)
	var processed bool

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry) {
			continue
		}

		processed = true

		path := filepath.Join(dir, entry.Name())
		fileCatalog, err := parseFile(path)
		if err != nil {
			return nil, err
		}

		for lang, translations := range fileCatalog {
			if _, ok := catalog[lang]; !ok {
				catalog[lang] = make(map[string]string)
			}
			for key, value := range translations {
				catalog[lang][key] = value
			}
		}
	}

	if !processed {
		return nil, fmt.Errorf("i18n: no yaml files found in %s", dir)
	}

	return catalog, nil
}

func isYAML(entry fs.DirEntry) bool {
	name := strings.ToLower(entry.Name())
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func parseFile(path string) (map[string]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("i18n: read file %s: %w", path, err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return map[string]map[string]string{}, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("i18n: parse file %s: %w", path, err)
	}

	catalog := make(map[string]map[string]string)
	for lang, value := range raw {
		langKey := strings.ToLower(strings.TrimSpace(lang))
		if langKey == "" {
			continue
		}

		normalized, ok := value.(map[string]any)
		if !ok || len(normalized) == 0 {
			continue
		}

		flattened := make(map[string]string)
		flatten("", normalized, flattened)
		if len(flattened) == 0 {
			continue
		}

		catalog[langKey] = flattened
	}

	return catalog, nil
}

func flatten(prefix string, value map[string]any, out map[string]string) {
	for key, item := range value {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}

		switch v := item.(type) {
		case map[string]any:
			flatten(full, v, out)
		case string:
			out[full] = v
		case nil:
			// skip empty leaves
		default:
			out[full] = fmt.Sprint(v)
		}
	}
}
