package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func testManager(t *testing.T) *Manager {
	t.Helper()

	dir := t.TempDir()
	writeCatalog(t, dir, "en.yaml", `
en:
  bot:
    welcome: "Hello!"
    ask_email: "Email for %s?"
  label:
    back: "Back"
`)
	writeCatalog(t, dir, "fr.yaml", `
fr:
  bot:
    welcome: "Bonjour !"
`)

	m, err := LoadFromDir(dir, "en")
	require.NoError(t, err)
	return m
}

func TestLoadFromDir_FlattensNestedKeys(t *testing.T) {
	m := testManager(t)

	tr := m.Translator("en")
	assert.Equal(t, "Hello!", tr.T("bot.welcome"))
	assert.Equal(t, "Back", tr.T("label.back"))
	assert.Equal(t, "en", tr.Lang())
}

func TestLoadFromDir_MissingDefaultLanguage(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "fr.yaml", "fr:\n  bot:\n    welcome: \"Bonjour\"\n")

	_, err := LoadFromDir(dir, "en")
	assert.Error(t, err)
}

func TestLoadFromDir_EmptyDir(t *testing.T) {
	_, err := LoadFromDir(t.TempDir(), "en")
	assert.Error(t, err)
}

func TestTranslator_FallbackChain(t *testing.T) {
	m := testManager(t)

	fr := m.Translator("fr")
	assert.Equal(t, "Bonjour !", fr.T("bot.welcome"))
	// key missing in fr falls back to the default language
	assert.Equal(t, "Back", fr.T("label.back"))
	// key missing everywhere resolves to itself so broken catalogs stay visible
	assert.Equal(t, "bot.nonexistent", fr.T("bot.nonexistent"))
}

func TestTranslator_UnknownLanguageUsesDefault(t *testing.T) {
	m := testManager(t)

	tr := m.Translator("de")
	assert.Equal(t, "en", tr.Lang())
	assert.Equal(t, "Hello!", tr.T("bot.welcome"))

	tr = m.Translator("  FR  ")
	assert.Equal(t, "fr", tr.Lang(), "codes are normalized before lookup")
}

func TestTranslator_Tf(t *testing.T) {
	m := testManager(t)

	tr := m.Translator("en")
	assert.Equal(t, "Email for Jane?", tr.Tf("bot.ask_email", "Jane"))
	assert.Equal(t, "Email for %s?", tr.Tf("bot.ask_email"), "no args leaves the format untouched")
}

func TestManager_Languages(t *testing.T) {
	m := testManager(t)

	assert.ElementsMatch(t, []string{"en", "fr"}, m.Languages())
}

func TestManager_Reload(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "en.yaml", "en:\n  bot:\n    welcome: \"Hello!\"\n")

	m, err := LoadFromDir(dir, "en")
	require.NoError(t, err)

	writeCatalog(t, dir, "en.yaml", "en:\n  bot:\n    welcome: \"Hi there!\"\n")
	require.NoError(t, m.Reload())

	assert.Equal(t, "Hi there!", m.Translator("en").T("bot.welcome"))
}

func TestManager_ReloadKeepsDefaultLanguageGuarantee(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "en.yaml", "en:\n  bot:\n    welcome: \"Hello!\"\n")

	m, err := LoadFromDir(dir, "en")
	require.NoError(t, err)

	// a reload that would drop the default language is rejected
	require.NoError(t, os.Rename(filepath.Join(dir, "en.yaml"), filepath.Join(dir, "en.yaml.bak")))
	writeCatalog(t, dir, "fr.yaml", "fr:\n  bot:\n    welcome: \"Bonjour\"\n")

	assert.Error(t, m.Reload())
	assert.Equal(t, "Hello!", m.Translator("en").T("bot.welcome"), "old catalog stays active")
}

func TestNilManagerIsSafe(t *testing.T) {
	var m *Manager

	tr := m.Translator("en")
	assert.Equal(t, "bot.welcome", tr.T("bot.welcome"))
	assert.Nil(t, m.Languages())
}
