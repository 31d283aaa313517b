package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedCatalog(t *testing.T) {
	m, err := Load("ru")
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "ru"}, m.Languages())

	ru := m.Translator("ru")
	assert.Equal(t, "ru", ru.Lang())
	assert.Equal(t, "👤 Профиль", ru.T("menu.profile"))

	en := m.Translator("EN")
	assert.Equal(t, "👤 Profile", en.T("menu.profile"))

	fallback := m.Translator("de")
	assert.Equal(t, "ru", fallback.Lang())
}

func TestLoad_LanguagesShareKeys(t *testing.T) {
	m, err := Load("ru")
	require.NoError(t, err)

	assert.Empty(t, m.Missing("en"))
	assert.Empty(t, m.Missing("ru"))
}

func TestLoad_StatsButtonAndReportAreSeparateKeys(t *testing.T) {
	m, err := Load("ru")
	require.NoError(t, err)

	ru := m.Translator("ru")
	assert.Equal(t, "📊 Статистика", ru.T("admin.stats_button"))
	assert.Contains(t, ru.T("admin.stats"), "%d")
}

func TestLoadFS_DuplicateKeysRejected(t *testing.T) {
	fsys := fstest.MapFS{
		"ru.yaml": {Data: []byte(`ru:
  admin:
    stats: a
    stats: b
`)},
	}

	_, err := LoadFS(fsys, ".", "ru")
	assert.Error(t, err)
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml":    {Data: []byte("ru:\n  greet: \"Привет, %s\"\n  only_ru: x\n")},
		"b.yml":     {Data: []byte("en:\n  greet: \"Hi, %s\"\n")},
		"notes.txt": {Data: []byte("ignored")},
	}

	m, err := LoadFS(fsys, ".", "ru")
	require.NoError(t, err)

	en := m.Translator("en")
	assert.Equal(t, "Hi, Ann", Tf(en, "greet", "Ann"))
	assert.Equal(t, "x", en.T("only_ru"))
	assert.Equal(t, "missing.key", en.T("missing.key"))
	assert.Equal(t, []string{"only_ru"}, m.Missing("en"))
}

func TestLoadFS_LaterFilesOverride(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/10_base.yaml":     {Data: []byte(`ru:
  menu:
    title: База
    limit: 5
`)},
		"locales/20_override.yaml": {Data: []byte(`ru:
  menu:
    title: Меню
`)},
	}

	m, err := LoadFS(fsys, "locales", "")
	require.NoError(t, err)

	ru := m.Translator("ru")
	assert.Equal(t, "Меню", ru.T("menu.title"))
	assert.Equal(t, "5", ru.T("menu.limit"))
}

func TestLoadFS_Errors(t *testing.T) {
	_, err := LoadFS(fstest.MapFS{"x.txt": {Data: []byte("")}}, ".", "ru")
	assert.Error(t, err)

	_, err = LoadFS(fstest.MapFS{"a.yaml": {Data: []byte("en:\n  k: v\n")}}, ".", "ru")
	assert.Error(t, err)
}
