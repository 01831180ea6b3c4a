package store

import (
	"errors"
	"path/filepath"
	"testing"

	"fruity/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDefaults = Defaults{
	BaseURL:  "https://fruity-backend.onrender.com/",
	Region:   "Quebec",
	Language: types.French,
}

func openTemp(t *testing.T) *Preferences {
	t.Helper()
	p, err := OpenPreferences(filepath.Join(t.TempDir(), "sub", "prefs.db"), testDefaults)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPreferences_Defaults(t *testing.T) {
	p := openTemp(t)
	assert.Equal(t, "https://fruity-backend.onrender.com", p.BaseURL())
	assert.Equal(t, "Quebec", p.Region())
	assert.Equal(t, types.French, p.Language())

	all, err := p.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPreferences_PersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	p, err := OpenPreferences(path, testDefaults)
	require.NoError(t, err)

	stored, err := p.SetBaseURL("  http://localhost:5000//  ")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", stored)
	require.NoError(t, p.SetRegion("  Ontario "))
	lang, err := p.SetLanguage("EN")
	require.NoError(t, err)
	assert.Equal(t, types.English, lang)
	require.NoError(t, p.Close())

	reopened, err := OpenPreferences(path, testDefaults)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, "http://localhost:5000", reopened.BaseURL())
	assert.Equal(t, "Ontario", reopened.Region())
	assert.Equal(t, types.English, reopened.Language())

	all, err := reopened.All()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		KeyBaseURL:  "http://localhost:5000",
		KeyRegion:   "Ontario",
		KeyLanguage: "en",
	}, all)
}

func TestPreferences_RejectsBadValues(t *testing.T) {
	p := openTemp(t)

	_, err := p.SetBaseURL("fruity-backend")
	assert.Error(t, err)

	err = p.SetRegion("   ")
	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "region", verr.Field)

	_, err = p.SetLanguage("de")
	assert.Error(t, err)

	// Nothing was stored.
	all, err := p.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPreferences_DeleteRestoresDefault(t *testing.T) {
	p := openTemp(t)
	require.NoError(t, p.SetRegion("Ontario"))
	require.NoError(t, p.Delete(KeyRegion))
	assert.Equal(t, "Quebec", p.Region())
}

func TestPreferences_CorruptLanguageFallsBack(t *testing.T) {
	p := openTemp(t)
	require.NoError(t, p.Set(KeyLanguage, "klingon"))
	assert.Equal(t, types.French, p.Language())
}

func TestPreferences_Overwrite(t *testing.T) {
	p := openTemp(t)
	require.NoError(t, p.SetRegion("Ontario"))
	require.NoError(t, p.SetRegion("Gaspésie"))
	v, ok, err := p.Get(KeyRegion)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Gaspésie", v)
}
