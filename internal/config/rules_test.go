package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-composer/internal/template"
)

func TestDefaultRules(t *testing.T) {
	r := DefaultRules()
	assert.Equal(t, 3, r.Limits.Buttons.MaxVisible)
	assert.Equal(t, 10, r.Limits.Buttons.MaxTotal)
	assert.Equal(t, 2, r.Limits.Buttons.MaxURL)
	assert.Equal(t, 1, r.Limits.Buttons.MaxPhone)
	assert.Equal(t, 1024, r.Limits.BodyMaxLength)
	assert.Equal(t, 60, r.Limits.FooterMaxLength)
	assert.Equal(t, 140, r.ShortenTarget())
}

func TestLoadRules_MissingFileUsesDefaults(t *testing.T) {
	r, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRules().Limits, r.Limits)
}

func TestLoadRules_SparseFileKeepsOtherDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	yaml := "limits:\n  buttons:\n    max_visible: 2\nlint_rules:\n  languages:\n    whitelist: [en_US, hi_IN]\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	r, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Limits.Buttons.MaxVisible)
	assert.Equal(t, 10, r.Limits.Buttons.MaxTotal, "unset caps fall back to defaults")
	assert.Equal(t, []string{"en_US", "hi_IN"}, r.Lint.Languages.Whitelist)
	assert.NotEmpty(t, r.Lint.CategoryConstraints)
}

func TestLoadRules_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limits: ["), 0o644))
	_, err := LoadRules(path)
	assert.Error(t, err)
}

func TestConstraint_Authentication(t *testing.T) {
	c := DefaultRules().Constraint(template.CategoryAuthentication)
	assert.False(t, c.FooterAllowed())
	assert.False(t, c.ButtonsAllowed())
	assert.True(t, c.HeaderFormatAllowed(template.FormatText))
	assert.False(t, c.HeaderFormatAllowed(template.FormatImage))
}

func TestConstraint_UnknownCategoryIsPermissive(t *testing.T) {
	c := DefaultRules().Constraint(template.Category("MYSTERY"))
	assert.True(t, c.FooterAllowed())
	assert.True(t, c.ButtonsAllowed())
	assert.True(t, c.HeaderFormatAllowed(template.FormatLocation))
}

func TestDefaultButtons_FallsBackToMarketing(t *testing.T) {
	r := DefaultRules()
	assert.Equal(t, []string{"View details", "Contact us"}, r.DefaultButtons(template.CategoryUtility))
	assert.Equal(t, []string{"Shop now", "Learn more", "Contact us"}, r.DefaultButtons(template.CategoryAuthentication))
}

func TestStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	store, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, 3, store.Rules().Limits.Buttons.MaxVisible)

	require.NoError(t, os.WriteFile(path, []byte("limits:\n  buttons:\n    max_visible: 2\n"), 0o644))
	_, err = store.Reload()
	require.NoError(t, err)
	assert.Equal(t, 2, store.Rules().Limits.Buttons.MaxVisible)
}
