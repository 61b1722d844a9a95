package i18n

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func loadEmbedded(t *testing.T) *Bundle {
	t.Helper()
	sub, err := fs.Sub(EmbeddedLocales, "locales")
	require.NoError(t, err)
	b, err := Load(sub, zap.NewNop())
	require.NoError(t, err)
	return b
}

func TestLocales_SameKeys(t *testing.T) {
	b := loadEmbedded(t)
	assert.Equal(t, b.Keys("en"), b.Keys("tr"))
}

func TestLocalizer_Fallbacks(t *testing.T) {
	b := loadEmbedded(t)

	assert.Equal(t, "tr", b.Localizer("tr-TR").Lang())
	assert.Equal(t, "en", b.Localizer("de").Lang())
	assert.Equal(t, "en", b.Localizer("").Lang())

	tr := b.Localizer("tr")
	assert.Equal(t, "Görev atandı", tr.T("category.TASK_ASSIGNED"))
	assert.Equal(t, "missing.key", tr.T("missing.key"))
	assert.Equal(t, "Merhaba Ayşe,", tr.TWithParams("email.notification.greeting", map[string]string{"name": "Ayşe"}))
}
