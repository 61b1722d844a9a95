// Package i18n, kullanıcıya giden metinlerin (bildirim ve özet email'leri)
// yerelleştirilmesini sağlar.
//
// Dil, alıcının users.language alanından gelir. Desteklenmeyen veya boş dil
// varsayılana (en) düşer.
//
//	bundle, _ := i18n.Load(localesFS, log)
//	l := bundle.Localizer("tr")
//	l.TWithParams("email.notification.greeting", map[string]string{"name": "Ayşe"})
//	// → "Merhaba Ayşe,"
package i18n

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// SupportedLanguages, çeviri dosyası beklenen dil kodları.
var SupportedLanguages = []string{"en", "tr"}

// DefaultLanguage, fallback dili.
const DefaultLanguage = "en"

// Bundle, yüklenmiş tüm çeviriler. Load'dan sonra sadece okunur,
// goroutine'ler arasında paylaşılabilir.
type Bundle struct {
	translations map[string]map[string]string
}

// Load, her desteklenen dil için <lang>.json dosyasını okur.
// Nested JSON nokta notasyonuna düzleştirilir: {"email": {"cta": "..."}} → "email.cta".
func Load(localesFS fs.FS, log *zap.Logger) (*Bundle, error) {
	b := &Bundle{translations: make(map[string]map[string]string, len(SupportedLanguages))}

	for _, lang := range SupportedLanguages {
		fileName := lang + ".json"

		data, err := fs.ReadFile(localesFS, fileName)
		if err != nil {
			return nil, fmt.Errorf("failed to read translation file %s: %w", fileName, err)
		}

		var nested map[string]any
		if err := json.Unmarshal(data, &nested); err != nil {
			return nil, fmt.Errorf("failed to parse translation file %s: %w", fileName, err)
		}

		flat := make(map[string]string)
		flattenMap("", nested, flat)
		b.translations[lang] = flat

		log.Debug("translations loaded", zap.String("lang", lang), zap.Int("keys", len(flat)))
	}

	return b, nil
}

// Keys, verilen dildeki tüm anahtarlar.
func (b *Bundle) Keys(lang string) []string {
	keys := make([]string, 0, len(b.translations[lang]))
	for k := range b.translations[lang] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Localizer, dili sabitlenmiş çevirici.
type Localizer struct {
	bundle *Bundle
	lang   string
}

// Localizer, lang için çevirici döner. Desteklenmeyen dil varsayılana düşer.
func (b *Bundle) Localizer(lang string) *Localizer {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i] // "tr-TR" → "tr"
	}
	if !slices.Contains(SupportedLanguages, lang) {
		lang = DefaultLanguage
	}
	return &Localizer{bundle: b, lang: lang}
}

// Lang, çözümlenmiş dil kodu.
func (l *Localizer) Lang() string { return l.lang }

// T, anahtarın çevirisini döner. Önce kendi dili, sonra İngilizce,
// o da yoksa anahtarın kendisi.
func (l *Localizer) T(key string) string {
	if msg, ok := l.bundle.translations[l.lang][key]; ok {
		return msg
	}
	if msg, ok := l.bundle.translations[DefaultLanguage][key]; ok {
		return msg
	}
	return key
}

// TWithParams, {{param}} yer tutucularını doldurur.
func (l *Localizer) TWithParams(key string, params map[string]string) string {
	msg := l.T(key)
	for k, v := range params {
		msg = strings.ReplaceAll(msg, "{{"+k+"}}", v)
	}
	return msg
}

func flattenMap(prefix string, src map[string]any, dst map[string]string) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case string:
			dst[key] = val
		case map[string]any:
			flattenMap(key, val, dst)
		}
	}
}
