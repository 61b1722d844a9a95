package i18n

import "embed"

// EmbeddedLocales, locales/ altındaki çeviri dosyaları.
// fs.Sub(EmbeddedLocales, "locales") ile Load'a verilir.
//
//go:embed locales/*.json
var EmbeddedLocales embed.FS
