// Package testutil, paket testlerinin paylaştığı yardımcıları barındırır.
package testutil

import (
	"io/fs"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/akinalp/ajans/config"
	"github.com/akinalp/ajans/database"
)

// NewTestDB, geçici dizinde migration'ları uygulanmış bir SQLite DB açar.
// Test bitince bağlantı kapatılır, dosya t.TempDir ile silinir.
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()

	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		t.Fatalf("failed to open embedded migrations: %v", err)
	}

	db, err := database.New(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	}, migrations, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}
