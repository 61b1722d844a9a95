// Package database, veritabanı bağlantısını ve migration sistemini yönetir.
//
// İki driver desteklenir:
//   - "sqlite": modernc.org/sqlite — pure-Go, CGO gerekmez. Varsayılan.
//   - "pgx":    jackc/pgx stdlib adapter'ı ile PostgreSQL.
//
// Bağlantı sqlx ile sarılır. Repository'ler sorguları "?" placeholder ile yazar
// ve Rebind ile driver'ın beklediği formata ($1, $2 ...) çevirir. Migration SQL'i
// iki motorun da anladığı ortak alt kümede yazılmıştır.
package database

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // "pgx" driver kaydı
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // "sqlite" driver kaydı

	"github.com/akinalp/ajans/config"
)

// recoverableErrors, migration sırasında tolere edilebilen hata pattern'larıdır.
// Yarım kalan bir migration tekrar çalıştırıldığında zaten eklenmiş kolon
// veya index için hata alınır; bunlar güvenle atlanabilir.
var recoverableErrors = []string{
	"duplicate column name", // SQLite
	"already exists",        // PostgreSQL: column/index "x" already exists
}

// DB, veritabanı bağlantısını saran struct.
// *sqlx.DB bir connection pool'dur, goroutine'ler arasında paylaşılabilir.
type DB struct {
	Conn *sqlx.DB
	log  *zap.Logger
}

// New, konfigürasyondaki driver ile bağlantı açar ve migration'ları çalıştırır.
//
// migrationsFS: Migration SQL dosyalarını içeren fs.FS (embed.FS veya os.DirFS)
func New(cfg config.DatabaseConfig, migrationsFS fs.FS, log *zap.Logger) (*DB, error) {
	log = log.Named("database")

	dsn := cfg.DSN
	if cfg.Driver == "sqlite" {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = sqliteDSN(dsn)
	}

	conn, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	conn.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Conn: conn, log: log}

	if err := db.runMigrations(migrationsFS); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("connected and migrations applied", zap.String("driver", cfg.Driver))
	return db, nil
}

// sqliteDSN, dosya yoluna SQLite pragma'larını ekler.
//
// foreign_keys: SQLite'ta FK kontrolü varsayılan olarak kapalıdır.
// journal_mode(WAL): okuma ve yazma birbirini bloklamaz.
// busy_timeout: kilitli DB'de hemen hata vermek yerine bekler.
// _txlock=immediate: transaction yazma kilidini BEGIN anında alır; okuyup
// sonra yazan transaction'lar (seq ataması gibi) SQLITE_BUSY ile düşmez.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

// Close, veritabanı bağlantısını kapatır.
func (db *DB) Close() error {
	return db.Conn.Close()
}

// runMigrations, migration dosyalarını isim sırasıyla çalıştırır: 001_init.sql, 002_x.sql ...
//
// schema_migrations tablosu hangi dosyaların uygulandığını tutar; sonraki
// başlatmalarda sadece yeni dosyalar çalışır.
func (db *DB) runMigrations(migrationsFS fs.FS) error {
	if _, err := db.Conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	var appliedList []string
	if err := db.Conn.Select(&appliedList, "SELECT filename FROM schema_migrations"); err != nil {
		return fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	applied := make(map[string]bool, len(appliedList))
	for _, name := range appliedList {
		applied[name] = true
	}

	for _, file := range sqlFiles {
		if applied[file] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		if err := db.execStatements(file, string(content)); err != nil {
			return err
		}

		if _, err := db.Conn.Exec(
			db.Conn.Rebind("INSERT INTO schema_migrations (filename) VALUES (?)"), file,
		); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}

		db.log.Info("migration applied", zap.String("file", file))
	}

	return nil
}

// execStatements, bir migration dosyasını statement-by-statement çalıştırır.
// recoverableErrors listesindeki hatalar loglanıp atlanır.
func (db *DB) execStatements(filename, content string) error {
	statements := splitStatements(content)

	for i, stmt := range statements {
		if _, err := db.Conn.Exec(stmt); err != nil {
			errMsg := err.Error()
			recoverable := false
			for _, pattern := range recoverableErrors {
				if strings.Contains(errMsg, pattern) {
					recoverable = true
					break
				}
			}

			if recoverable {
				db.log.Warn("migration statement skipped",
					zap.String("file", filename), zap.Int("statement", i+1), zap.Error(err))
				continue
			}

			return fmt.Errorf("failed to execute migration %s (statement %d): %w", filename, i+1, err)
		}
	}

	return nil
}

// splitStatements, SQL metnini noktalı virgülle statement'lara böler.
// Tek tırnaklı string literal içindeki noktalı virgüller ve "--" satır
// yorumları bölmeyi etkilemez.
func splitStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	inString := false

	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		if !inString && ch == '-' && i+1 < len(sql) && sql[i+1] == '-' {
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
			continue
		}

		if ch == '\'' {
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				current.WriteByte(ch)
				current.WriteByte(sql[i+1])
				i++
				continue
			}
			inString = !inString
		}

		if ch == ';' && !inString {
			if s := strings.TrimSpace(current.String()); s != "" {
				statements = append(statements, s)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		statements = append(statements, s)
	}

	return statements
}
