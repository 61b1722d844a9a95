// Package repository, veritabanı erişim katmanı.
//
// Her repository bir interface ve sqlx tabanlı bir implementasyondan oluşur.
// Sorgular "?" placeholder ile yazılır ve Rebind ile driver'ın formatına
// çevrilir; aynı kod SQLite ve PostgreSQL üzerinde çalışır.
//
// Implementasyonlar database.TxQuerier alır: normalde *sqlx.DB, transaction
// içinde *sqlx.Tx geçilir.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation, UNIQUE/PRIMARY KEY ihlalini iki driver için de tanır.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// clampLimit, liste sorgularının limit parametresini sınırlar.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
