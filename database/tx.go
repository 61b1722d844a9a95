// Package database — Transaction yönetimi.
//
// WithTx, birden fazla DB operasyonunun atomik (all-or-nothing) çalışmasını sağlar.
// Mesaj ekleme gibi akışlarda seq ataması, insert ve unread sayaçlarının
// artırılması tek birim olarak commit edilir; herhangi biri başarısız olursa
// hiçbiri yazılmaz.
//
// Kullanım:
//
//	err := database.WithTx(ctx, db.Conn, func(tx *sqlx.Tx) error {
//	    if _, err := tx.ExecContext(ctx, tx.Rebind("INSERT ..."), ...); err != nil {
//	        return err // → ROLLBACK
//	    }
//	    return nil // → COMMIT
//	})
package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxQuerier, hem *sqlx.DB hem *sqlx.Tx tarafından karşılanan interface.
//
// Repository'ler bu interface'i alırsa normal operasyonlarda *sqlx.DB,
// transaction içinde *sqlx.Tx geçilebilir.
type TxQuerier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// WithTx, verilen fonksiyonu bir SQL transaction içinde çalıştırır.
//
// fn nil dönerse COMMIT, error dönerse ROLLBACK yapılır. fn panic atarsa
// ROLLBACK yapılıp panic tekrar fırlatılır; açık kalan transaction DB
// kilidini tutmaz.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}

		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}

		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(tx)
	return
}
