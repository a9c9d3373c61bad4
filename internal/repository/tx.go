package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

// withTx runs fn in a transaction.  fn's error is returned as is and the
// transaction is rolled back; begin and commit failures become StorageErrors.
func withTx(ctx context.Context, db *sql.DB, op string, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op+": begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr(op+": commit", err)
	}
	committed = true
	return nil
}

// seatTuples renders "(?, ?),(?, ?)" for a row-constructor IN list.
func seatTuples(keys []model.SeatKey) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(keys)*2)
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?)")
		args = append(args, k.RowLabel, k.SeatNumber)
	}
	return b.String(), args
}

// placeholders renders "?, ?, ?" for n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
