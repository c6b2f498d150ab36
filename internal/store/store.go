package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNoRowsAffected is returned by guarded updates whose WHERE clause matched nothing.
var ErrNoRowsAffected = errors.New("no rows affected")

// batchSize keeps multi-row inserts under the driver's bind variable limit.
const batchSize = 500

func checkAffectedRows(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// namedInsertBatches runs a named multi-row insert in chunks of batchSize.
func namedInsertBatches[T any](ctx context.Context, q sqlx.ExtContext, query string, rows []T) error {
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		if _, err := sqlx.NamedExecContext(ctx, q, query, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}
