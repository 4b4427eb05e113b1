package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kyyril/portfolio/internal/apperror"
)

// constraintCode returns the extended SQLite result code carried by err, or
// 0 when err did not come from the driver.
func constraintCode(err error) int {
	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

func isUniqueViolation(err error) bool {
	code := constraintCode(err)
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func isForeignKeyViolation(err error) bool {
	return constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// ownedMutation describes an UPDATE or DELETE that must only touch a row the
// caller owns. The statement carries "WHERE id = ? AND user_id = ?" itself,
// so there is no window between the ownership check and the write.
type ownedMutation struct {
	table     string // table holding id and user_id
	resource  string // name used in the NotFound message
	forbidden string // message used when the row belongs to someone else
	query     string
	args      []any
}

// exec runs the mutation. If it changed nothing, a follow-up probe tells a
// missing row (NotFound) apart from someone else's row (Forbidden).
func (m ownedMutation) exec(ctx context.Context, conn *sql.DB, id string) error {
	res, err := conn.ExecContext(ctx, m.query, m.args...)
	if err != nil {
		return fmt.Errorf("sqlite: mutating %s %s: %w", m.table, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var owner string
	err = conn.QueryRowContext(ctx,
		`SELECT user_id FROM `+m.table+` WHERE id = ?`, id,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound(m.resource)
	}
	if err != nil {
		return fmt.Errorf("sqlite: probing %s %s: %w", m.table, id, err)
	}
	return apperror.Forbidden(m.forbidden)
}
