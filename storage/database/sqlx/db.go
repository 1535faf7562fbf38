package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
)

const pqUniqueViolation = "23505"

// trapNoRowsErr maps sql.ErrNoRows to notFound, and wraps anything else.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// uniqueViolation reports whether err is a postgres unique violation of constraint.
func uniqueViolation(err error, constraint string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == pqUniqueViolation && pqErr.Constraint == constraint
}

// withTx runs fn in a transaction, committed only if fn succeeds.
func withTx(ctx context.Context, db core.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

// orderBy renders ordering as an ORDER BY clause, columns prefixed by alias.
// Fields come from the models' OrderingFields whitelists.
func orderBy(alias string, ordering []core.DBOrdering, tiebreak string) string {
	parts := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		col := ord
		if alias != "" {
			col.Field = alias + "." + ord.Field
		}
		parts = append(parts, col.String()+" NULLS LAST")
	}
	if tiebreak != "" {
		parts = append(parts, tiebreak)
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// lockStudent serializes the project-taking operations of one student.
func lockStudent(ctx context.Context, tx *sqlx.Tx, studentID int64) error {
	var id int64
	err := tx.GetContext(ctx, &id, "SELECT user_id FROM users WHERE user_id = $1 FOR UPDATE", studentID)
	if err != nil {
		return errors.Wrap(err, "locking student")
	}
	return nil
}
