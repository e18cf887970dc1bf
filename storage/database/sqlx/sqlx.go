// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/teleapo/core"
)

type repository struct {
	db core.DBExecutor
}

// getExec returns the executor given by the service, if any, else the repository's.
func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.db
}

// namedGet runs a named query, e.g. an INSERT ... RETURNING *, and scans the single returned row into dest.
func namedGet(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, arg interface{}) error {
	q, args, err := exec.BindNamed(query, arg)
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, exec, dest, q, args...)
}

// expand expands the IN (?) arguments and rebinds the query for the executor.
func expand(exec core.DBExecutor, query string, args []interface{}) (string, []interface{}, error) {
	q, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return exec.Rebind(q), args, nil
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns notFound when the statement did not touch any row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// clauses collects "column = ?" style SQL fragments along with their arguments.
type clauses struct {
	parts []string
	args  []interface{}
}

func (c *clauses) add(part string, args ...interface{}) {
	c.parts = append(c.parts, part)
	c.args = append(c.args, args...)
}

func (c clauses) isEmpty() bool {
	return len(c.parts) == 0
}

func (c clauses) where() string {
	if c.isEmpty() {
		return ""
	}
	return " WHERE " + strings.Join(c.parts, " AND ")
}

// whereAny matches rows satisfying at least one of the clauses.
func (c clauses) whereAny() string {
	if c.isEmpty() {
		return ""
	}
	return " WHERE (" + strings.Join(c.parts, " OR ") + ")"
}

func (c clauses) set() string {
	return " SET " + strings.Join(c.parts, ", ")
}
