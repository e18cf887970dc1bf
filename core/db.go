package core

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext
	}

	// Transactor runs fn inside a single database transaction.
	// fn must pass the given executor on to every repository call that belongs to the transaction.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
	// NullsFirst forces NULL values at the start whatever the direction.
	NullsFirst bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	s := ord.Field + " " + direction
	if ord.NullsFirst {
		s += " NULLS FIRST"
	}
	return s
}

// OrderBy renders an ORDER BY clause, empty when no ordering is given.
func OrderBy(orderings ...DBOrdering) string {
	if len(orderings) == 0 {
		return ""
	}
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
