package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/teleapo/core"
)

func TestTransactor_WithinTx(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = mockDB.Close() }()
	tx := NewTransactor(sqlx.NewDb(mockDB, "postgres"))
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE lists").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := tx.WithinTx(ctx, func(exec core.DBExecutor) error {
			_, err := exec.ExecContext(ctx, "UPDATE lists SET total_count = total_count + 1")
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := tx.WithinTx(ctx, func(exec core.DBExecutor) error { return boom })
		assert.Equal(t, boom, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDSN(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine:        "postgres",
		Host:          "db",
		Port:          "5432",
		Name:          "teleapo",
		User:          "app",
		Password:      "secret",
		AdminUser:     "root",
		AdminPassword: "toor",
		DisableTLS:    true,
	}}

	assert.Equal(t, "postgres://app:secret@db:5432/teleapo?sslmode=disable&timezone=utc", dsn("teleapo", false, conf))
	assert.Equal(t, "postgres://root:toor@db:5432/postgres?sslmode=disable&timezone=utc", dsn("postgres", true, conf))
}
