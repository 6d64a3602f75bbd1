package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-lot/internal/config"
)

func TestRebind(t *testing.T) {
	q := "UPDATE slots SET status = ? WHERE slot_id = ? AND status = ?"

	assert.Equal(t, q, MySQL.Rebind(q))
	assert.Equal(t, "UPDATE slots SET status = $1 WHERE slot_id = $2 AND status = $3", Postgres.Rebind(q))
}

func TestDriverName(t *testing.T) {
	assert.Equal(t, "mysql", MySQL.DriverName())
	assert.Equal(t, "pgx", Postgres.DriverName())
}

func TestIsDuplicate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql wrapped", fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062}), true},
		{"mysql other", &mysql.MySQLError{Number: 1452}, false},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, false},
		{"plain", errors.New("Duplicate entry 1062"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicate(tt.err))
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		User: "parking", Pass: "s3cret", Host: "db", Port: "3306", Name: "parking_db", SSLMode: "disable",
	}

	dsn, err := MySQL.DSN(cfg)
	require.NoError(t, err)
	assert.Contains(t, dsn, "parking:s3cret@tcp(db:3306)/parking_db?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")

	cfg.Port = "5432"
	dsn, err = Postgres.DSN(cfg)
	require.NoError(t, err)
	assert.Equal(t, "postgres://parking:s3cret@db:5432/parking_db?sslmode=disable&timezone=UTC", dsn)

	_, err = Dialect("sqlite").DSN(cfg)
	assert.Error(t, err)
}

func TestMigrateURL(t *testing.T) {
	cfg := config.DatabaseConfig{User: "u", Pass: "p", Host: "h", Port: "5432", Name: "n", SSLMode: "disable"}

	u, err := Postgres.MigrateURL(cfg)
	require.NoError(t, err)
	assert.Equal(t, "pgx5://u:p@h:5432/n?sslmode=disable&timezone=UTC", u)

	u, err = MySQL.MigrateURL(cfg)
	require.NoError(t, err)
	assert.Regexp(t, `^mysql://u:p@tcp\(h:5432\)/n\?.*multiStatements=true$`, u)
}

func TestInsertIDMySQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	q := "INSERT INTO floors (floor_name) VALUES (?)"
	mock.ExpectExec(regexp.QuoteMeta(q)).WithArgs("Ground").WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := MySQL.InsertID(context.Background(), db, q, "floor_id", "Ground")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertIDPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO floors (floor_name) VALUES ($1) RETURNING floor_id")).
		WithArgs("Ground").
		WillReturnRows(sqlmock.NewRows([]string{"floor_id"}).AddRow(3))

	id, err := Postgres.InsertID(context.Background(), db, "INSERT INTO floors (floor_name) VALUES (?)", "floor_id", "Ground")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, d := range []string{"mysql", "postgres"} {
		entries, err := migrationsFS.ReadDir("migrations/" + d)
		require.NoError(t, err)
		assert.Len(t, entries, 2, d)
	}
}
