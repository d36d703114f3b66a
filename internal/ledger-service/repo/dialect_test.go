package repo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock", &pq.Error{Code: "40P01"}, true},
		{"lock not available", &pq.Error{Code: "55P03"}, true},
		{"admin shutdown", &pq.Error{Code: "57P01"}, true},
		{"connection failure", &pq.Error{Code: "08006"}, true},
		{"first bet race", &pq.Error{Code: "23505", Constraint: constraintBetUserPool}, true},
		{"first user race", &pq.Error{Code: "23505", Constraint: constraintUserPK}, true},
		{"duplicate description", &pq.Error{Code: "23505", Constraint: constraintPoolDescription}, false},
		{"foreign key", &pq.Error{Code: "23503", Constraint: "bets_pool_id_fkey"}, false},
		{"check violation", &pq.Error{Code: "23514", Constraint: "users_balance_check"}, false},
		{"wrapped deadlock", fmt.Errorf("stake: %w", &pq.Error{Code: "40P01"}), true},
		{"bad conn", driver.ErrBadConn, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"net error", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset")}, true},
		{"cancelled", context.Canceled, false},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pgTransient(tc.err))
		})
	}
}

func TestPostgresDialect(t *testing.T) {
	d := postgresDialect()
	assert.Equal(t, " FOR UPDATE", d.forUpdate)
	assert.Equal(t, "SELECT $1, $2", d.rebind("SELECT $1, $2"))

	dup := &pq.Error{Code: "23505", Constraint: constraintPoolDescription}
	assert.True(t, d.unique(dup, constraintPoolDescription))
	assert.True(t, d.unique(fmt.Errorf("insert pool: %w", dup), constraintPoolDescription))
	assert.False(t, d.unique(dup, constraintBetUserPool))
	assert.False(t, d.unique(&pq.Error{Code: "23503", Constraint: constraintPoolDescription}, constraintPoolDescription))
	assert.False(t, d.unique(errors.New("duplicate"), constraintPoolDescription))
}

func TestSqliteDialect_Rebind(t *testing.T) {
	d := sqliteDialect()
	assert.Empty(t, d.forUpdate)
	assert.Equal(t, "UPDATE users SET balance = balance + ?1 WHERE id=?3 AND balance + ?1 >= 0",
		d.rebind("UPDATE users SET balance = balance + $1 WHERE id=$3 AND balance + $1 >= 0"))
}

func TestSqliteDialect_Unique(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `CREATE TABLE bets (user_id TEXT, pool_id TEXT, UNIQUE (user_id, pool_id))`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO bets VALUES ('1', 'p')`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO bets VALUES ('1', 'p')`)
	require.Error(t, err)

	d := sqliteDialect()
	assert.True(t, d.unique(err, constraintBetUserPool))
	assert.False(t, d.unique(err, constraintPoolDescription))
	assert.False(t, d.unique(err, "unknown_constraint"))
	assert.False(t, sqliteTransient(err))
}

func TestSqliteTransient_Busy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "busy.db")
	dsn := "file:" + path + "?_pragma=busy_timeout(0)"
	ctx := context.Background()

	holder, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = holder.Close() })
	_, err = holder.ExecContext(ctx, `CREATE TABLE t (v INTEGER)`)
	require.NoError(t, err)

	conn, err := holder.Conn(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_, err = conn.ExecContext(ctx, `BEGIN IMMEDIATE`)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = conn.ExecContext(ctx, `ROLLBACK`) })

	other, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })

	_, err = other.ExecContext(ctx, `INSERT INTO t VALUES (1)`)
	require.Error(t, err)
	assert.True(t, sqliteTransient(err), "got %v", err)
	assert.True(t, sqliteTransient(fmt.Errorf("insert: %w", err)))

	assert.True(t, sqliteTransient(driver.ErrBadConn))
	assert.False(t, sqliteTransient(context.Canceled))
	assert.False(t, sqliteTransient(errors.New("boom")))
}
