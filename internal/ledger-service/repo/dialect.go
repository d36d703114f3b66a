package repo

import (
	"context"
	"database/sql/driver"
	"embed"
	"errors"
	"io"
	"net"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// dialect isola o que muda entre Postgres e SQLite: lock de linha,
// placeholders, schema e classificação de erros de driver
type dialect struct {
	name      string
	schema    string
	forUpdate string
	rebind    func(string) string
	transient func(error) bool
	unique    func(err error, constraint string) bool
}

var numbered = regexp.MustCompile(`\$(\d+)`)

func postgresDialect() dialect {
	return dialect{
		name:      "postgres",
		schema:    "schema/postgres.sql",
		forUpdate: " FOR UPDATE",
		rebind:    func(q string) string { return q },
		transient: pgTransient,
		unique: func(err error, constraint string) bool {
			var pqErr *pq.Error
			return errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == constraint
		},
	}
}

// No SQLite a conexão única já serializa as transações, então não há FOR UPDATE.
// Os placeholders $N viram ?N (numerados, aceitam repetição).
func sqliteDialect() dialect {
	return dialect{
		name:      "sqlite",
		schema:    "schema/sqlite.sql",
		forUpdate: "",
		rebind:    func(q string) string { return numbered.ReplaceAllString(q, "?$1") },
		transient: sqliteTransient,
		unique: func(err error, constraint string) bool {
			var sErr *sqlite.Error
			if !errors.As(err, &sErr) || sErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
				return false
			}
			cols, ok := sqliteConstraintColumns[constraint]
			msg := sErr.Error()
			return ok && strings.Contains(msg, "UNIQUE") && strings.Contains(msg, cols)
		},
	}
}

// nomes das constraints do Postgres -> colunas citadas na mensagem do SQLite
var sqliteConstraintColumns = map[string]string{
	constraintPoolDescription: "pools.description",
	constraintBetUserPool:     "bets.user_id, bets.pool_id",
	constraintUserPK:          "users.id",
}

const (
	constraintPoolDescription = "pools_description_key"
	constraintBetUserPool     = "bets_user_pool_key"
	constraintUserPK          = "users_pkey"
)

func (d dialect) loadSchema() (string, error) {
	b, err := schemaFS.ReadFile(d.schema)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// pgTransient reconhece falhas que somem ao repetir a transação inteira
func pgTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03", // lock_not_available
			"57P01": // admin_shutdown
			return true
		}
		// corrida na primeira escrita de uma linha: repetir enxerga a linha do vencedor
		if pqErr.Code == "23505" && (pqErr.Constraint == constraintBetUserPool || pqErr.Constraint == constraintUserPK) {
			return true
		}
		return pqErr.Code.Class() == "08" // connection_exception
	}
	return connectionError(err)
}

func sqliteTransient(err error) bool {
	var sErr *sqlite.Error
	if errors.As(err, &sErr) {
		switch sErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	return connectionError(err)
}

func connectionError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
