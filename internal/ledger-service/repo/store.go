package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/radieske/pool-ledger/internal/ledger"
)

// ErrTransient marca falhas do banco que podem ser resolvidas repetindo a
// transação inteira (conflito de serialização, deadlock, conexão perdida)
var ErrTransient = errors.New("transient store failure")

// TransientError embrulha a causa original de uma falha transitória
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("repo: %s: %v", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }
func (e *TransientError) Is(t error) bool { return t == ErrTransient }

// IsTransient informa se err deve ser repetido pela política de retry
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// querier é satisfeito por *sql.DB e *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store é o Ledger Store sobre database/sql. Toda escrita passa por InTx.
type Store struct {
	db  *sql.DB
	d   dialect
	now func() time.Time
}

// NewPostgres usa uma conexão lib/pq já aberta (ver shared/db)
func NewPostgres(db *sql.DB) *Store { return newStore(db, postgresDialect()) }

// NewSQLite usa uma conexão modernc.org/sqlite já aberta
func NewSQLite(db *sql.DB) *Store {
	// SQLite é single-writer: uma conexão serializa todas as transações
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return newStore(db, sqliteDialect())
}

func newStore(db *sql.DB, d dialect) *Store {
	return &Store{
		db:  db,
		d:   d,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Driver retorna "postgres" ou "sqlite"
func (s *Store) Driver() string { return s.d.name }

// Migrate aplica o schema embutido (idempotente)
func (s *Store) Migrate(ctx context.Context) error {
	schema, err := s.d.loadSchema()
	if err != nil {
		return fmt.Errorf("repo: load schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("repo: apply schema: %w", err)
	}
	return nil
}

// Ping valida a conexão (usado no /healthz)
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close fecha o pool de conexões
func (s *Store) Close() error { return s.db.Close() }

// InTx executa fn dentro de uma transação. Qualquer erro, panic ou
// cancelamento do contexto desfaz todas as escritas de fn.
func (s *Store) InTx(ctx context.Context, fn func(Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap("begin", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&sqlTx{q: tx, s: s}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return s.wrap("commit", err)
	}
	return nil
}

// wrap classifica erros de driver: transitórios viram TransientError,
// os demais ganham contexto da operação
func (s *Store) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var lerr *ledger.Error
	if errors.As(err, &lerr) {
		return err
	}
	if s.d.transient(err) {
		return &TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("repo: %s: %w", op, err)
}

func (s *Store) q(query string) string { return s.d.rebind(query) }

// GetPool lê um pool sem lock
func (s *Store) GetPool(ctx context.Context, id string) (ledger.Pool, error) {
	p, err := scanPool(s.db.QueryRowContext(ctx, s.q(selectPool+` WHERE id=$1`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Pool{}, errPoolNotFound(id)
	}
	return p, s.wrap("get pool", err)
}

// ListPools lista pools, pendentes primeiro, mais recentes antes
func (s *Store) ListPools(ctx context.Context, limit, offset int) ([]ledger.Pool, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, s.q(selectPool+`
		ORDER BY CASE WHEN result='PENDING' THEN 0 ELSE 1 END, created_at DESC, id
		LIMIT $1 OFFSET $2`), limit, offset)
	if err != nil {
		return nil, s.wrap("list pools", err)
	}
	defer rows.Close()

	out := []ledger.Pool{}
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, s.wrap("list pools", err)
		}
		out = append(out, p)
	}
	return out, s.wrap("list pools", rows.Err())
}

// GetUser lê um usuário sem lock
func (s *Store) GetUser(ctx context.Context, id string) (ledger.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.q(selectUser+` WHERE id=$1`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.User{}, errUserNotFound(id)
	}
	return u, s.wrap("get user", err)
}

// BetsForPool lista as apostas de um pool
func (s *Store) BetsForPool(ctx context.Context, poolID string) ([]ledger.Bet, error) {
	return betsWhere(ctx, s.db, s, `pool_id=$1`, poolID)
}

// BetsForUser lista as apostas de um usuário
func (s *Store) BetsForUser(ctx context.Context, userID string) ([]ledger.Bet, error) {
	return betsWhere(ctx, s.db, s, `user_id=$1`, userID)
}

// EntriesForUser lista os lançamentos de saldo de um usuário em ordem cronológica
func (s *Store) EntriesForUser(ctx context.Context, userID string) ([]ledger.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, user_id, pool_id, kind, amount, created_at
		FROM ledger_entries WHERE user_id=$1
		ORDER BY created_at, id`), userID)
	if err != nil {
		return nil, s.wrap("entries for user", err)
	}
	defer rows.Close()

	out := []ledger.LedgerEntry{}
	for rows.Next() {
		var (
			e      ledger.LedgerEntry
			poolID sql.NullString
			kind   string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &poolID, &kind, &e.Amount, &e.CreatedAt); err != nil {
			return nil, s.wrap("entries for user", err)
		}
		e.PoolID = poolID.String
		e.Kind = ledger.EntryKind(kind)
		out = append(out, e)
	}
	return out, s.wrap("entries for user", rows.Err())
}

func errPoolNotFound(id string) error {
	return ledger.E(ledger.KindNotFound, "repo", "pool "+id+" not found")
}

func errUserNotFound(id string) error {
	return ledger.E(ledger.KindNotFound, "repo", "user "+id+" not found")
}
