package repo

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/radieske/pool-ledger/internal/ledger"
)

// Tx agrupa as operações de leitura com lock e escrita usadas pelo engine.
// Ordem de lock: pool antes de usuários, usuários em ordem crescente de id.
type Tx interface {
	LockPool(ctx context.Context, id string) (ledger.Pool, error)
	LockUser(ctx context.Context, id string) (ledger.User, error)
	LockUsers(ctx context.Context, ids []string) (map[string]ledger.User, error)
	LockBet(ctx context.Context, userID, poolID string) (ledger.Bet, bool, error)
	BetsForPool(ctx context.Context, poolID string) ([]ledger.Bet, error)
	ZeroBalanceUsers(ctx context.Context) ([]ledger.User, error)

	InsertBet(ctx context.Context, b *ledger.Bet) error
	UpdateBetAmount(ctx context.Context, b *ledger.Bet) error
	AddToPool(ctx context.Context, poolID string, side ledger.Side, amount int64) error
	SetPoolResult(ctx context.Context, p *ledger.Pool, result ledger.Result) error
	AdjustBalance(ctx context.Context, userID string, delta int64) error
	AppendEntry(ctx context.Context, e *ledger.LedgerEntry) error
	InsertPool(ctx context.Context, p *ledger.Pool) error
	InsertUser(ctx context.Context, u *ledger.User) error
	RenameUser(ctx context.Context, userID, displayName string) error
}

type sqlTx struct {
	q querier
	s *Store
}

const (
	selectPool = `SELECT id, description, line, over_total, under_total, result, created_at, resolved_at FROM pools`
	selectUser = `SELECT id, display_name, balance, created_at, updated_at FROM users`
	selectBet  = `SELECT id, user_id, pool_id, side, amount, created_at, updated_at FROM bets`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanPool(r scanner) (ledger.Pool, error) {
	var (
		p          ledger.Pool
		result     string
		resolvedAt sql.NullTime
	)
	if err := r.Scan(&p.ID, &p.Description, &p.Line, &p.OverTotal, &p.UnderTotal, &result, &p.CreatedAt, &resolvedAt); err != nil {
		return ledger.Pool{}, err
	}
	p.Result = ledger.Result(result)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		p.ResolvedAt = &t
	}
	return p, nil
}

func scanUser(r scanner) (ledger.User, error) {
	var u ledger.User
	err := r.Scan(&u.ID, &u.DisplayName, &u.Balance, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func scanBet(r scanner) (ledger.Bet, error) {
	var (
		b    ledger.Bet
		side string
	)
	if err := r.Scan(&b.ID, &b.UserID, &b.PoolID, &side, &b.Amount, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return ledger.Bet{}, err
	}
	b.Side = ledger.Side(side)
	return b, nil
}

func betsWhere(ctx context.Context, q querier, s *Store, where string, arg any) ([]ledger.Bet, error) {
	rows, err := q.QueryContext(ctx, s.q(selectBet+` WHERE `+where+` ORDER BY created_at, id`), arg)
	if err != nil {
		return nil, s.wrap("list bets", err)
	}
	defer rows.Close()

	out := []ledger.Bet{}
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, s.wrap("list bets", err)
		}
		out = append(out, b)
	}
	return out, s.wrap("list bets", rows.Err())
}

func (t *sqlTx) LockPool(ctx context.Context, id string) (ledger.Pool, error) {
	p, err := scanPool(t.q.QueryRowContext(ctx, t.s.q(selectPool+` WHERE id=$1`+t.s.d.forUpdate), id))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Pool{}, errPoolNotFound(id)
	}
	return p, t.s.wrap("lock pool", err)
}

func (t *sqlTx) LockUser(ctx context.Context, id string) (ledger.User, error) {
	u, err := scanUser(t.q.QueryRowContext(ctx, t.s.q(selectUser+` WHERE id=$1`+t.s.d.forUpdate), id))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.User{}, errUserNotFound(id)
	}
	return u, t.s.wrap("lock user", err)
}

// LockUsers trava os usuários em ordem crescente de id, ignorando repetidos
func (t *sqlTx) LockUsers(ctx context.Context, ids []string) (map[string]ledger.User, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	out := make(map[string]ledger.User, len(sorted))
	for _, id := range sorted {
		if _, seen := out[id]; seen {
			continue
		}
		u, err := t.LockUser(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = u
	}
	return out, nil
}

func (t *sqlTx) LockBet(ctx context.Context, userID, poolID string) (ledger.Bet, bool, error) {
	b, err := scanBet(t.q.QueryRowContext(ctx,
		t.s.q(selectBet+` WHERE user_id=$1 AND pool_id=$2`+t.s.d.forUpdate), userID, poolID))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Bet{}, false, nil
	}
	if err != nil {
		return ledger.Bet{}, false, t.s.wrap("lock bet", err)
	}
	return b, true, nil
}

func (t *sqlTx) BetsForPool(ctx context.Context, poolID string) ([]ledger.Bet, error) {
	return betsWhere(ctx, t.q, t.s, `pool_id=$1`, poolID)
}

// ZeroBalanceUsers trava e retorna todos os usuários com saldo exatamente zero
func (t *sqlTx) ZeroBalanceUsers(ctx context.Context) ([]ledger.User, error) {
	rows, err := t.q.QueryContext(ctx, t.s.q(selectUser+` WHERE balance = 0 ORDER BY id`+t.s.d.forUpdate))
	if err != nil {
		return nil, t.s.wrap("zero balance users", err)
	}
	defer rows.Close()

	out := []ledger.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, t.s.wrap("zero balance users", err)
		}
		out = append(out, u)
	}
	return out, t.s.wrap("zero balance users", rows.Err())
}

// InsertBet grava uma aposta nova; ID e timestamps são preenchidos aqui
func (t *sqlTx) InsertBet(ctx context.Context, b *ledger.Bet) error {
	now := t.s.now()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt, b.UpdatedAt = now, now
	_, err := t.q.ExecContext(ctx, t.s.q(`
		INSERT INTO bets (id, user_id, pool_id, side, amount, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`),
		b.ID, b.UserID, b.PoolID, string(b.Side), b.Amount, b.CreatedAt, b.UpdatedAt)
	return t.s.wrap("insert bet", err)
}

func (t *sqlTx) UpdateBetAmount(ctx context.Context, b *ledger.Bet) error {
	b.UpdatedAt = t.s.now()
	_, err := t.q.ExecContext(ctx, t.s.q(`UPDATE bets SET amount=$1, updated_at=$2 WHERE id=$3`),
		b.Amount, b.UpdatedAt, b.ID)
	return t.s.wrap("update bet", err)
}

func (t *sqlTx) AddToPool(ctx context.Context, poolID string, side ledger.Side, amount int64) error {
	query := `UPDATE pools SET under_total = under_total + $1 WHERE id=$2`
	if side == ledger.SideOver {
		query = `UPDATE pools SET over_total = over_total + $1 WHERE id=$2`
	}
	_, err := t.q.ExecContext(ctx, t.s.q(query), amount, poolID)
	return t.s.wrap("add to pool", err)
}

// SetPoolResult só transiciona a partir de PENDING; zero linhas afetadas
// significa que outro resolvedor chegou antes
func (t *sqlTx) SetPoolResult(ctx context.Context, p *ledger.Pool, result ledger.Result) error {
	at := t.s.now()
	res, err := t.q.ExecContext(ctx, t.s.q(`
		UPDATE pools SET result=$1, resolved_at=$2
		WHERE id=$3 AND result='PENDING'`), string(result), at, p.ID)
	if err != nil {
		return t.s.wrap("set pool result", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return t.s.wrap("set pool result", err)
	}
	if n != 1 {
		return ledger.E(ledger.KindAlreadyResolved, "repo", "pool "+p.ID+" is not pending")
	}
	p.Result = result
	p.ResolvedAt = &at
	return nil
}

// AdjustBalance soma delta ao saldo; nunca deixa o saldo negativo
func (t *sqlTx) AdjustBalance(ctx context.Context, userID string, delta int64) error {
	res, err := t.q.ExecContext(ctx, t.s.q(`
		UPDATE users SET balance = balance + $1, updated_at=$2
		WHERE id=$3 AND balance + $1 >= 0`), delta, t.s.now(), userID)
	if err != nil {
		return t.s.wrap("adjust balance", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return t.s.wrap("adjust balance", err)
	}
	if n != 1 {
		return ledger.E(ledger.KindInsufficientFunds, "repo", "balance of "+userID+" would become negative")
	}
	return nil
}

func (t *sqlTx) AppendEntry(ctx context.Context, e *ledger.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = t.s.now()
	var poolID any
	if e.PoolID != "" {
		poolID = e.PoolID
	}
	_, err := t.q.ExecContext(ctx, t.s.q(`
		INSERT INTO ledger_entries (id, user_id, pool_id, kind, amount, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`),
		e.ID, e.UserID, poolID, string(e.Kind), e.Amount, e.CreatedAt)
	return t.s.wrap("append entry", err)
}

// InsertPool grava um pool novo em PENDING; descrição repetida vira AlreadyExists
func (t *sqlTx) InsertPool(ctx context.Context, p *ledger.Pool) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Result = ledger.ResultPending
	p.CreatedAt = t.s.now()
	_, err := t.q.ExecContext(ctx, t.s.q(`
		INSERT INTO pools (id, description, line, over_total, under_total, result, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`),
		p.ID, p.Description, p.Line.String(), p.OverTotal, p.UnderTotal, string(p.Result), p.CreatedAt)
	if err != nil && t.s.d.unique(err, constraintPoolDescription) {
		return ledger.E(ledger.KindAlreadyExists, "repo", "pool '"+p.Description+"' already exists")
	}
	return t.s.wrap("insert pool", err)
}

func (t *sqlTx) InsertUser(ctx context.Context, u *ledger.User) error {
	now := t.s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := t.q.ExecContext(ctx, t.s.q(`
		INSERT INTO users (id, display_name, balance, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)`),
		u.ID, u.DisplayName, u.Balance, u.CreatedAt, u.UpdatedAt)
	return t.s.wrap("insert user", err)
}

func (t *sqlTx) RenameUser(ctx context.Context, userID, displayName string) error {
	_, err := t.q.ExecContext(ctx, t.s.q(`UPDATE users SET display_name=$1, updated_at=$2 WHERE id=$3`),
		displayName, t.s.now(), userID)
	return t.s.wrap("rename user", err)
}
