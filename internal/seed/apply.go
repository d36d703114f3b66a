package seed

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/internal/ledger"
	"github.com/radieske/pool-ledger/internal/ledger-service/engine"
)

// Ledger é o subconjunto do engine usado pelo seed
type Ledger interface {
	RegisterUser(ctx context.Context, id, displayName string, initialBalance int64) (ledger.User, bool, error)
	CreatePool(ctx context.Context, description string, line decimal.Decimal) (ledger.Pool, error)
	PlaceStake(ctx context.Context, userID, poolID string, side ledger.Side, amount int64) (engine.StakeReceipt, error)
	ResolvePool(ctx context.Context, poolID string, result ledger.Result) (engine.Resolution, error)
	GetUser(ctx context.Context, userID string) (ledger.User, error)
	ListPools(ctx context.Context, limit, offset int) ([]ledger.Pool, error)
	GetBetsForPool(ctx context.Context, poolID string) ([]ledger.Bet, error)
}

type PoolReport struct {
	Pool    ledger.Pool
	Stakes  int // stakes aplicados nesta execução
	Payouts []ledger.Payout
	Residue int64
	Resumed bool // já existia e foi completado
	Skipped bool // já existia completo
}

type Report struct {
	Users []ledger.User
	Pools []PoolReport
}

// Apply executa o fixture pelo engine. Usuários existentes mantêm o saldo.
// Um pool com descrição já cadastrada é retomado: os stakes que as bets atuais
// ainda não cobrem são aplicados e, se pendente, o pool é resolvido. Rodar de
// novo após uma falha no meio completa o que faltou.
func Apply(ctx context.Context, l Ledger, f Fixture, log *zap.Logger) (Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var rep Report

	for _, u := range f.Users {
		if _, created, err := l.RegisterUser(ctx, u.ID, u.DisplayName, u.Balance); err != nil {
			return rep, fmt.Errorf("seed: user %s: %w", u.ID, err)
		} else if !created {
			log.Info("user already registered", zap.String("user_id", u.ID))
		}
	}

	for _, ps := range f.Pools {
		pr, err := applyPool(ctx, l, ps)
		if err != nil {
			return rep, err
		}
		switch {
		case pr.Skipped:
			log.Info("pool already seeded", zap.String("pool_id", pr.Pool.ID), zap.String("description", ps.Description))
		case pr.Resumed:
			log.Info("pool resumed",
				zap.String("pool_id", pr.Pool.ID),
				zap.Int("stakes", pr.Stakes),
				zap.String("result", string(pr.Pool.Result)))
		default:
			log.Info("pool seeded",
				zap.String("pool_id", pr.Pool.ID),
				zap.Int("stakes", pr.Stakes),
				zap.String("result", string(pr.Pool.Result)))
		}
		rep.Pools = append(rep.Pools, pr)
	}

	for _, u := range f.Users {
		usr, err := l.GetUser(ctx, u.ID)
		if err != nil {
			return rep, fmt.Errorf("seed: read user %s: %w", u.ID, err)
		}
		rep.Users = append(rep.Users, usr)
	}
	return rep, nil
}

func applyPool(ctx context.Context, l Ledger, ps PoolSeed) (PoolReport, error) {
	line, err := decimal.NewFromString(ps.Line)
	if err != nil {
		return PoolReport{}, fmt.Errorf("seed: pool %q: bad line: %w", ps.Description, err)
	}

	var (
		pr       PoolReport
		held     map[string]ledger.Bet
		resolved bool
	)
	pool, err := l.CreatePool(ctx, ps.Description, line)
	switch {
	case ledger.Is(err, ledger.KindAlreadyExists):
		if pool, err = findPool(ctx, l, ps.Description); err != nil {
			return PoolReport{}, err
		}
		if held, err = heldBets(ctx, l, pool.ID); err != nil {
			return PoolReport{}, err
		}
		pr.Resumed = true
	case err != nil:
		return PoolReport{}, fmt.Errorf("seed: pool %q: %w", ps.Description, err)
	}
	pr.Pool = pool

	if pool.IsPending() {
		// cada bet existente cobre um prefixo dos stakes daquele usuário
		covered := map[string]int64{}
		for _, st := range ps.Stakes {
			side, err := ledger.ParseSide(st.Side)
			if err != nil {
				return PoolReport{}, err
			}
			if b, ok := held[st.User]; ok && b.Side == side && covered[st.User]+st.Amount <= b.Amount {
				covered[st.User] += st.Amount
				continue
			}
			rcpt, err := l.PlaceStake(ctx, st.User, pool.ID, side, st.Amount)
			if err != nil {
				return pr, fmt.Errorf("seed: stake %s on %q: %w", st.User, ps.Description, err)
			}
			pr.Pool = rcpt.Pool
			pr.Stakes++
		}

		if ps.Resolve != "" {
			result, err := ledger.ParseResult(ps.Resolve)
			if err != nil {
				return PoolReport{}, err
			}
			res, err := l.ResolvePool(ctx, pool.ID, result)
			if err != nil {
				return pr, fmt.Errorf("seed: resolve %q: %w", ps.Description, err)
			}
			pr.Pool = res.Pool
			pr.Payouts = res.Payouts
			pr.Residue = res.Residue
			resolved = true
		}
	}

	if pr.Resumed && pr.Stakes == 0 && !resolved {
		pr.Resumed, pr.Skipped = false, true
	}
	return pr, nil
}

// findPool procura o pool pela descrição percorrendo a listagem
func findPool(ctx context.Context, l Ledger, description string) (ledger.Pool, error) {
	const page = 100
	for offset := 0; ; offset += page {
		pools, err := l.ListPools(ctx, page, offset)
		if err != nil {
			return ledger.Pool{}, fmt.Errorf("seed: list pools: %w", err)
		}
		for _, p := range pools {
			if p.Description == description {
				return p, nil
			}
		}
		if len(pools) < page {
			return ledger.Pool{}, ledger.E(ledger.KindNotFound, "seed", "pool '"+description+"' not found")
		}
	}
}

func heldBets(ctx context.Context, l Ledger, poolID string) (map[string]ledger.Bet, error) {
	bets, err := l.GetBetsForPool(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("seed: bets of %s: %w", poolID, err)
	}
	out := make(map[string]ledger.Bet, len(bets))
	for _, b := range bets {
		out[b.UserID] = b
	}
	return out, nil
}

// Render imprime o resumo em tabelas
func (r Report) Render(w io.Writer) {
	pools := tablewriter.NewWriter(w)
	pools.Header("Pool", "Description", "Line", "Over", "Under", "Result", "Payouts", "Residue")
	for _, p := range r.Pools {
		result := string(p.Pool.Result)
		switch {
		case p.Skipped:
			result = "skipped"
		case p.Resumed:
			result += " (resumed)"
		}
		pools.Append(
			p.Pool.ID,
			p.Pool.Description,
			p.Pool.Line.String(),
			strconv.FormatInt(p.Pool.OverTotal, 10),
			strconv.FormatInt(p.Pool.UnderTotal, 10),
			result,
			strconv.Itoa(len(p.Payouts)),
			strconv.FormatInt(p.Residue, 10),
		)
	}
	pools.Render()

	users := tablewriter.NewWriter(w)
	users.Header("User", "Name", "Balance")
	for _, u := range r.Users {
		users.Append(u.ID, u.DisplayName, strconv.FormatInt(u.Balance, 10))
	}
	users.Render()
}
