package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/pool-ledger/internal/ledger"
	"github.com/radieske/pool-ledger/internal/ledger-service/dto"
	"github.com/radieske/pool-ledger/internal/ledger-service/engine"
	"github.com/radieske/pool-ledger/pkg/contracts/events"
)

func errBody(kind, msg string) dto.ErrorResponse {
	return dto.ErrorResponse{Error: kind, Message: msg}
}

// registerUser cria (201) ou atualiza o nome (200) de um usuário
func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterUserRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, created, err := s.eng.RegisterUser(r.Context(), req.ID, req.DisplayName, req.InitialBalance)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, u)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.eng.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) getUserBets(w http.ResponseWriter, r *http.Request) {
	bets, err := s.eng.GetBetsForUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

func (s *Server) getUserLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := s.eng.GetLedgerForUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) createPool(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePoolRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Line == nil {
		s.writeError(w, r, ledger.E(ledger.KindInvalidArgument, "create pool", "line is required"))
		return
	}
	p, err := s.eng.CreatePool(r.Context(), req.Description, *req.Line)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := publishCtx(r)
	defer cancel()
	if err := s.publ.PublishPoolCreated(ctx, events.PoolCreated{
		PoolID:      p.ID,
		Description: p.Description,
		Line:        p.Line.String(),
	}); err != nil {
		s.log.Warn("publish pool_created failed", zap.String("pool_id", p.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) listPools(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pools, err := s.eng.ListPools(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pools)
}

// getPool lê do cache Redis primeiro; no miss busca no store. Só pools
// resolvidos são gravados aqui: o snapshot de um pool pendente fica a cargo do
// pool-events-worker, que recarrega após cada commit.
func (s *Server) getPool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.cache != nil {
		if p, ok, err := s.cache.Get(r.Context(), id); err == nil && ok {
			writeJSON(w, http.StatusOK, p)
			return
		} else if err != nil {
			s.log.Debug("pool cache get failed", zap.String("pool_id", id), zap.Error(err))
		}
	}

	p, err := s.eng.GetPool(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.cache != nil && !p.IsPending() {
		_ = s.cache.Set(r.Context(), p)
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) getPoolBets(w http.ResponseWriter, r *http.Request) {
	bets, err := s.eng.GetBetsForPool(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

func (s *Server) placeStake(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "id")
	var req dto.PlaceStakeRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	side, err := ledger.ParseSide(req.Side)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rcpt, err := s.eng.PlaceStake(r.Context(), req.UserID, poolID, side, req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := publishCtx(r)
	defer cancel()
	s.invalidate(ctx, poolID)
	if err := s.publ.PublishStakePlaced(ctx, events.StakePlaced{
		BetID:      rcpt.Bet.ID,
		UserID:     rcpt.Bet.UserID,
		PoolID:     poolID,
		Side:       string(rcpt.Bet.Side),
		Amount:     req.Amount,
		BetAmount:  rcpt.Bet.Amount,
		Balance:    rcpt.Balance,
		OverTotal:  rcpt.Pool.OverTotal,
		UnderTotal: rcpt.Pool.UnderTotal,
	}); err != nil {
		s.log.Warn("publish stake_placed failed", zap.String("pool_id", poolID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, dto.StakeResponse{Bet: rcpt.Bet, Balance: rcpt.Balance, Pool: rcpt.Pool})
}

func (s *Server) resolvePool(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "id")
	var req dto.ResolvePoolRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := ledger.ParseResult(req.Result)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.eng.ResolvePool(r.Context(), poolID, result)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := toResolveResponse(res)

	ctx, cancel := publishCtx(r)
	defer cancel()
	s.invalidate(ctx, poolID)
	lines := make([]events.PayoutLine, 0, len(resp.Payouts))
	for _, p := range resp.Payouts {
		lines = append(lines, events.PayoutLine{UserID: p.UserID, Amount: p.Amount})
	}
	if err := s.publ.PublishPoolResolved(ctx, events.PoolResolved{
		PoolID:     poolID,
		Result:     string(res.Pool.Result),
		OverTotal:  res.Pool.OverTotal,
		UnderTotal: res.Pool.UnderTotal,
		Payouts:    lines,
		Residue:    res.Residue,
	}); err != nil {
		s.log.Warn("publish pool_resolved failed", zap.String("pool_id", poolID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, resp)
}

func toResolveResponse(res engine.Resolution) dto.ResolveResponse {
	out := dto.ResolveResponse{
		Pool:    res.Pool,
		Payouts: make([]dto.PayoutLine, 0, len(res.Payouts)),
		Residue: res.Residue,
	}
	for _, p := range res.Payouts {
		out.Payouts = append(out.Payouts, dto.PayoutLine{UserID: p.UserID, Amount: p.Credited})
	}
	return out
}

func (s *Server) invalidate(ctx context.Context, poolID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, poolID); err != nil {
		s.log.Warn("pool cache invalidate failed", zap.String("pool_id", poolID), zap.Error(err))
	}
}
