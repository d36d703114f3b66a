package ledger

import "math/bits"

// ComputePayouts calcula o crédito de cada vencedor quando o pool é resolvido
// com result:
//
//	winnings = floor(bet.Amount * losingTotal / winningTotal)
//	credited = winnings + bet.Amount
//
// Os totais vêm do próprio pool no momento da resolução. Se o lado vencedor não
// tem stake, nada é distribuído (o pool perdedor fica com a casa). O resíduo do
// arredondamento (no máximo winningTotal-1 unidades) não é redistribuído.
func ComputePayouts(pool Pool, bets []Bet, result Result) []Payout {
	win := result.Side()
	winningTotal := pool.Total(win)
	losingTotal := pool.Total(win.Opposite())
	if winningTotal <= 0 {
		return []Payout{}
	}

	out := make([]Payout, 0, len(bets))
	for _, b := range bets {
		if b.Side != win || b.Amount <= 0 {
			continue
		}
		w := share(b.Amount, losingTotal, winningTotal)
		out = append(out, Payout{
			UserID:   b.UserID,
			BetID:    b.ID,
			Stake:    b.Amount,
			Winnings: w,
			Credited: w + b.Amount,
		})
	}
	return out
}

// Residue retorna o que sobra do pool perdedor após o arredondamento
func Residue(pool Pool, payouts []Payout, result Result) int64 {
	if len(payouts) == 0 {
		return 0
	}
	var distributed int64
	for _, p := range payouts {
		distributed += p.Winnings
	}
	return pool.Total(result.Side().Opposite()) - distributed
}

// share calcula floor(amount*losing/winning) em 128 bits. Como amount <= winning,
// o quociente nunca excede losing.
func share(amount, losing, winning int64) int64 {
	if losing <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(amount), uint64(losing))
	if hi >= uint64(winning) {
		// só com totais inconsistentes (amount > winning)
		return losing
	}
	q, _ := bits.Div64(hi, lo, uint64(winning))
	return int64(q)
}
