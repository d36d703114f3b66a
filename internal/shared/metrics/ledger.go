package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ledger agrupa os contadores do livro. Os métodos casam com os callbacks do
// engine, do job de recarga e do processor de eventos.
type Ledger struct {
	Stakes       *prometheus.CounterVec
	Resolutions  *prometheus.CounterVec
	PayoutUnits  prometheus.Counter
	StoreRetries *prometheus.CounterVec
	Replenished  prometheus.Counter
}

// NewLedger cria e registra os contadores em reg
func NewLedger(reg prometheus.Registerer) *Ledger {
	m := &Ledger{
		Stakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_stakes_total", Help: "apostas por resultado (ok ou tipo do erro)",
		}, []string{"outcome"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_resolutions_total", Help: "resoluções de pool por resultado",
		}, []string{"outcome"}),
		PayoutUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_payout_units_total", Help: "unidades creditadas a vencedores (principal + prêmio)",
		}),
		StoreRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_store_retries_total", Help: "transações repetidas por falha transitória",
		}, []string{"op"}),
		Replenished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_replenished_users_total", Help: "usuários recarregados pelo job",
		}),
	}
	reg.MustRegister(m.Stakes, m.Resolutions, m.PayoutUnits, m.StoreRetries, m.Replenished)
	return m
}

func (m *Ledger) ObserveStake(outcome string) { m.Stakes.WithLabelValues(outcome).Inc() }
func (m *Ledger) ObserveResolve(outcome string) { m.Resolutions.WithLabelValues(outcome).Inc() }
func (m *Ledger) ObserveRetry(op string) { m.StoreRetries.WithLabelValues(op).Inc() }
func (m *Ledger) AddPayout(units int64) { m.PayoutUnits.Add(float64(units)) }
func (m *Ledger) AddReplenished(users int) { m.Replenished.Add(float64(users)) }
