package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for ledger operations.
type Metrics struct {
	TradesSubmitted   prometheus.Counter
	MatchesRecorded   *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	TradeReads        prometheus.Counter
}

// New creates and registers all ledger metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		TradesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradeledger_trades_submitted_total",
			Help: "Total number of trades submitted to shared ledgers",
		}),
		MatchesRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tradeledger_matches_recorded_total",
			Help: "Match operations by kind and outcome",
		}, []string{"kind", "outcome"}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tradeledger_status_transitions_total",
			Help: "Trade status transitions by target status",
		}, []string{"to"}),
		TradeReads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradeledger_trade_reads_total",
			Help: "Projected trade detail reads",
		}),
	}
}
