package perf

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	NodesOnline = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "manasim_nodes_online",
		Help: "Nodes the router currently reaches.",
	})
	LedgerNodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "manasim_ledger_nodes",
		Help: "Nodes with a record in the ledger.",
	})
	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manasim_actions_total",
		Help: "Broker actions handled, by kind.",
	}, []string{"kind"})
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manasim_messages_total",
		Help: "Router messages, by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(NodesOnline, LedgerNodes, ActionsTotal, MessagesTotal)
}

// PromHandler serves the prometheus collectors in the text exposition format
func PromHandler() http.Handler {
	return promhttp.Handler()
}
