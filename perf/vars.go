package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency      = metric.NewHistogram("1m1s")
	TickLatency          = metric.NewHistogram("1m1s")
	LedgerLatency        = metric.NewHistogram("1m1s")
	ActionsPerTick       = metric.NewHistogram("10s1s")
	ActionsPerSecond     = metric.NewCounter("10s1s")
	DeliveredPerSecond   = metric.NewCounter("10s1s")
	DroppedPerSecond     = metric.NewCounter("10s1s")
	RegistersPerSecond   = metric.NewCounter("10s1s")
	SignInsPerSecond     = metric.NewCounter("10s1s")
	SignOutsPerSecond    = metric.NewCounter("10s1s")
	LedgerRequestsPerSec = metric.NewCounter("10s1s")
)

func init() {
	expvar.Publish("manasim:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("manasim:TickLatency (µs)", TickLatency)
	expvar.Publish("manasim:LedgerLatency (µs)", LedgerLatency)
	expvar.Publish("manasim:ActionsPerTick", ActionsPerTick)

	expvar.Publish("manasim:Actions/s", ActionsPerSecond)
	expvar.Publish("manasim:Delivered/s", DeliveredPerSecond)
	expvar.Publish("manasim:Dropped/s", DroppedPerSecond)
	expvar.Publish("manasim:Registers/s", RegistersPerSecond)
	expvar.Publish("manasim:SignIns/s", SignInsPerSecond)
	expvar.Publish("manasim:SignOuts/s", SignOutsPerSecond)
	expvar.Publish("manasim:LedgerRequests/s", LedgerRequestsPerSec)
}

// Handler serves every published metric
func Handler() http.Handler {
	return metric.Handler(metric.Exposed)
}
