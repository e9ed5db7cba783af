// Package metrics exposes the protocol counters over prometheus.
package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/honeybft/honeybft/log"
)

var (
	// PrivateMetrics about the internal world (go process, private stuff)
	PrivateMetrics = prometheus.NewRegistry()

	// RBCDeliveredCounter counts reliable-broadcast sessions that delivered.
	RBCDeliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rbc_sessions_delivered",
		Help: "Number of reliable broadcast sessions that reached delivery",
	})
	// CoinRoundCounter counts common-coin rounds whose bit was extracted.
	CoinRoundCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coin_rounds_finished",
		Help: "Number of common coin rounds completed",
	})
	// DroppedMessageCounter counts inbound messages dropped by protocol and reason.
	DroppedMessageCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dropped_messages",
		Help: "Number of inbound messages silently dropped",
	}, []string{"protocol", "reason"})

	metricsBound = false
)

// Drop reasons used as counter labels.
const (
	DropSession   = "session"
	DropDuplicate = "duplicate"
	DropSignature = "signature"
	DropMerkle    = "merkle"
	DropFinished  = "finished"
)

func bindMetrics() {
	if metricsBound {
		return
	}
	metricsBound = true

	PrivateMetrics.Register(prometheus.NewGoCollector())
	PrivateMetrics.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	protocol := []prometheus.Collector{
		RBCDeliveredCounter,
		CoinRoundCounter,
		DroppedMessageCounter,
	}
	for _, c := range protocol {
		PrivateMetrics.Register(c)
	}
}

// Start starts a prometheus metrics server at the given bind address.
func Start(metricsBind string, l log.Logger) net.Listener {
	l.Debugw("metrics listener starting", "at", metricsBind)
	bindMetrics()

	lis, err := net.Listen("tcp", metricsBind)
	if err != nil {
		l.Warnw("metrics listen failed", "err", err)
		return nil
	}
	s := http.Server{Addr: lis.Addr().String()}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(PrivateMetrics, promhttp.HandlerOpts{Registry: PrivateMetrics}))
	s.Handler = mux
	go func() {
		l.Warnw("metrics listen finished", "err", s.Serve(lis))
	}()
	return lis
}
