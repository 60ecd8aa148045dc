// Package telemetry exports dashcore activity as Prometheus metrics.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odvcencio/dashcore/pkg/revive"
	"github.com/odvcencio/dashcore/pkg/target"
)

// Outcome labels for storage operations.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Bridge directions.
const (
	DirectionOut = "out"
	DirectionIn  = "in"
)

// Metrics holds the collectors. A nil *Metrics records nothing, so
// components can take one unconditionally.
type Metrics struct {
	revives        *prometheus.CounterVec
	dispatchErrors *prometheus.CounterVec
	storageOps     *prometheus.CounterVec
	bridgeMessages *prometheus.CounterVec
}

// New registers the collectors on reg under namespace.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		revives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revive_total",
			Help:      "Tagged payloads seen during revival, by type and outcome.",
		}, []string{"type", "outcome"}),
		dispatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_errors_total",
			Help:      "Event dispatches aborted by a handler error.",
		}, []string{"event"}),
		storageOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_ops_total",
			Help:      "Document store operations, by operation and outcome.",
		}, []string{"op", "outcome"}),
		bridgeMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_messages_total",
			Help:      "Events relayed over the bus, by direction.",
		}, []string{"direction"}),
	}
	for _, c := range []prometheus.Collector{m.revives, m.dispatchErrors, m.storageOps, m.bridgeMessages} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveRevive implements revive.Observer.
func (m *Metrics) ObserveRevive(name string, outcome revive.Outcome) {
	if m == nil {
		return
	}
	m.revives.WithLabelValues(name, string(outcome)).Inc()
}

// ObserveDispatchError implements target.Observer. Every "change-<attr>"
// topic is counted as "change" to keep the label set bounded.
func (m *Metrics) ObserveDispatchError(name target.EventName, _ error) {
	if m == nil {
		return
	}
	if _, ok := name.Attribute(); ok {
		name = target.EventChange
	}
	m.dispatchErrors.WithLabelValues(string(name)).Inc()
}

// StorageOp counts one store operation.
func (m *Metrics) StorageOp(op string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.storageOps.WithLabelValues(op, outcome).Inc()
}

// BridgeMessage counts one relayed event.
func (m *Metrics) BridgeMessage(direction string) {
	if m == nil {
		return
	}
	m.bridgeMessages.WithLabelValues(direction).Inc()
}

// Install makes m the observer of revive.Default and of every Target.
func (m *Metrics) Install() {
	if m == nil {
		return
	}
	revive.Default.SetObserver(m)
	target.SetObserver(m)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
