package server

import (
	"log/slog"

	"github.com/chatboat/chatboat/pkg/protocol"
)

// Dispatcher fans one message out to the current registry snapshot. Delivery
// to each recipient is an enqueue on that session's bounded outbox; a slow
// recipient never blocks the caller or delivery to anyone else. When an
// outbox is full the frame is dropped for that recipient and counted as a
// backpressure event; the session stays connected.
type Dispatcher struct {
	reg     *Registry
	metrics *Metrics
}

// NewDispatcher wires a dispatcher to the registry it enumerates.
func NewDispatcher(reg *Registry, metrics *Metrics) *Dispatcher {
	return &Dispatcher{reg: reg, metrics: metrics}
}

// Deliver enqueues m for every active session, skipping origin when
// excludeOrigin is set. It never blocks.
func (d *Dispatcher) Deliver(origin string, m protocol.Message, excludeOrigin bool) {
	for _, s := range d.reg.All() {
		if excludeOrigin && s.Name == origin {
			continue
		}
		if s.stopped() {
			// Already past its closing transition; not a backpressure event.
			continue
		}
		if !s.enqueue(m) {
			d.metrics.BackpressureDrops.Add(1)
			slog.Warn("recipient outbox full, dropping frame",
				"recipient", s.Name, "origin", origin, "tag", m.Tag().String())
		}
	}
}
