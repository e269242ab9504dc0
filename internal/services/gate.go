package services

import "sync/atomic"

// StatsGate hands out a StatsService once one has been published. The HTTP
// layer starts before the catalog finishes loading and asks the gate on every
// request.
type StatsGate struct {
	current atomic.Pointer[statsSlot]
}

type statsSlot struct {
	service StatsService
}

// Publish makes s available to Get. Later calls replace the published service.
func (g *StatsGate) Publish(s StatsService) {
	g.current.Store(&statsSlot{service: s})
}

// Get returns the published service, or false while none is available.
func (g *StatsGate) Get() (StatsService, bool) {
	slot := g.current.Load()
	if slot == nil {
		return nil, false
	}
	return slot.service, true
}
