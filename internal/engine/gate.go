package engine

import "sync"

type gateKey struct {
	flowKey string
	step    string
}

// Gate is an in-memory open/close switch keyed by (flow, step), letting an
// external signal hold a step back from executing. Supplemented from the
// original flow crate's GateService (stubs.rs); no step is gated unless
// explicitly registered here, so the zero value behaves exactly like
// spec.md's engine contract describes.
type Gate struct {
	mu    sync.Mutex
	state map[gateKey]bool // true = open
}

// NewGate returns an empty Gate where every (flow, step) is open.
func NewGate() *Gate {
	return &Gate{state: make(map[gateKey]bool)}
}

// Open marks (flowKey, step) open, clearing any prior Close.
func (g *Gate) Open(flowKey, step string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.state, gateKey{flowKey, step})
}

// Close marks (flowKey, step) closed.
func (g *Gate) Close(flowKey, step string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state[gateKey{flowKey, step}] = true
}

// IsOpen reports whether (flowKey, step) is open. Unregistered pairs are
// open by default.
func (g *Gate) IsOpen(flowKey, step string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.state[gateKey{flowKey, step}]
}
