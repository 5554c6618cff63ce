package tagedit

import "sync"

// GateState is the state of a confirmation gate.
type GateState int

const (
	GateClosed GateState = iota
	GateOpen
)

func (s GateState) String() string {
	if s == GateOpen {
		return "open"
	}
	return "closed"
}

// Gate holds a destructive action behind explicit acknowledgment.
// The zero value is a closed gate.
type Gate struct {
	mu    sync.Mutex
	state GateState
}

// Open asks for confirmation. Opening an open gate is a no-op.
func (g *Gate) Open() {
	g.mu.Lock()
	g.state = GateOpen
	g.mu.Unlock()
}

// State returns the current state.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// IsOpen reports whether confirmation is being requested.
func (g *Gate) IsOpen() bool {
	return g.State() == GateOpen
}

// Confirm runs action and closes the gate. On a closed gate it does nothing
// and returns false. action must not call back into the gate.
func (g *Gate) Confirm(action func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != GateOpen {
		return false
	}
	action()
	g.state = GateClosed
	return true
}

// Cancel closes the gate without acting. It returns false if already closed.
func (g *Gate) Cancel() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != GateOpen {
		return false
	}
	g.state = GateClosed
	return true
}
