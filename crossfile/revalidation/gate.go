package revalidation

import "sync"

// gateState is one URI's publish-gating state.
type gateState struct {
	lastPublished  int32
	hasPublished   bool
	forceRepublish bool
}

// DiagnosticsGate enforces monotonic diagnostics publication per URI (§4.10):
// once a version has been published, an older version is never published
// again, and the same version republishes only when explicitly forced by a
// dependency-triggered revalidation.
//
// The zero value is not usable; construct with [NewDiagnosticsGate].
type DiagnosticsGate struct {
	mu    sync.Mutex
	state map[string]*gateState
}

// NewDiagnosticsGate constructs an empty gate.
func NewDiagnosticsGate() *DiagnosticsGate {
	return &DiagnosticsGate{state: make(map[string]*gateState)}
}

// CanPublish reports whether diagnostics for uri at version may be
// published: never for a version older than the last published one;
// same-version republish only when force-republish is set; strictly newer
// otherwise.
func (g *DiagnosticsGate) CanPublish(uri string, version int32) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.state[uri]
	if !ok || !s.hasPublished {
		return true
	}
	if version < s.lastPublished {
		return false
	}
	if s.forceRepublish {
		return version >= s.lastPublished
	}
	return version > s.lastPublished
}

// RecordPublish records that diagnostics for uri were published at
// version, and clears any pending force-republish flag.
func (g *DiagnosticsGate) RecordPublish(uri string, version int32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.stateLocked(uri)
	s.lastPublished = version
	s.hasPublished = true
	s.forceRepublish = false
}

// MarkForceRepublish marks uri so that its next publish at the
// already-published version is allowed through.
func (g *DiagnosticsGate) MarkForceRepublish(uri string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stateLocked(uri).forceRepublish = true
}

// ClearForceRepublish clears uri's force-republish flag without touching
// its last-published version.
func (g *DiagnosticsGate) ClearForceRepublish(uri string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.state[uri]; ok {
		s.forceRepublish = false
	}
}

// Clear drops all gating state for uri, e.g. on document close.
func (g *DiagnosticsGate) Clear(uri string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.state, uri)
}

func (g *DiagnosticsGate) stateLocked(uri string) *gateState {
	s, ok := g.state[uri]
	if !ok {
		s = &gateState{}
		g.state[uri] = s
	}
	return s
}
