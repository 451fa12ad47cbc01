package api

import (
	"sync"

	"github.com/opendispatch/triage-gateway/internal/agent"
)

// CallRegistry holds calls that have been triaged and are waiting for their
// media stream to connect. The webhook flow and the stream connection arrive
// on separate requests, so the initial transcript is handed over here keyed
// by call sid.
type CallRegistry struct {
	mu    sync.Mutex
	calls map[string]agent.Call
}

func NewCallRegistry() *CallRegistry {
	return &CallRegistry{calls: make(map[string]agent.Call)}
}

// Register stores a call for later pickup by its media stream.
func (r *CallRegistry) Register(call agent.Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[call.Sid] = call
}

// Lookup returns the registered call for a sid.
func (r *CallRegistry) Lookup(sid string) (agent.Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.calls[sid]
	return call, ok
}

// Remove drops a call from the registry once its session ends.
func (r *CallRegistry) Remove(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.calls, sid)
}

// Len returns the number of waiting calls.
func (r *CallRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
