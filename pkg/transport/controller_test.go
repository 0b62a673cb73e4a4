package transport

import (
	"sync"

	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/flood"
)

// fakeController registra as chamadas feitas pela superfície de controle.
type fakeController struct {
	mu      sync.Mutex
	paused  bool
	running bool
	batches []flood.Batch
	stops   int
}

func (f *fakeController) Pause(flag bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = flag
}

func (f *fakeController) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeController) StartFlood(batch flood.Batch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.batches = append(f.batches, batch)
}

func (f *fakeController) StopFlood() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.stops++
}

func (f *fakeController) FloodRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeController) ActiveSession() (quickfix.SessionID, bool) {
	return quickfix.SessionID{}, false
}

func (f *fakeController) snapshot() (paused bool, batches []flood.Batch, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused, append([]flood.Batch(nil), f.batches...), f.stops
}
