package liveness

import "sync"

// historyCap bounds the per-contract mid-price window.
const historyCap = 5

// contractHistory is a bounded FIFO of observed mid-prices for one contract.
// Its mutex serializes the read-append-evaluate sequence for that contract;
// different contracts never contend.
type contractHistory struct {
	mu   sync.Mutex
	mids []float64
}

// append adds a mid-price, evicting the oldest past capacity.
// Caller must hold mu.
func (h *contractHistory) append(mid float64) {
	h.mids = append(h.mids, mid)
	if len(h.mids) > historyCap {
		h.mids = h.mids[len(h.mids)-historyCap:]
	}
}

// distinct returns the number of distinct mid values. Caller must hold mu.
func (h *contractHistory) distinct() int {
	seen := make(map[float64]struct{}, len(h.mids))
	for _, m := range h.mids {
		seen[m] = struct{}{}
	}
	return len(seen)
}

// historyStore maps contract IDs to their histories. The map mutex only
// guards lookup/insert; evaluation locks the per-contract mutex.
type historyStore struct {
	mu sync.Mutex
	m  map[string]*contractHistory
}

func newHistoryStore() *historyStore {
	return &historyStore{m: make(map[string]*contractHistory)}
}

func (s *historyStore) get(contractID string) *contractHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.m[contractID]
	if !ok {
		h = &contractHistory{}
		s.m[contractID] = h
	}
	return h
}

// snapshot returns a copy of one contract's mids, for introspection.
func (s *historyStore) snapshot(contractID string) []float64 {
	s.mu.Lock()
	h, ok := s.m[contractID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]float64, len(h.mids))
	copy(out, h.mids)
	return out
}
