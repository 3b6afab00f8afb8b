package audit

import (
	"sync"
	"sync/atomic"
)

// Sequence issues monotonic request tokens so that a stale audit fetch can
// never overwrite the result of a newer one. Callers take a token before
// issuing a fetch and check it again before applying the response; a plain
// comparison, no cancellation machinery.
type Sequence struct {
	n atomic.Uint64
}

// Next advances the sequence and returns the new token, superseding all
// previously issued tokens.
func (s *Sequence) Next() uint64 {
	return s.n.Add(1)
}

// Current reports whether the token is still the newest one issued.
func (s *Sequence) Current(token uint64) bool {
	return s.n.Load() == token
}

// sequenceRegistry hands out one Sequence per viewer session. Supersession
// only makes sense within a single session's view; requests from unrelated
// sessions must never cancel each other.
type sequenceRegistry struct {
	mu   sync.Mutex
	seqs map[string]*Sequence
}

func newSequenceRegistry() *sequenceRegistry {
	return &sequenceRegistry{seqs: make(map[string]*Sequence)}
}

// forSession returns the sequence for a session id. An empty id gets a
// fresh, unshared sequence, which makes the guard inert for that request.
func (r *sequenceRegistry) forSession(id string) *Sequence {
	if id == "" {
		return &Sequence{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	seq, ok := r.seqs[id]
	if !ok {
		seq = &Sequence{}
		r.seqs[id] = seq
	}
	return seq
}
