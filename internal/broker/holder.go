package broker

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
)

// Holder identifies a reservation-holding session to the Queue. Session
// bookkeeping (used tube, watch set) lives in internal/session; the Queue
// only needs to know which jobs a given holder currently has reserved and
// its stochastic-fairness state, so that TTR expiry and disconnect can
// restore spec.md §3's invariants without reaching back into the session.
type Holder struct {
	id       uint64
	rnd      *rand.Rand
	reserved map[uint64]struct{}

	// deadlineSoon is set once a reserved job's TTR deadline enters the
	// one-second warning window (spec.md §4.4) and cleared once no
	// reserved job of this holder is in that window.
	deadlineSoon bool
}

// ID returns the holder's unique identifier, stable for the lifetime of the
// connection.
func (h *Holder) ID() uint64 { return h.id }

// newHolder builds a holder seeded per-connection from a CSPRNG, per
// spec.md §9's "a fresh seed per connection" stochastic-fairness
// requirement.
func newHolder(id uint64) *Holder {
	var seedBytes [8]byte
	_, _ = crand.Read(seedBytes[:]) // crypto/rand.Read never errors on this platform class
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
	return &Holder{
		id:       id,
		rnd:      rand.New(rand.NewSource(seed)),
		reserved: make(map[uint64]struct{}),
	}
}
