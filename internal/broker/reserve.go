package broker

import (
	"time"

	"github.com/kayako/beanstalk-broker/internal/journal"
	"github.com/kayako/beanstalk-broker/internal/tube"
)

// Reserve attempts to satisfy h's reserve request against watched
// immediately. If a job is available it is reserved and returned with
// ok=true. Otherwise a Waiter is registered and returned; the caller
// (internal/session) selects on waiter.Wait() until it fires, the
// connection closes (call CancelWait), or the deadline passes (also
// CancelWait, then treat as ReserveTimedOut unless the channel already
// delivered a result — see the race note on CancelWait).
//
// This is spec.md §4.4's reservation scheduler: "stochastic fairness...
// ties across tubes at the same priority are broken by a per-session
// seeded random choice, not tube registration order."
func (q *Queue) Reserve(h *Holder, watched []string, hasDeadline bool, deadline time.Time) (outcome ReserveOutcome, ok bool, waiter *Waiter) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if outcome, ok := q.tryReserveLocked(h, watched); ok {
		return outcome, true, nil
	}

	w := &Waiter{
		holder:      h,
		watch:       append([]string(nil), watched...),
		hasDeadline: hasDeadline,
		deadline:    deadline,
		done:        make(chan ReserveOutcome, 1),
	}
	q.waiters = append(q.waiters, w)
	for _, name := range watched {
		if t, ok := q.tubes[name]; ok {
			t.IncWaiting()
		}
	}
	return ReserveOutcome{}, false, w
}

// Wait returns the channel a session blocks on after Reserve registers a
// Waiter. It fires exactly once.
func (w *Waiter) Wait() <-chan ReserveOutcome { return w.done }

// CancelWait unregisters w, for both the reserve-with-timeout deadline
// path and connection teardown. If w already fired (a sweep or Put beat
// the cancellation), CancelWait is a harmless no-op; the caller must still
// drain w.Wait() in that case to avoid leaking the already-reserved job's
// outcome, which internal/session does by treating a fired channel as
// authoritative over the timeout.
func (q *Queue) CancelWait(w *Waiter) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeWaiterByValueLocked(w)
}

func (q *Queue) removeWaiterByValueLocked(w *Waiter) {
	if w.canceled {
		return
	}
	for i, cand := range q.waiters {
		if cand == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			break
		}
	}
	w.canceled = true
	for _, name := range w.watch {
		if t, ok := q.tubes[name]; ok {
			t.DecWaiting()
			q.gcTubeLocked(t)
		}
	}
}

// removeWaiterLocked drops every waiter owned by h, used by Disconnect.
func (q *Queue) removeWaiterLocked(h *Holder) {
	var remaining []*Waiter
	for _, w := range q.waiters {
		if w.holder == h {
			w.canceled = true
			for _, name := range w.watch {
				if t, ok := q.tubes[name]; ok {
					t.DecWaiting()
					q.gcTubeLocked(t)
				}
			}
			continue
		}
		remaining = append(remaining, w)
	}
	q.waiters = remaining
}

// tryReserveLocked finds the best candidate job across watched and, if
// found, reserves it and returns the outcome. Candidate selection: the
// lowest ready priority among all unpaused watched tubes; ties across
// distinct tubes at that priority are broken by h's own RNG rather than
// always favoring the first-registered tube, per spec.md §4.4.
func (q *Queue) tryReserveLocked(h *Holder, watched []string) (ReserveOutcome, bool) {
	type candidate struct {
		t   *tube.Tube
		pri uint32
	}
	var candidates []candidate
	var bestPri uint32

	now := q.now()
	for _, name := range watched {
		t, ok := q.tubes[name]
		if !ok || t.Paused(now) {
			continue
		}
		pri, ok := t.ReadyHeadPri()
		if !ok {
			continue
		}
		switch {
		case len(candidates) == 0 || pri < bestPri:
			bestPri = pri
			candidates = []candidate{{t, pri}}
		case pri == bestPri:
			candidates = append(candidates, candidate{t, pri})
		}
	}
	if len(candidates) == 0 {
		return ReserveOutcome{}, false
	}

	chosen := candidates[0]
	if len(candidates) > 1 {
		chosen = candidates[h.rnd.Intn(len(candidates))]
	}

	id, ok := chosen.t.TakeReadyHead(chosen.pri)
	if !ok {
		return ReserveOutcome{}, false
	}
	return q.reserveJobLocked(h, chosen.t, id), true
}

// reserveJobLocked transitions id (already removed from its ready
// ordering) into Reserved, per spec.md §4.2.
func (q *Queue) reserveJobLocked(h *Holder, t *tube.Tube, id uint64) ReserveOutcome {
	j, ok := q.store.Get(id)
	if !ok {
		return ReserveOutcome{}
	}

	deadline := q.now().Add(j.TTR)
	j.State = tube.ReservedState{Deadline: deadline, Holder: h.ID()}
	j.Reserves++
	t.IncReserved()
	h.reserved[id] = struct{}{}

	q.appendJournal(journal.OpReserve, id, j.Tube, j.Pri)

	return ReserveOutcome{Kind: ReserveOK, Job: &JobView{ID: j.ID, Data: j.Data}}
}

// ReserveJob reserves a specific Ready job by id regardless of h's watch
// set, per spec.md §4.2's reserve-job variant. It fails if the job is not
// currently Ready.
func (q *Queue) ReserveJob(h *Holder, id uint64) (ReserveOutcome, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.store.Get(id)
	if !ok {
		return ReserveOutcome{}, false
	}
	if _, ok := j.State.(tube.ReadyState); !ok {
		return ReserveOutcome{}, false
	}
	t, ok := q.tubes[j.Tube]
	if !ok {
		return ReserveOutcome{}, false
	}
	if !t.TakeReady(id, j.Pri) {
		return ReserveOutcome{}, false
	}
	return q.reserveJobLocked(h, t, id), true
}

// wakeWaitersLocked re-evaluates every registered waiter against the newly
// changed state (a Put, Release, Kick, or pause expiry made a job reservable,
// or a holder just entered the deadline-soon window). Waiters are tried in
// registration order (FIFO), matching spec.md §9's "waiters are woken FIFO
// among those whose watch set could be satisfied"; stochastic fairness
// applies only to the per-waiter tube-tie choice, not to waiter ordering
// itself.
//
// A waiter whose holder currently has a deadline-soon reservation is never
// granted a new job: per spec.md §4.4/§6/§7, such a session gets
// DEADLINE_SOON on any pending or subsequent reserve instead, until the
// condition clears, so the job it would have taken is left for someone else.
func (q *Queue) wakeWaitersLocked() {
	var remaining []*Waiter
	for _, w := range q.waiters {
		if w.canceled {
			continue
		}
		if w.holder.deadlineSoon {
			w.canceled = true
			for _, name := range w.watch {
				if t, ok := q.tubes[name]; ok {
					t.DecWaiting()
					q.gcTubeLocked(t)
				}
			}
			w.done <- ReserveOutcome{Kind: ReserveDeadlineSoon}
			continue
		}
		if outcome, ok := q.tryReserveLocked(w.holder, w.watch); ok {
			for _, name := range w.watch {
				if t, ok := q.tubes[name]; ok {
					t.DecWaiting()
				}
			}
			w.canceled = true
			w.done <- outcome
			continue
		}
		remaining = append(remaining, w)
	}
	q.waiters = remaining
}
