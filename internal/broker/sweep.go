package broker

import (
	"time"

	"github.com/kayako/beanstalk-broker/internal/journal"
	"github.com/kayako/beanstalk-broker/internal/tube"
)

// sweepLoop drives every timer-based transition spec.md §4.4/§5 requires:
// delayed-to-ready promotion, TTR expiry, and deadline-soon flagging. It
// polls on a fixed interval rather than maintaining a precise timer-wheel,
// trading a bounded (<= SweepInterval) scheduling slop for a much simpler
// implementation; spec.md §5 only requires "at least once per second"
// granularity, which a 200ms default tick comfortably satisfies.
func (q *Queue) sweepLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.sweepOnce()
		}
	}
}

// sweepOnce runs a single pass. The loop started by Start calls it on every
// tick; tests in this package call it directly after advancing a fake clock.
func (q *Queue) sweepOnce() {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	woke := q.promoteDelayedLocked(now)
	woke = q.expireReservationsLocked(now) || woke
	woke = q.expirePausesLocked(now) || woke

	if woke {
		q.wakeWaitersLocked()
	}

	q.refreshJobGaugesLocked()
}

// refreshJobGaugesLocked publishes each tube's per-state job counts to the
// beanstalk_jobs gauge. Driven off the sweep tick rather than every mutation
// site so the Prometheus series stays current without every Put/Reserve/
// Delete/etc. taking a dependency on the metrics registry.
func (q *Queue) refreshJobGaugesLocked() {
	if q.metrics == nil {
		return
	}
	for name, t := range q.tubes {
		c := t.Counters
		q.metrics.SetJobGauge(name, "ready", float64(c.CurrentJobsReady))
		q.metrics.SetJobGauge(name, "reserved", float64(c.CurrentJobsReserved))
		q.metrics.SetJobGauge(name, "delayed", float64(c.CurrentJobsDelayed))
		q.metrics.SetJobGauge(name, "buried", float64(c.CurrentJobsBuried))
	}
}

// promoteDelayedLocked moves every tube's due delayed jobs to Ready.
func (q *Queue) promoteDelayedLocked(now time.Time) bool {
	var promoted bool
	for _, t := range q.tubes {
		for {
			_, until, ok := t.DelayedReadyAt()
			if !ok || until.After(now) {
				break
			}
			id, ok := t.TakeDelayedHead()
			if !ok {
				break
			}
			j, ok := q.store.Get(id)
			if !ok {
				continue
			}
			j.State = tube.ReadyState{}
			t.PutReady(id, j.Pri)
			promoted = true
		}
	}
	return promoted
}

// expireReservationsLocked scans every holder's reserved set for jobs past
// their TTR deadline and requeues (or buries, past MaxTimeouts) them, per
// spec.md §4.4's "a TTR that elapses with no touch forcibly reclaims the
// job." It also flags/clears each holder's deadline-soon state for jobs
// about to expire.
func (q *Queue) expireReservationsLocked(now time.Time) bool {
	var woke bool
	for _, h := range q.holders {
		wasSoon := h.deadlineSoon
		soon := false
		for id := range h.reserved {
			j, ok := q.store.Get(id)
			if !ok {
				continue
			}
			st, ok := j.State.(tube.ReservedState)
			if !ok {
				continue
			}

			remaining := st.Deadline.Sub(now)
			if remaining <= 0 {
				q.expireOneLocked(h, j)
				woke = true
				continue
			}
			if remaining <= time.Second {
				soon = true
			}
		}
		h.deadlineSoon = soon
		if soon && !wasSoon {
			// A pending reserve for this holder must be told DEADLINE_SOON
			// instead of staying blocked for a job (spec.md §4.4).
			woke = true
		}
	}
	return woke
}

// expirePausesLocked reports whether any tube's pause window has just
// lapsed since the previous sweep. Spec.md §4.4 requires pause expiry to
// trigger a wakeup scan for waiters on that tube, even if nothing else
// changed in the broker at that instant.
func (q *Queue) expirePausesLocked(now time.Time) bool {
	var expired bool
	for _, t := range q.tubes {
		if t.ConsumePauseExpiry(now) {
			expired = true
		}
	}
	return expired
}

// expireOneLocked performs the TTR-expiry transition for a single
// over-deadline job: bury it past the configured timeout ceiling,
// otherwise requeue it to Ready at the configured position.
func (q *Queue) expireOneLocked(h *Holder, j *tube.Job) {
	t, ok := q.tubes[j.Tube]
	if !ok {
		return
	}

	t.DecReserved()
	delete(h.reserved, j.ID)
	j.Timeouts++
	q.jobTimeouts++

	if q.cfg.MaxTimeouts > 0 && j.Timeouts >= q.cfg.MaxTimeouts {
		j.State = tube.BuriedState{}
		t.PutBuried(j.ID)
	} else if q.cfg.Requeue == RequeueHead {
		j.State = tube.ReadyState{}
		t.PutReadyHead(j.ID, j.Pri)
	} else {
		j.State = tube.ReadyState{}
		t.PutReady(j.ID, j.Pri)
	}

	q.appendJournal(journal.OpTimeout, j.ID, j.Tube, j.Pri)
}

// DeadlineSoon reports whether holder currently has a reserved job whose
// TTR deadline is within the one-second warning window (spec.md §4.4);
// internal/session consults this when a reserve or reserve-with-timeout
// arrives and replies DEADLINE_SOON instead of reserving another job.
func (q *Queue) DeadlineSoon(h *Holder) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return h.deadlineSoon
}
