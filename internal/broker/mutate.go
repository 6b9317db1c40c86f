package broker

import (
	"time"

	"github.com/kayako/beanstalk-broker/internal/journal"
	"github.com/kayako/beanstalk-broker/internal/tube"
)

// Put inserts a new job into tubeName, per spec.md §4.2. If delay > 0 the
// job starts Delayed; otherwise it starts Ready and Put attempts to wake a
// waiter immediately.
func (q *Queue) Put(tubeName string, pri uint32, delay, ttr time.Duration, data []byte) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	j := q.store.Create(tubeName, pri, ttr, data, now)
	t := q.getOrCreateTubeLocked(tubeName)

	if delay > 0 {
		until := now.Add(delay)
		j.State = tube.DelayedState{Until: until}
		t.PutDelayed(j.ID, until)
	} else {
		j.State = tube.ReadyState{}
		t.PutReady(j.ID, pri)
		q.wakeWaitersLocked()
	}

	q.totalJobs++
	t.Counters.TotalJobs++
	q.appendJournal(journal.OpPut, j.ID, tubeName, pri)
	return j.ID
}

// Delete removes a job regardless of state, per spec.md §4.2. holder must
// be the reserving session if the job is Reserved.
func (q *Queue) Delete(h *Holder, id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.deleteLocked(h, id)
}

func (q *Queue) deleteLocked(h *Holder, id uint64) bool {
	j, ok := q.store.Get(id)
	if !ok {
		return false
	}
	t, ok := q.tubes[j.Tube]
	if !ok {
		return false
	}

	switch st := j.State.(type) {
	case tube.ReadyState:
		if !t.TakeReady(id, j.Pri) {
			return false
		}
	case tube.DelayedState:
		if !t.TakeDelayed(id) {
			return false
		}
	case tube.BuriedState:
		if !t.TakeBuried(id) {
			return false
		}
	case tube.ReservedState:
		if h == nil || st.Holder != h.ID() {
			return false
		}
		t.DecReserved()
		delete(h.reserved, id)
	default:
		return false
	}

	t.Counters.CmdDelete++
	q.store.Remove(id)
	q.gcTubeLocked(t)
	q.appendJournal(journal.OpDelete, id, j.Tube, j.Pri)
	return true
}

// Release puts a Reserved job back to Ready (or Delayed if delay > 0) under
// a (possibly new) priority, per spec.md §4.2. Only the reserving holder
// may release.
func (q *Queue) Release(h *Holder, id uint64, pri uint32, delay time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.releaseLocked(h, id, pri, delay, false)
}

// releaseLocked is shared by the RELEASE command and Disconnect's implicit
// release-on-close (forceOriginalPri keeps the job's existing priority,
// matching spec.md §4.5's disconnect cleanup).
func (q *Queue) releaseLocked(h *Holder, id uint64, pri uint32, delay time.Duration, forceOriginalPri bool) bool {
	j, ok := q.store.Get(id)
	if !ok {
		return false
	}
	st, ok := j.State.(tube.ReservedState)
	if !ok || h == nil || st.Holder != h.ID() {
		return false
	}
	t, ok := q.tubes[j.Tube]
	if !ok {
		return false
	}

	t.DecReserved()
	delete(h.reserved, id)
	if !forceOriginalPri {
		j.Pri = pri
	}
	j.Releases++

	now := q.now()
	if delay > 0 {
		until := now.Add(delay)
		j.State = tube.DelayedState{Until: until}
		t.PutDelayed(id, until)
	} else {
		j.State = tube.ReadyState{}
		t.PutReady(id, j.Pri)
		q.wakeWaitersLocked()
	}

	q.appendJournal(journal.OpRelease, id, j.Tube, j.Pri)
	return true
}

// Bury moves a Reserved job to Buried under a (possibly new) priority, per
// spec.md §4.2. Only the reserving holder may bury.
func (q *Queue) Bury(h *Holder, id uint64, pri uint32) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.store.Get(id)
	if !ok {
		return false
	}
	st, ok := j.State.(tube.ReservedState)
	if !ok || h == nil || st.Holder != h.ID() {
		return false
	}
	t, ok := q.tubes[j.Tube]
	if !ok {
		return false
	}

	t.DecReserved()
	delete(h.reserved, id)
	j.Pri = pri
	j.Buries++
	j.State = tube.BuriedState{}
	t.PutBuried(id)

	q.appendJournal(journal.OpBury, id, j.Tube, j.Pri)
	return true
}

// Touch resets a Reserved job's TTR deadline to now plus its TTR, per
// spec.md §4.2. Only the reserving holder may touch.
func (q *Queue) Touch(h *Holder, id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.store.Get(id)
	if !ok {
		return false
	}
	st, ok := j.State.(tube.ReservedState)
	if !ok || h == nil || st.Holder != h.ID() {
		return false
	}

	deadline := q.now().Add(j.TTR)
	j.State = tube.ReservedState{Deadline: deadline, Holder: h.ID()}
	h.deadlineSoon = false

	q.appendJournal(journal.OpTouch, id, j.Tube, j.Pri)
	return true
}

// PeekReady, PeekDelayed, PeekBuried return the head job of the named
// ordering without removing it (spec.md §4.2's peek family).
func (q *Queue) PeekReady(tubeName string) (*tube.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tubes[tubeName]
	if !ok {
		return nil, false
	}
	id, ok := t.PeekReady()
	if !ok {
		return nil, false
	}
	j, _ := q.store.Get(id)
	return j, j != nil
}

func (q *Queue) PeekDelayed(tubeName string) (*tube.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tubes[tubeName]
	if !ok {
		return nil, false
	}
	id, ok := t.PeekDelayed()
	if !ok {
		return nil, false
	}
	j, _ := q.store.Get(id)
	return j, j != nil
}

func (q *Queue) PeekBuried(tubeName string) (*tube.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tubes[tubeName]
	if !ok {
		return nil, false
	}
	id, ok := t.PeekBuried()
	if !ok {
		return nil, false
	}
	j, _ := q.store.Get(id)
	return j, j != nil
}

// PeekJob returns any live job by id, regardless of state.
func (q *Queue) PeekJob(id uint64) (*tube.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Get(id)
}

// KickTube moves up to bound jobs from Buried to Ready, or if none are
// buried, from Delayed to Ready (spec.md §4.3's kick semantics), and
// returns the count actually kicked.
func (q *Queue) KickTube(tubeName string, bound uint64) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tubes[tubeName]
	if !ok {
		return 0
	}

	var kicked uint64
	for kicked < bound {
		id, ok := t.TakeBuriedHead()
		if !ok {
			break
		}
		q.kickOneLocked(t, id)
		kicked++
	}
	if kicked > 0 {
		q.wakeWaitersLocked()
		return kicked
	}

	for kicked < bound {
		id, ok := t.PeekDelayed()
		if !ok {
			break
		}
		t.TakeDelayed(id)
		q.kickOneLocked(t, id)
		kicked++
	}
	if kicked > 0 {
		q.wakeWaitersLocked()
	}
	return kicked
}

// KickJob moves a single Buried or Delayed job directly to Ready, per
// spec.md §4.2's single-job kick-job variant.
func (q *Queue) KickJob(id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.store.Get(id)
	if !ok {
		return false
	}
	t, ok := q.tubes[j.Tube]
	if !ok {
		return false
	}

	switch j.State.(type) {
	case tube.BuriedState:
		if !t.TakeBuried(id) {
			return false
		}
	case tube.DelayedState:
		if !t.TakeDelayed(id) {
			return false
		}
	default:
		return false
	}

	q.kickOneLocked(t, id)
	q.wakeWaitersLocked()
	return true
}

// kickOneLocked transitions id (already removed from its prior ordering)
// into Ready and bumps its kick counter.
func (q *Queue) kickOneLocked(t *tube.Tube, id uint64) {
	j, ok := q.store.Get(id)
	if !ok {
		return
	}
	j.Kicks++
	j.State = tube.ReadyState{}
	t.PutReady(id, j.Pri)
	q.appendJournal(journal.OpKick, id, j.Tube, j.Pri)
}

// PauseTube sets tubeName's pause window, per spec.md §4.3.
func (q *Queue) PauseTube(tubeName string, d time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tubes[tubeName]
	if !ok {
		return false
	}
	t.Pause(q.now(), d)
	t.Counters.CmdPauseTube++
	return true
}
