/*
	Package tube implements a single named queue's ordered ready, delayed,
	and buried sets, pause state, and reference counts, as specified by
	spec.md §3/§4.3. It is translated from original_source's TubeState
	(SeanGeb/beanstalk-rs, src/types/tube.rs), whose BTreeMap-based
	ready/buried maps and BTreeSet-based delayed set become container/heap-
	and container/list-backed equivalents here (see heap.go, buried.go).
*/
package tube

import (
	"time"

	"github.com/kayako/beanstalk-broker/internal/stats"
)

// Tube holds one named queue's job indices, reference counts, and
// cumulative stats (spec.md §3).
type Tube struct {
	Name string

	ready   *readySet
	delayed *delayedSet
	buried  *buriedQueue

	pauseUntil time.Time
	pauseTotal time.Duration
	pausedLast bool

	usingCount, watchingCount, waitingCount int

	Counters stats.TubeCounters
}

// New returns an empty tube named name.
func New(name string) *Tube {
	return &Tube{
		Name:    name,
		ready:   newReadySet(),
		delayed: newDelayedSet(),
		buried:  newBuriedQueue(),
	}
}

// Empty reports whether the tube has no jobs and no referencing sessions,
// the condition under which spec.md §3 says a tube is destroyed.
func (t *Tube) Empty() bool {
	return t.ready.Len() == 0 && t.delayed.Len() == 0 && t.buried.Len() == 0 &&
		t.Counters.CurrentJobsReserved == 0 &&
		t.usingCount == 0 && t.watchingCount == 0 && t.waitingCount == 0
}

// --- reference counting ---

func (t *Tube) IncUsing()    { t.usingCount++ }
func (t *Tube) DecUsing()    { t.usingCount-- }
func (t *Tube) IncWatching() { t.watchingCount++ }
func (t *Tube) DecWatching() { t.watchingCount-- }
func (t *Tube) IncWaiting()  { t.waitingCount++ }
func (t *Tube) DecWaiting()  { t.waitingCount-- }

// --- ready ---

// PutReady inserts a job at (pri, next sequence), per spec.md §4.3.
func (t *Tube) PutReady(id uint64, pri uint32) {
	t.ready.Put(id, pri)
	t.Counters.CurrentJobsReady++
	if pri < 1024 {
		t.Counters.CurrentJobsUrgent++
	}
}

// PutReadyHead inserts a job ahead of every current same-priority ready
// entry, used when a TTR-expired job is configured to requeue at the head
// instead of the tail.
func (t *Tube) PutReadyHead(id uint64, pri uint32) {
	t.ready.PutAtHead(id, pri)
	t.Counters.CurrentJobsReady++
	if pri < 1024 {
		t.Counters.CurrentJobsUrgent++
	}
}

func (t *Tube) PeekReady() (uint64, bool) { return t.ready.Peek() }

// ReadyHeadPri returns the priority of the current ready head, used by the
// scheduler to compare candidate tubes without removing anything.
func (t *Tube) ReadyHeadPri() (uint32, bool) { return t.ready.PeekPri() }

// TakeReadyHead removes and returns the minimum-priority ready job.
func (t *Tube) TakeReadyHead(pri uint32) (uint64, bool) {
	id, ok := t.ready.TakeHead()
	if ok {
		t.decReadyCounters(pri)
	}
	return id, ok
}

// TakeReady removes a specific ready job by id.
func (t *Tube) TakeReady(id uint64, pri uint32) bool {
	ok := t.ready.Take(id)
	if ok {
		t.decReadyCounters(pri)
	}
	return ok
}

func (t *Tube) decReadyCounters(pri uint32) {
	t.Counters.CurrentJobsReady--
	if pri < 1024 {
		t.Counters.CurrentJobsUrgent--
	}
}

// --- delayed ---

func (t *Tube) PutDelayed(id uint64, until time.Time) {
	t.delayed.Put(id, until)
	t.Counters.CurrentJobsDelayed++
}

func (t *Tube) PeekDelayed() (uint64, bool) {
	id, _, ok := t.delayed.Peek()
	return id, ok
}

// DelayedReadyAt reports the id and ready-at time of the head of the
// delayed set, used by the timer driver to schedule the next wakeup.
func (t *Tube) DelayedReadyAt() (uint64, time.Time, bool) {
	return t.delayed.Peek()
}

func (t *Tube) TakeDelayedHead() (uint64, bool) {
	id, ok := t.delayed.TakeHead()
	if ok {
		t.Counters.CurrentJobsDelayed--
	}
	return id, ok
}

func (t *Tube) TakeDelayed(id uint64) bool {
	ok := t.delayed.Take(id)
	if ok {
		t.Counters.CurrentJobsDelayed--
	}
	return ok
}

// --- buried ---

func (t *Tube) PutBuried(id uint64) {
	t.buried.PutTail(id)
	t.Counters.CurrentJobsBuried++
}

func (t *Tube) PeekBuried() (uint64, bool) { return t.buried.Peek() }

func (t *Tube) TakeBuriedHead() (uint64, bool) {
	id, ok := t.buried.TakeHead()
	if ok {
		t.Counters.CurrentJobsBuried--
	}
	return id, ok
}

func (t *Tube) TakeBuried(id uint64) bool {
	ok := t.buried.Take(id)
	if ok {
		t.Counters.CurrentJobsBuried--
	}
	return ok
}

// BuriedIDs returns every buried job id in burial order. Kicks do not use
// it; they take buried jobs one at a time with TakeBuriedHead.
func (t *Tube) BuriedIDs() []uint64 { return t.buried.IDs() }

// --- reserved accounting (the reserved set itself lives on sessions; the
// tube only tracks the count for stats) ---

func (t *Tube) IncReserved() { t.Counters.CurrentJobsReserved++ }
func (t *Tube) DecReserved() { t.Counters.CurrentJobsReserved-- }

// --- pause ---

// Pause sets pause_until = now + d, per spec.md §4.3. It marks the tube as
// having been paused immediately, so a pause shorter than one sweep interval
// still registers as an observed pause->unpause transition for
// ConsumePauseExpiry instead of expiring unnoticed between ticks.
func (t *Tube) Pause(now time.Time, d time.Duration) {
	t.pauseUntil = now.Add(d)
	if t.Paused(now) {
		t.pausedLast = true
	}
}

// Paused reports whether the tube is currently paused.
func (t *Tube) Paused(now time.Time) bool {
	return !t.pauseUntil.IsZero() && now.Before(t.pauseUntil)
}

// PauseTimeLeft reports the remaining pause duration, for stats-tube.
func (t *Tube) PauseTimeLeft(now time.Time) time.Duration {
	if !t.Paused(now) {
		return 0
	}
	return t.pauseUntil.Sub(now)
}

// ConsumePauseExpiry reports whether the tube has transitioned from paused
// to unpaused since the last call, and updates its tracked state. The
// broker's sweep calls this once per tick on every tube so a lapsed pause
// triggers a waiter wakeup scan even when nothing else changed (spec.md
// §4.4's pause-expiry wakeup requirement).
func (t *Tube) ConsumePauseExpiry(now time.Time) bool {
	paused := t.Paused(now)
	expired := t.pausedLast && !paused
	t.pausedLast = paused
	return expired
}

// Stats renders the current stats-tube payload.
func (t *Tube) Stats(now time.Time) stats.TubeStats {
	c := t.Counters
	c.CurrentUsing = uint64(t.usingCount)
	c.CurrentWatching = uint64(t.watchingCount)
	c.CurrentWaiting = uint64(t.waitingCount)
	return stats.TubeStats{
		Name:          t.Name,
		TubeCounters:  c,
		PauseTimeLeft: uint64(t.PauseTimeLeft(now).Round(time.Second) / time.Second),
	}
}
