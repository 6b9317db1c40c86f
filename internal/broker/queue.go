/*
	Package broker implements the reservation scheduler from spec.md §4.4:
	it arbitrates between waiting consumers and ready jobs across a watched
	set of tubes, and drives the timer-based state transitions (delayed ->
	ready, reserved -> ready on TTR expiry, deadline-soon warnings, pause
	expiry).

	Queue is grounded on original_source's Server type (SeanGeb/beanstalk-rs,
	src/types/tube.rs), whose reserve_by_id/reserve_by_queue/release/bury/
	kick/touch/handle_delayed_jobs methods were left as todo!() stubs; this
	package is their complete implementation. The surrounding concurrency
	idiom (one goroutine per background sweep, WaitGroup-coordinated
	shutdown) follows the teacher's broker/broker_dispatcher.go.
*/
package broker

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kayako/beanstalk-broker/internal/journal"
	"github.com/kayako/beanstalk-broker/internal/metrics"
	"github.com/kayako/beanstalk-broker/internal/stats"
	"github.com/kayako/beanstalk-broker/internal/store"
	"github.com/kayako/beanstalk-broker/internal/tube"
)

// RequeuePosition controls where a TTR-timed-out job rejoins its tube's
// ready ordering, one of spec.md §9's open questions.
type RequeuePosition int

const (
	RequeueTail RequeuePosition = iota
	RequeueHead
)

// Config holds the Queue's tunables, all of which spec.md §9 says must stay
// as configuration hooks rather than guessed defaults.
type Config struct {
	// MaxJobSize is the largest accepted put body, in bytes.
	MaxJobSize uint32

	// Requeue controls TTR-expired job placement; defaults to RequeueTail.
	Requeue RequeuePosition

	// MaxTimeouts is the number of TTR timeouts a job may accumulate before
	// it is buried instead of requeued. Zero means no ceiling.
	MaxTimeouts uint64

	// SweepInterval is how often the background timer driver scans for
	// expired delays, TTRs, and pauses (reserve-with-timeout deadlines are
	// timed by internal/session, not by the sweep). It must be <= 1s
	// per spec.md §5's "granularity is <= 1 second"; zero selects a default
	// of 200ms.
	SweepInterval time.Duration
}

// Queue is the reservation scheduler and, together with its Store and
// Tubes, the single logical broker state spec.md §9 calls for ("a single
// logical broker value"). All exported methods serialize through mu, so
// Queue satisfies spec.md §5's single-logical-lock requirement regardless
// of how many goroutines call into it concurrently.
type Queue struct {
	mu sync.Mutex

	cfg     Config
	store   *store.Store
	tubes   map[string]*tube.Tube
	waiters []*Waiter
	holders map[uint64]*Holder

	journal journal.Sink
	metrics *metrics.Registry

	nextHolderID uint64
	now          func() time.Time

	serverID    string
	startedAt   time.Time
	cmdCounts   map[string]uint64
	totalJobs   uint64
	jobTimeouts uint64

	totalConnections   uint64
	currentConnections uint64
	currentProducers   map[uint64]bool
	currentWorkers     map[uint64]bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Queue. journalSink and metricsReg may be nil, in which case
// a no-op journal and a disabled metrics registry are used.
func New(cfg Config, journalSink journal.Sink, metricsReg *metrics.Registry) *Queue {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 200 * time.Millisecond
	}
	if journalSink == nil {
		journalSink = journal.NoopSink{}
	}

	return &Queue{
		cfg:              cfg,
		store:            store.New(),
		tubes:            make(map[string]*tube.Tube),
		holders:          make(map[uint64]*Holder),
		journal:          journalSink,
		metrics:          metricsReg,
		now:              time.Now,
		serverID:         uuid.NewString(),
		startedAt:        time.Now(),
		cmdCounts:        make(map[string]uint64),
		currentProducers: make(map[uint64]bool),
		currentWorkers:   make(map[uint64]bool),
		stopCh:           make(chan struct{}),
	}
}

// MaxJobSize returns the configured maximum put body size.
func (q *Queue) MaxJobSize() uint32 { return q.cfg.MaxJobSize }

// Start launches the background sweep goroutine that drives delay/TTR/
// pause/deadline-soon transitions (spec.md §4.4/§5).
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.sweepLoop()
}

// Stop halts the sweep goroutine and waits for it to exit.
func (q *Queue) Stop() {
	close(q.stopCh)
	q.wg.Wait()
}

// NewHolder registers a new reservation holder (one per connection) and
// returns it. Call Disconnect when the connection closes.
func (q *Queue) NewHolder() *Holder {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextHolderID++
	h := newHolder(q.nextHolderID)
	q.holders[h.id] = h

	q.totalConnections++
	q.currentConnections++
	if q.metrics != nil {
		q.metrics.CountConnection()
	}
	return h
}

// Disconnect releases every job holder still has reserved back to Ready
// (spec.md §4.5: "all reservations held by the session are released to
// Ready with their original priority"), decrements usedTube/watched tube
// reference counts, cancels any pending wait, and forgets holder.
func (q *Queue) Disconnect(h *Holder, usedTube string, watched []string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id := range h.reserved {
		q.releaseLocked(h, id, 0, 0, true)
	}

	q.removeWaiterLocked(h)

	if t, ok := q.tubes[usedTube]; ok {
		t.DecUsing()
		q.gcTubeLocked(t)
	}
	for _, name := range watched {
		if t, ok := q.tubes[name]; ok {
			t.DecWatching()
			q.gcTubeLocked(t)
		}
	}

	delete(q.holders, h.id)
	delete(q.currentProducers, h.id)
	delete(q.currentWorkers, h.id)
	q.currentConnections--
}

// RecordCommand increments the server-wide per-verb command counter used
// by stats (spec.md §6) and exported to Prometheus.
func (q *Queue) RecordCommand(verb string) {
	q.mu.Lock()
	q.cmdCounts[verb]++
	q.mu.Unlock()
	if q.metrics != nil {
		q.metrics.CountCommand(verb)
	}
}

// NoteProducer/NoteWorker mark a holder as having issued at least one put /
// reserve command, for the current-producers/current-workers stats fields.
func (q *Queue) NoteProducer(h *Holder) {
	q.mu.Lock()
	q.currentProducers[h.id] = true
	q.mu.Unlock()
}

func (q *Queue) NoteWorker(h *Holder) {
	q.mu.Lock()
	q.currentWorkers[h.id] = true
	q.mu.Unlock()
}

// --- tube lifecycle ---

// getOrCreateTubeLocked returns the named tube, creating it if this is its
// first reference (spec.md §3: "Tubes are created on demand when first
// referenced by use, watch, or put").
func (q *Queue) getOrCreateTubeLocked(name string) *tube.Tube {
	t, ok := q.tubes[name]
	if !ok {
		t = tube.New(name)
		q.tubes[name] = t
	}
	return t
}

// gcTubeLocked destroys t if it now has zero jobs and zero referencing
// sessions, per spec.md §3/§8 invariant 3.
func (q *Queue) gcTubeLocked(t *tube.Tube) {
	if t.Empty() {
		delete(q.tubes, t.Name)
	}
}

func (q *Queue) IncUse(name string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.getOrCreateTubeLocked(name).IncUsing()
}

func (q *Queue) DecUse(name string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.tubes[name]; ok {
		t.DecUsing()
		q.gcTubeLocked(t)
	}
}

func (q *Queue) IncWatch(name string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.getOrCreateTubeLocked(name).IncWatching()
}

func (q *Queue) DecWatch(name string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.tubes[name]; ok {
		t.DecWatching()
		q.gcTubeLocked(t)
	}
}

func (q *Queue) TubeExists(name string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.tubes[name]
	return ok
}

func (q *Queue) ListTubes() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	names := make([]string, 0, len(q.tubes))
	for name := range q.tubes {
		names = append(names, name)
	}
	return names
}

// --- stats ---

func (q *Queue) StatsTube(name string) (stats.TubeStats, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tubes[name]
	if !ok {
		return stats.TubeStats{}, false
	}
	return t.Stats(q.now()), true
}

func (q *Queue) StatsJob(id uint64) (stats.JobStats, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.store.Get(id)
	if !ok {
		return stats.JobStats{}, false
	}
	return q.jobStatsLocked(j), true
}

func (q *Queue) jobStatsLocked(j *tube.Job) stats.JobStats {
	now := q.now()
	var delay, timeLeft uint64
	switch st := j.State.(type) {
	case tube.DelayedState:
		if st.Until.After(now) {
			delay = uint64(st.Until.Sub(now).Round(time.Second) / time.Second)
			timeLeft = delay
		}
	case tube.ReservedState:
		if st.Deadline.After(now) {
			timeLeft = uint64(st.Deadline.Sub(now).Round(time.Second) / time.Second)
		}
	}
	return stats.JobStats{
		ID:       j.ID,
		Tube:     j.Tube,
		State:    j.State.Name(),
		Pri:      j.Pri,
		Age:      uint64(now.Sub(j.Created).Round(time.Second) / time.Second),
		Delay:    delay,
		TTR:      uint32(j.TTR / time.Second),
		TimeLeft: timeLeft,
		Reserves: j.Reserves,
		Timeouts: j.Timeouts,
		Releases: j.Releases,
		Buries:   j.Buries,
		Kicks:    j.Kicks,
	}
}

func (q *Queue) ServerStats() stats.ServerStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var ready, reserved, delayed, buried, urgent uint64
	for _, t := range q.tubes {
		ready += t.Counters.CurrentJobsReady
		reserved += t.Counters.CurrentJobsReserved
		delayed += t.Counters.CurrentJobsDelayed
		buried += t.Counters.CurrentJobsBuried
		urgent += t.Counters.CurrentJobsUrgent
	}

	hostname, _ := os.Hostname()

	return stats.ServerStats{
		CurrentJobsUrgent:   urgent,
		CurrentJobsReady:    ready,
		CurrentJobsReserved: reserved,
		CurrentJobsDelayed:  delayed,
		CurrentJobsBuried:   buried,

		CmdPut:                q.cmdCounts["put"],
		CmdPeek:               q.cmdCounts["peek"],
		CmdPeekReady:          q.cmdCounts["peek-ready"],
		CmdPeekDelayed:        q.cmdCounts["peek-delayed"],
		CmdPeekBuried:         q.cmdCounts["peek-buried"],
		CmdReserve:            q.cmdCounts["reserve"],
		CmdReserveWithTimeout: q.cmdCounts["reserve-with-timeout"],
		CmdTouch:              q.cmdCounts["touch"],
		CmdUse:                q.cmdCounts["use"],
		CmdWatch:              q.cmdCounts["watch"],
		CmdIgnore:             q.cmdCounts["ignore"],
		CmdDelete:             q.cmdCounts["delete"],
		CmdRelease:            q.cmdCounts["release"],
		CmdBury:               q.cmdCounts["bury"],
		CmdKick:               q.cmdCounts["kick"],
		CmdStats:              q.cmdCounts["stats"],
		CmdStatsJob:           q.cmdCounts["stats-job"],
		CmdStatsTube:          q.cmdCounts["stats-tube"],
		CmdListTubes:          q.cmdCounts["list-tubes"],
		CmdListTubeUsed:       q.cmdCounts["list-tube-used"],
		CmdListTubesWatched:   q.cmdCounts["list-tubes-watched"],
		CmdPauseTube:          q.cmdCounts["pause-tube"],

		JobTimeouts: q.jobTimeouts,
		TotalJobs:   q.totalJobs,
		MaxJobSize:  uint64(q.cfg.MaxJobSize),

		CurrentTubes:       uint64(len(q.tubes)),
		CurrentConnections: q.currentConnections,
		CurrentProducers:   uint64(len(q.currentProducers)),
		CurrentWorkers:     uint64(len(q.currentWorkers)),
		CurrentWaiting:     uint64(len(q.waiters)),
		TotalConnections:   q.totalConnections,
		PID:                os.Getpid(),
		Version:            "1.0.0",
		UptimeSeconds:      uint64(q.now().Sub(q.startedAt).Round(time.Second) / time.Second),
		Draining:           false,
		ID:                 q.serverID,
		Hostname:           hostname,
	}
}

func (q *Queue) appendJournal(op journal.Op, id uint64, tubeName string, pri uint32) {
	_ = q.journal.Append(context.Background(), journal.Record{
		Op: op, JobID: id, Tube: tubeName, Pri: pri, At: q.now(),
	})
}
