/*
	Package store implements the global job index keyed by id (spec.md
	§4.2), translated from original_source's Server.jobs: BTreeMap<JobId,
	(QueueName, Job)> (SeanGeb/beanstalk-rs, src/types/tube.rs). It holds no
	ordering of its own — ordering lives in internal/tube — and is the only
	place job ids are allocated.

	Store is not safe for concurrent use on its own; internal/broker.Queue
	serializes access per spec.md §5's "single logical lock".
*/
package store

import (
	"time"

	"github.com/kayako/beanstalk-broker/internal/tube"
)

// Store maps job id to the job and the name of the tube that owns it.
type Store struct {
	nextID uint64
	jobs   map[uint64]*tube.Job
}

// New returns an empty Store. IDs are allocated starting from 1; 0 is never
// issued, matching original_source's use of NonZeroU64 for job ids.
func New() *Store {
	return &Store{nextID: 1, jobs: make(map[uint64]*tube.Job)}
}

// Create allocates a new id and inserts a job for it. The caller is
// responsible for inserting the job into the appropriate tube ordering
// (ready or delayed) before releasing the broker lock, per spec.md §3's
// invariant that a live job is always indexed in exactly one ordering.
func (s *Store) Create(tubeName string, pri uint32, ttr time.Duration, data []byte, created time.Time) *tube.Job {
	id := s.nextID
	s.nextID++

	j := &tube.Job{
		ID:      id,
		Tube:    tubeName,
		Pri:     pri,
		Data:    data,
		TTR:     ttr,
		Created: created,
	}
	s.jobs[id] = j
	return j
}

// Get returns the job with the given id, if live.
func (s *Store) Get(id uint64) (*tube.Job, bool) {
	j, ok := s.jobs[id]
	return j, ok
}

// Remove deletes the job with the given id from the index and returns it.
func (s *Store) Remove(id uint64) (*tube.Job, bool) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	delete(s.jobs, id)
	return j, true
}

// Len returns the number of live jobs, for stats.
func (s *Store) Len() int { return len(s.jobs) }
