package tube

import "time"

// Job is a unit of work, as described by spec.md §3. A Job is mutated only
// while the owning broker.Queue holds its single logical lock.
type Job struct {
	ID      uint64
	Tube    string // immutable once put
	Pri     uint32
	Data    []byte
	TTR     time.Duration
	State   JobState
	Created time.Time

	Reserves uint64
	Timeouts uint64
	Releases uint64
	Buries   uint64
	Kicks    uint64
}

// Urgent reports whether the job's priority qualifies as urgent (< 1024,
// spec.md §3).
func (j *Job) Urgent() bool { return j.Pri < 1024 }
