package tube

import "time"

// JobState is the closed set of states a live job may occupy (spec.md §3).
// Go has no tagged unions, so each state is its own type implementing this
// marker interface; original_source's Rust enum (src/types/states.rs) is
// the direct source of this design.
type JobState interface {
	// Name is the lowercase state name used by stats-job (spec.md §6).
	Name() string
	isJobState()
}

// ReadyState means the job is in its tube's ready ordering. Pos is left
// zero by internal/broker; the ordering locates the job by id.
type ReadyState struct{ Pos uint64 }

// DelayedState means the job becomes ready at Until.
type DelayedState struct{ Until time.Time }

// ReservedState means the job is held by session Holder until Deadline.
type ReservedState struct {
	Deadline time.Time
	Holder   uint64
}

// BuriedState means the job is in its tube's burial ordering. Pos is left
// zero by internal/broker; the ordering locates the job by id.
type BuriedState struct{ Pos uint64 }

func (ReadyState) Name() string    { return "ready" }
func (DelayedState) Name() string  { return "delayed" }
func (ReservedState) Name() string { return "reserved" }
func (BuriedState) Name() string   { return "buried" }

func (ReadyState) isJobState()    {}
func (DelayedState) isJobState()  {}
func (ReservedState) isJobState() {}
func (BuriedState) isJobState()   {}
