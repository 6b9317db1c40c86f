package broker

import "time"

// ReserveOutcomeKind classifies how a reserve request was settled.
type ReserveOutcomeKind int

const (
	ReserveOK ReserveOutcomeKind = iota
	ReserveDeadlineSoon
	ReserveTimedOut
)

// ReserveOutcome is delivered on a Waiter's channel, or returned directly
// for an immediately-satisfiable reserve.
type ReserveOutcome struct {
	Kind ReserveOutcomeKind
	Job  *JobView
}

// JobView is the subset of job state the session needs to write a RESERVED
// response, decoupled from internal/tube.Job so callers can't mutate it
// through the pointer after it's handed back.
type JobView struct {
	ID   uint64
	Data []byte
}

// Waiter represents a session blocked in reserve/reserve-with-timeout,
// registered against the Queue per spec.md §9 ("registered waiters with a
// wakeup primitive and an explicit timer entry").
type Waiter struct {
	holder      *Holder
	watch       []string
	hasDeadline bool
	deadline    time.Time
	done        chan ReserveOutcome

	// canceled is set by CancelWait so a concurrent sweep doesn't deliver a
	// result to a waiter whose session has already moved on (timeout raced
	// with fulfillment, or the connection closed).
	canceled bool
}
