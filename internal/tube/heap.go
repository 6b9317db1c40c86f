package tube

import (
	"container/heap"
	"time"
)

// readyItem is one entry in a tube's ready ordering: (priority ascending,
// insertion-sequence ascending), per spec.md §3/§4.3.
type readyItem struct {
	id    uint64
	pri   uint32
	seq   int64
	index int
}

type readyHeap []*readyItem

func (h readyHeap) Len() int { return len(h) }
func (h readyHeap) Less(i, j int) bool {
	if h[i].pri != h[j].pri {
		return h[i].pri < h[j].pri
	}
	return h[i].seq < h[j].seq
}
func (h readyHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *readyHeap) Push(x interface{}) {
	it := x.(*readyItem)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *readyHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// readySet wraps readyHeap with an id->item index for O(log n) arbitrary
// removal (needed by reserve-by-id and by delete of a ready job).
type readySet struct {
	h      readyHeap
	byID   map[uint64]*readyItem
	seqCt  int64
	headCt int64
}

func newReadySet() *readySet {
	return &readySet{byID: make(map[uint64]*readyItem), headCt: -1}
}

func (s *readySet) Len() int { return s.h.Len() }

// Put inserts id at (pri, next sequence number), per spec.md §4.3's
// put_ready.
func (s *readySet) Put(id uint64, pri uint32) int64 {
	seq := s.seqCt
	s.seqCt++
	it := &readyItem{id: id, pri: pri, seq: seq}
	heap.Push(&s.h, it)
	s.byID[id] = it
	return seq
}

// PutAtTail is Put under another name: the entry goes after every current
// entry of the same priority, and priority still orders it against the
// rest. Tube.PutReady, which TTR-expired and released jobs go through,
// calls Put directly.
func (s *readySet) PutAtTail(id uint64, pri uint32) int64 {
	return s.Put(id, pri)
}

// PutAtHead forces insertion ordered before every current same-priority
// entry, using a strictly-decreasing negative sequence counter; used for
// the RequeueHead configuration alternative (spec.md §9's open question on
// TTR-expiry requeue position).
func (s *readySet) PutAtHead(id uint64, pri uint32) int64 {
	seq := s.headCt
	s.headCt--
	it := &readyItem{id: id, pri: pri, seq: seq}
	heap.Push(&s.h, it)
	s.byID[id] = it
	return seq
}

// Peek returns the head id without removing it.
func (s *readySet) Peek() (uint64, bool) {
	if len(s.h) == 0 {
		return 0, false
	}
	return s.h[0].id, true
}

// PeekPri returns the head priority without removing it.
func (s *readySet) PeekPri() (uint32, bool) {
	if len(s.h) == 0 {
		return 0, false
	}
	return s.h[0].pri, true
}

// TakeHead removes and returns the minimum-priority job (spec.md §4.3's
// take_ready_head).
func (s *readySet) TakeHead() (uint64, bool) {
	if len(s.h) == 0 {
		return 0, false
	}
	it := heap.Pop(&s.h).(*readyItem)
	delete(s.byID, it.id)
	return it.id, true
}

// Take removes a specific id, if present (spec.md §4.3's take_ready_by_id).
func (s *readySet) Take(id uint64) bool {
	it, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.h, it.index)
	delete(s.byID, id)
	return true
}

// delayedItem is one entry in a tube's delayed ordering: (ready-at instant
// ascending, job id ascending), per spec.md §3.
type delayedItem struct {
	id    uint64
	until time.Time
	index int
}

type delayedHeap []*delayedItem

func (h delayedHeap) Len() int { return len(h) }
func (h delayedHeap) Less(i, j int) bool {
	if !h[i].until.Equal(h[j].until) {
		return h[i].until.Before(h[j].until)
	}
	return h[i].id < h[j].id
}
func (h delayedHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *delayedHeap) Push(x interface{}) {
	it := x.(*delayedItem)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *delayedHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

type delayedSet struct {
	h    delayedHeap
	byID map[uint64]*delayedItem
}

func newDelayedSet() *delayedSet {
	return &delayedSet{byID: make(map[uint64]*delayedItem)}
}

func (s *delayedSet) Len() int { return s.h.Len() }

func (s *delayedSet) Put(id uint64, until time.Time) {
	it := &delayedItem{id: id, until: until}
	heap.Push(&s.h, it)
	s.byID[id] = it
}

func (s *delayedSet) Peek() (uint64, time.Time, bool) {
	if len(s.h) == 0 {
		return 0, time.Time{}, false
	}
	return s.h[0].id, s.h[0].until, true
}

func (s *delayedSet) TakeHead() (uint64, bool) {
	if len(s.h) == 0 {
		return 0, false
	}
	it := heap.Pop(&s.h).(*delayedItem)
	delete(s.byID, it.id)
	return it.id, true
}

func (s *delayedSet) Take(id uint64) bool {
	it, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.h, it.index)
	delete(s.byID, id)
	return true
}
