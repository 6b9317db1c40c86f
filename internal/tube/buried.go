package tube

import "container/list"

// buriedQueue is a FIFO ordered by burial sequence (spec.md §3's "buried:
// set ordered by burial-sequence"), with O(1) arbitrary removal by id since
// kick-job and delete must be able to pull a job out of the middle.
// container/list gives us both without hand-rolling a doubly linked list.
type buriedQueue struct {
	l       *list.List
	byID    map[uint64]*list.Element
	nextSeq uint64
}

func newBuriedQueue() *buriedQueue {
	return &buriedQueue{l: list.New(), byID: make(map[uint64]*list.Element)}
}

func (q *buriedQueue) Len() int { return q.l.Len() }

// PutTail appends id and returns its burial-sequence position.
func (q *buriedQueue) PutTail(id uint64) uint64 {
	pos := q.nextSeq
	q.nextSeq++
	el := q.l.PushBack(id)
	q.byID[id] = el
	return pos
}

func (q *buriedQueue) Peek() (uint64, bool) {
	front := q.l.Front()
	if front == nil {
		return 0, false
	}
	return front.Value.(uint64), true
}

func (q *buriedQueue) TakeHead() (uint64, bool) {
	front := q.l.Front()
	if front == nil {
		return 0, false
	}
	q.l.Remove(front)
	id := front.Value.(uint64)
	delete(q.byID, id)
	return id, true
}

func (q *buriedQueue) Take(id uint64) bool {
	el, ok := q.byID[id]
	if !ok {
		return false
	}
	q.l.Remove(el)
	delete(q.byID, id)
	return true
}

// IDs returns every buried job id, front to back.
func (q *buriedQueue) IDs() []uint64 {
	ids := make([]uint64, 0, q.l.Len())
	for e := q.l.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(uint64))
	}
	return ids
}
