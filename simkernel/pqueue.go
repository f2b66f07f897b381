package simkernel

import "container/heap"

// shortPQueue is an insertion-sort priority queue, adequate for the
// instant queue's typically-small (O(NT)) residency: appending in sorted
// position is cheaper than paying heap bookkeeping for a handful of
// elements.
type shortPQueue struct {
	items []Transition
}

func (q *shortPQueue) add(t Transition) {
	i := 0
	for i < len(q.items) && q.items[i].Less(t) {
		i++
	}
	q.items = append(q.items, Transition{})
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = t
}

func (q *shortPQueue) empty() bool { return len(q.items) == 0 }

func (q *shortPQueue) poll() Transition {
	t := q.items[0]
	q.items = q.items[1:]
	return t
}

func (q *shortPQueue) peek() Transition { return q.items[0] }

func (q *shortPQueue) clear() { q.items = q.items[:0] }

// timedHeap backs the timed event queue with container/heap, since its
// residency can grow to O(NT) events deep across the whole shift.
type timedHeap []Transition

func (h timedHeap) Len() int            { return len(h) }
func (h timedHeap) Less(i, j int) bool  { return h[i].Less(h[j]) }
func (h timedHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timedHeap) Push(x interface{}) { *h = append(*h, x.(Transition)) }
func (h *timedHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type timedQueue struct {
	h timedHeap
}

func newTimedQueue() *timedQueue {
	q := &timedQueue{}
	heap.Init(&q.h)
	return q
}

func (q *timedQueue) add(t Transition) { heap.Push(&q.h, t) }
func (q *timedQueue) empty() bool      { return q.h.Len() == 0 }
func (q *timedQueue) poll() Transition { return heap.Pop(&q.h).(Transition) }
func (q *timedQueue) peek() Transition { return q.h[0] }
func (q *timedQueue) clear()           { q.h = q.h[:0] }
func (q *timedQueue) removeTruck(tid int) {
	kept := q.h[:0]
	for _, t := range q.h {
		if t.Truck != tid {
			kept = append(kept, t)
		}
	}
	q.h = kept
	heap.Init(&q.h)
}
