// Package pqueue provides a binary min-heap with O(log n) removal of
// arbitrary elements.
package pqueue

// Handle identifies an element pushed onto a Queue. It is only meaningful
// for the queue that issued it.
type Handle int

// entry is the arena slot backing one pushed value. pos is the entry's
// current index in the heap, or -1 once popped or removed.
type entry[T any] struct {
	value T
	pos   int
}

// Queue is a min-heap ordered by a caller-supplied comparator.
// Values are kept in an arena of entries and the heap stores arena indices,
// so every swap updates the moved entries' positions and Remove stays
// O(log n). A Queue is not safe for concurrent use.
type Queue[T any] struct {
	arena []entry[T]
	heap  []int
	less  func(a, b T) bool
}

// New returns an empty queue ordered by less. less must be a consistent
// strict ordering for the queue's lifetime.
func New[T any](less func(a, b T) bool) *Queue[T] {
	return &Queue[T]{less: less}
}

// NewWithCapacity is New with preallocated storage for n elements.
func NewWithCapacity[T any](less func(a, b T) bool, n int) *Queue[T] {
	return &Queue[T]{
		arena: make([]entry[T], 0, n),
		heap:  make([]int, 0, n),
		less:  less,
	}
}

func (q *Queue[T]) Len() int { return len(q.heap) }

// Push inserts v and returns a handle for Remove.
func (q *Queue[T]) Push(v T) Handle {
	id := len(q.arena)
	q.arena = append(q.arena, entry[T]{value: v, pos: len(q.heap)})
	q.heap = append(q.heap, id)
	q.siftUp(len(q.heap) - 1)
	return Handle(id)
}

// Pop removes and returns the minimum element. ok is false when the queue
// is empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	if len(q.heap) == 0 {
		return v, false
	}
	id := q.heap[0]
	q.removeAt(0)
	return q.arena[id].value, true
}

// Peek returns the minimum element without removing it.
func (q *Queue[T]) Peek() (v T, ok bool) {
	if len(q.heap) == 0 {
		return v, false
	}
	return q.arena[q.heap[0]].value, true
}

// Remove deletes the element behind h and returns the heap position it
// occupied. It returns (-1, false) if h was already popped or removed, or
// was never issued by q.
func (q *Queue[T]) Remove(h Handle) (int, bool) {
	id := int(h)
	if id < 0 || id >= len(q.arena) || q.arena[id].pos < 0 {
		return -1, false
	}
	pos := q.arena[id].pos
	q.removeAt(pos)
	return pos, true
}

// Contains reports whether h is still live in q.
func (q *Queue[T]) Contains(h Handle) bool {
	id := int(h)
	return id >= 0 && id < len(q.arena) && q.arena[id].pos >= 0
}

// Value returns the value pushed under h, live or not.
func (q *Queue[T]) Value(h Handle) T {
	return q.arena[h].value
}

// Reset empties the queue, keeping allocated storage. Handles issued before
// Reset must not be used afterwards.
func (q *Queue[T]) Reset() {
	clear(q.arena)
	q.arena = q.arena[:0]
	q.heap = q.heap[:0]
}

// removeAt swaps heap slot i with the last slot, drops it, and restores
// heap order around i.
func (q *Queue[T]) removeAt(i int) {
	last := len(q.heap) - 1
	id := q.heap[i]
	if i != last {
		q.swap(i, last)
	}
	q.heap = q.heap[:last]
	q.arena[id].pos = -1

	if i < last {
		// The element moved into i may belong above or below it.
		if !q.siftDown(i) {
			q.siftUp(i)
		}
	}
}

func (q *Queue[T]) lessAt(i, j int) bool {
	return q.less(q.arena[q.heap[i]].value, q.arena[q.heap[j]].value)
}

func (q *Queue[T]) swap(i, j int) {
	q.heap[i], q.heap[j] = q.heap[j], q.heap[i]
	q.arena[q.heap[i]].pos = i
	q.arena[q.heap[j]].pos = j
}

func (q *Queue[T]) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.lessAt(i, parent) {
			break
		}
		q.swap(i, parent)
		i = parent
	}
}

// siftDown reports whether the element at i moved.
func (q *Queue[T]) siftDown(i int) bool {
	start := i
	n := len(q.heap)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && q.lessAt(left, smallest) {
			smallest = left
		}
		if right < n && q.lessAt(right, smallest) {
			smallest = right
		}
		if smallest == i {
			break
		}
		q.swap(i, smallest)
		i = smallest
	}
	return i > start
}
