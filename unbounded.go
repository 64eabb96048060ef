// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/spin"
)

// Unbounded is an unbounded multi-producer multi-consumer FIFO queue.
//
// It chains fixed-capacity lock-free ring-buffer segments (the same
// CAS-on-sequence-number protocol as [MPMCSeq]) together; when the
// current tail segment fills, a producer links a fresh segment under
// a coarse cross-segment lock instead of blocking. Exhausted segments
// are retired to a per-queue pool and reused, so sustained steady-state
// traffic does no further allocation once the pool has warmed up.
//
// Unlike [MPMC], Enqueue never fails: there is no fixed capacity to
// exhaust. Only Dequeue reports [ErrWouldBlock], and only when the
// queue is genuinely empty.
//
// Count and IsEmpty take a best-effort consistent snapshot of the
// whole chain while producers and consumers continue to progress; see
// their doc comments for exactly what "consistent" means here.
type Unbounded[T any] struct {
	_           cachePad
	headSegment atomic.Pointer[segment[T]]
	_           cachePad
	tailSegment atomic.Pointer[segment[T]]
	_           cachePad

	mu   sync.Mutex
	pool segmentPool[T]
}

// NewUnbounded creates an empty unbounded queue with one initial
// segment and an empty pool.
func NewUnbounded[T any]() *Unbounded[T] {
	q := &Unbounded[T]{}
	s := newSegment[T]()
	q.headSegment.Store(s)
	q.tailSegment.Store(s)
	return q
}

// Enqueue appends elem to the queue. It never fails and never blocks
// the caller for longer than another thread's in-flight CAS or, on
// the rare segment-append slow path, the cross-segment lock.
func (q *Unbounded[T]) Enqueue(elem *T) {
	for {
		tail := q.tailSegment.Load()
		if tail.tryEnqueue(elem) {
			return
		}

		tail = q.tailSegment.Load()
		if tail.tryEnqueue(elem) {
			return
		}

		q.mu.Lock()
		if q.tailSegment.Load() == tail {
			tail.ensureFrozen()
			next := q.pool.acquire()
			tail.next.Store(next)
			q.tailSegment.Store(next)
		}
		q.mu.Unlock()
	}
}

// Dequeue removes and returns the next item in FIFO order for the
// producer that enqueued it (cross-producer order is unspecified).
// Returns [ErrWouldBlock] if the queue is observably empty.
func (q *Unbounded[T]) Dequeue() (T, error) {
	for {
		head := q.headSegment.Load()
		if v, ok := head.tryDequeue(); ok {
			return v, nil
		}
		if head.next.Load() == nil {
			var zero T
			return zero, ErrWouldBlock
		}

		// The head segment is drained and a successor exists. A
		// producer may still publish into head before it is retired,
		// so retry twice more (re-reading head_segment, in case
		// another consumer already advanced it) before committing to
		// a structural advance under the lock.
		head = q.headSegment.Load()
		if v, ok := head.tryDequeue(); ok {
			return v, nil
		}
		if head.next.Load() == nil {
			var zero T
			return zero, ErrWouldBlock
		}
		head = q.headSegment.Load()
		if v, ok := head.tryDequeue(); ok {
			return v, nil
		}

		q.mu.Lock()
		if q.headSegment.Load() == head {
			if next := head.next.Load(); next != nil {
				q.headSegment.Store(next)
				q.pool.release(head)
			}
		}
		q.mu.Unlock()
	}
}

// IsEmpty reports whether the queue had no elements at some point
// during the call. It is a consistency snapshot, not a guarantee
// about the state before or after the call returns.
func (q *Unbounded[T]) IsEmpty() bool {
	cur := q.headSegment.Load()
	for {
		if cur.tryPeek() {
			return false
		}
		next := cur.next.Load()
		if next == nil {
			if cur.next.Load() == nil {
				return true
			}
			continue
		}
		cur = next
	}
}

// Count returns the number of elements present in the queue at some
// point during the call (a consistent snapshot, not a live counter).
// Concurrent enqueues and dequeues may make the true count different
// by the time Count returns; only at quiescence does Count equal
// enqueued-minus-dequeued exactly.
func (q *Unbounded[T]) Count() int {
	sw := spin.Wait{}
	for {
		h := q.headSegment.Load()
		t := q.tailSegment.Load()

		switch {
		case h == t:
			hh1, ht1 := h.rawCounters()
			if q.headSegment.Load() == h && q.tailSegment.Load() == t {
				hh2, ht2 := h.rawCounters()
				if hh1 == hh2 && ht1 == ht2 {
					return slotCount(hh1, ht1)
				}
			}

		case h.next.Load() == t:
			hh1, ht1 := h.rawCounters()
			th1, tt1 := t.rawCounters()
			if q.headSegment.Load() == h && q.tailSegment.Load() == t && h.next.Load() == t {
				hh2, ht2 := h.rawCounters()
				th2, tt2 := t.rawCounters()
				if hh1 == hh2 && ht1 == ht2 && th1 == th2 && tt1 == tt2 {
					return slotCount(hh1, ht1) + slotCount(th1, tt1)
				}
			}

		default:
			if n, ok := q.countLongChain(h, t); ok {
				return n
			}
		}
		sw.Once()
	}
}

// countLongChain handles Count's three-or-more-segment case under the
// cross-segment lock: head and tail are summed along with every
// frozen-full interior segment.
func (q *Unbounded[T]) countLongChain(h, t *segment[T]) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.headSegment.Load() != h || q.tailSegment.Load() != t {
		return 0, false
	}

	hh1, ht1 := h.rawCounters()
	th1, tt1 := t.rawCounters()
	hh2, ht2 := h.rawCounters()
	th2, tt2 := t.rawCounters()
	if hh1 != hh2 || ht1 != ht2 || th1 != th2 || tt1 != tt2 {
		return 0, false
	}
	total := slotCount(hh1, ht1) + slotCount(th1, tt1)

	for cur := h.next.Load(); cur != t; cur = cur.next.Load() {
		_, ct := cur.rawCounters()
		total += int(ct) - freezeOffset
	}
	return total, true
}

// Clear discards all elements currently in the queue, retaining one
// empty segment and returning the rest to the pool. Dropped values
// are not dequeued; the caller has opted into discarding them.
func (q *Unbounded[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	tail := q.tailSegment.Load()
	tail.ensureFrozen()

	for cur := q.headSegment.Load(); ; {
		next := cur.next.Load()
		q.pool.release(cur)
		if cur == tail {
			break
		}
		cur = next
	}

	fresh := q.pool.acquire()
	q.headSegment.Store(fresh)
	q.tailSegment.Store(fresh)
}

// Drain is a no-op hint satisfying [Drainer] for symmetry with the
// FAA-based bounded queues. Unbounded never applies a livelock
// threshold to Dequeue, so there is nothing to lift.
func (q *Unbounded[T]) Drain() {}

// Cap reports that the queue has no fixed capacity.
func (q *Unbounded[T]) Cap() int {
	return -1
}
