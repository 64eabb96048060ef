// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"code.hybscloud.com/lfq/internal/cacheline"
)

// segmentCapacity is the fixed number of slots per segment in the
// unbounded queue's chain. Must be a power of two.
const segmentCapacity = 1024

// slotMask extracts a slot index from a head/tail index.
const slotMask = segmentCapacity - 1

// freezeOffset is added to tail exactly once when a segment is frozen.
// It must be large enough that no producer racing the freeze can ever
// complete its CAS on tail afterward: every slot's sequence is at most
// head+segmentCapacity, which stays strictly below any tail value the
// offset produces. See spec §9 for the full argument.
const freezeOffset = 2 * segmentCapacity

// cachePad separates concurrently-written fields onto distinct cache
// lines to avoid false sharing between producers and consumers.
type cachePad [cacheline.Line]byte

// unboundedSlot is one ring cell: a value plus its coordination word.
type unboundedSlot[T any] struct {
	seq  atomix.Uint64
	data T
	_    cachePad // pad to cache line, avoiding false sharing with the next slot
}

// segment is a fixed-capacity ring buffer, the unit of the unbounded
// queue's chain. It is exclusively owned by the queue while linked in,
// then transferred to the pool for reuse.
type segment[T any] struct {
	_    cachePad
	tail atomix.Uint64
	_    cachePad
	head atomix.Uint64
	_    cachePad

	slots  [segmentCapacity]unboundedSlot[T]
	frozen atomix.Bool
	next   atomic.Pointer[segment[T]]
}

// newSegment allocates and initializes a fresh segment.
func newSegment[T any]() *segment[T] {
	s := &segment[T]{}
	s.initialize()
	return s
}

// initialize resets a segment to its freshly-allocated state so a
// pooled segment is indistinguishable from a new one.
func (s *segment[T]) initialize() {
	for i := range s.slots {
		var zero T
		s.slots[i].data = zero
		s.slots[i].seq.StoreRelaxed(uint64(i))
	}
	s.head.StoreRelaxed(0)
	s.tail.StoreRelaxed(0)
	s.frozen.StoreRelease(false)
	s.next.Store(nil)
}

// tryEnqueue attempts to publish elem into the segment. It returns
// true on success, false if the segment is full or frozen.
func (s *segment[T]) tryEnqueue(elem *T) bool {
	sw := spin.Wait{}
	for {
		tail := s.tail.LoadAcquire()
		slot := &s.slots[tail&slotMask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(tail)

		if diff == 0 {
			if s.tail.CompareAndSwapAcqRel(tail, tail+1) {
				slot.data = *elem
				slot.seq.StoreRelease(tail + 1)
				return true
			}
		} else if diff < 0 {
			return false
		}
		sw.Once()
	}
}

// tryDequeue attempts to claim and return the next element. It
// returns (elem, true) on success, (zero, false) if the segment is
// observably empty for the caller's head value.
func (s *segment[T]) tryDequeue() (T, bool) {
	sw := spin.Wait{}
	for {
		head := s.head.LoadAcquire()
		slot := &s.slots[head&slotMask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			if s.head.CompareAndSwapAcqRel(head, head+1) {
				elem := slot.data
				var zero T
				slot.data = zero
				slot.seq.StoreRelease(head + segmentCapacity)
				return elem, true
			}
		} else if diff < 0 {
			if s.isEmptyAt(head) {
				var zero T
				return zero, false
			}
		}
		sw.Once()
	}
}

// tryPeek reports whether the segment has an element ready at its
// current head, without claiming it. Used by IsEmpty's chain walk.
func (s *segment[T]) tryPeek() bool {
	sw := spin.Wait{}
	for {
		head := s.head.LoadAcquire()
		slot := &s.slots[head&slotMask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			return true
		}
		if diff < 0 {
			return !s.isEmptyAt(head)
		}
		sw.Once()
	}
}

// isEmptyAt reports whether the segment is empty from the perspective
// of a caller holding head value h, accounting for freeze. A false
// result means a producer is mid-publish on h's slot and the caller
// should keep spinning.
func (s *segment[T]) isEmptyAt(h uint64) bool {
	frozen := s.frozen.LoadAcquire()
	tail := s.tail.LoadAcquire()
	if int64(tail)-int64(h) <= 0 {
		return true
	}
	if frozen && int64(tail)-freezeOffset-int64(h) <= 0 {
		return true
	}
	return false
}

// ensureFrozen idempotently prevents further enqueues on the segment.
// Must be called only while holding the queue's cross-segment lock.
func (s *segment[T]) ensureFrozen() {
	if s.frozen.LoadAcquire() {
		return
	}
	s.frozen.StoreRelease(true)
	s.tail.AddAcqRel(freezeOffset)
}

// rawCounters returns the segment's head and tail using acquire
// loads, for use inside Count's stability-checked snapshot loop.
func (s *segment[T]) rawCounters() (head, tail uint64) {
	return s.head.LoadAcquire(), s.tail.LoadAcquire()
}

// slotCount returns the number of occupied slots implied by a
// (head, tail) pair, accounting for the freeze offset.
func slotCount(head, tail uint64) int {
	if head == tail || head == tail-freezeOffset {
		return 0
	}
	mh, mt := head&slotMask, tail&slotMask
	if mh < mt {
		return int(mt - mh)
	}
	return segmentCapacity - int(mh) + int(mt)
}
