// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq_test

import (
	"testing"

	"code.hybscloud.com/lfq"
)

// =============================================================================
// Basic single-thread behavior
// =============================================================================

// TestUnboundedBasicSequence enqueues a handful of values single-threaded
// and checks they come back out in order, then that the queue reports
// empty.
func TestUnboundedBasicSequence(t *testing.T) {
	q := lfq.NewUnbounded[int]()

	for _, v := range []int{1, 2, 3, 4, 5} {
		v := v
		q.Enqueue(&v)
	}

	for _, want := range []int{1, 2, 3, 4, 5} {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: unexpected error %v", err)
		}
		if got != want {
			t.Fatalf("Dequeue: got %d, want %d", got, want)
		}
	}

	if _, err := q.Dequeue(); !lfq.IsWouldBlock(err) {
		t.Fatalf("Dequeue on empty queue: got err %v, want ErrWouldBlock", err)
	}
}

// TestUnboundedDequeueEmptyFastPath verifies a never-touched queue
// reports empty without panicking or spinning forever.
func TestUnboundedDequeueEmptyFastPath(t *testing.T) {
	q := lfq.NewUnbounded[int]()
	if _, err := q.Dequeue(); !lfq.IsWouldBlock(err) {
		t.Fatalf("Dequeue on fresh queue: got err %v, want ErrWouldBlock", err)
	}
	if !q.IsEmpty() {
		t.Fatal("IsEmpty: fresh queue should be empty")
	}
	if n := q.Count(); n != 0 {
		t.Fatalf("Count: got %d, want 0", n)
	}
}

// TestUnboundedRoundTrip enqueues and dequeues distinct values one at a
// time and checks they come back in the same order, repeated.
func TestUnboundedRoundTrip(t *testing.T) {
	q := lfq.NewUnbounded[string]()
	values := []string{"a", "b", "c", "d", "e", "f", "g"}

	for _, v := range values {
		v := v
		q.Enqueue(&v)
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: unexpected error %v", err)
		}
		if got != v {
			t.Fatalf("Dequeue: got %q, want %q", got, v)
		}
	}
}

// =============================================================================
// Segment boundary behavior
// =============================================================================

// TestUnboundedFillCrossSegment enqueues 1025 values single-threaded,
// crossing the 1024-capacity segment boundary exactly once, and
// verifies count, ordering, and that Count and IsEmpty report an empty
// queue after drain.
func TestUnboundedFillCrossSegment(t *testing.T) {
	q := lfq.NewUnbounded[int]()

	const n = 1025
	for i := 1; i <= n; i++ {
		i := i
		q.Enqueue(&i)
	}

	if got := q.Count(); got != n {
		t.Fatalf("Count after fill: got %d, want %d", got, n)
	}

	for i := 1; i <= n; i++ {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue item %d: unexpected error %v", i, err)
		}
		if got != i {
			t.Fatalf("Dequeue item %d: got %d, want %d", i, got, i)
		}
	}

	if got := q.Count(); got != 0 {
		t.Fatalf("Count after drain: got %d, want 0", got)
	}
	if !q.IsEmpty() {
		t.Fatal("IsEmpty after drain: queue should be empty")
	}
}

// TestUnboundedFreezeThenDrain enqueues 2000 values (crossing one
// segment boundary), drains them all in order, checks the queue
// reports empty, then re-fills past a segment boundary and drains
// again in order. It does not observe whether the re-fill took a
// pooled segment; TestUnboundedPoolReuseReducesAllocation covers reuse.
func TestUnboundedFreezeThenDrain(t *testing.T) {
	q := lfq.NewUnbounded[int]()

	const n = 2000
	for i := 1; i <= n; i++ {
		i := i
		q.Enqueue(&i)
	}
	for i := 1; i <= n; i++ {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue item %d: unexpected error %v", i, err)
		}
		if got != i {
			t.Fatalf("Dequeue item %d: got %d, want %d", i, got, i)
		}
	}
	if !q.IsEmpty() {
		t.Fatal("IsEmpty after drain: queue should be empty")
	}

	// A re-fill past one segment boundary must succeed identically,
	// whether or not it reused a pooled segment.
	for i := 1; i <= segmentBoundaryProbe; i++ {
		i := i
		q.Enqueue(&i)
	}
	for i := 1; i <= segmentBoundaryProbe; i++ {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("re-fill dequeue item %d: unexpected error %v", i, err)
		}
		if got != i {
			t.Fatalf("re-fill dequeue item %d: got %d, want %d", i, got, i)
		}
	}
}

const segmentBoundaryProbe = 1030

// TestUnboundedAlternatingSteadyState enqueues and dequeues one at a
// time at a steady count well within a single segment; the chain must
// never grow past one segment.
func TestUnboundedAlternatingSteadyState(t *testing.T) {
	q := lfq.NewUnbounded[int]()

	for i := 0; i < 10_000; i++ {
		v := i
		q.Enqueue(&v)
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("iteration %d: unexpected error %v", i, err)
		}
		if got != i {
			t.Fatalf("iteration %d: got %d, want %d", i, got, i)
		}
	}
	if got := q.Count(); got != 0 {
		t.Fatalf("Count: got %d, want 0", got)
	}
}

// =============================================================================
// Clear
// =============================================================================

// TestUnboundedClearIdempotent verifies two successive Clear calls
// leave the queue in the same (empty) state as one.
func TestUnboundedClearIdempotent(t *testing.T) {
	q := lfq.NewUnbounded[int]()
	for i := 0; i < 500; i++ {
		i := i
		q.Enqueue(&i)
	}

	q.Clear()
	if !q.IsEmpty() {
		t.Fatal("IsEmpty after first Clear: queue should be empty")
	}
	if n := q.Count(); n != 0 {
		t.Fatalf("Count after first Clear: got %d, want 0", n)
	}

	q.Clear()
	if !q.IsEmpty() {
		t.Fatal("IsEmpty after second Clear: queue should be empty")
	}
	if n := q.Count(); n != 0 {
		t.Fatalf("Count after second Clear: got %d, want 0", n)
	}

	// The queue must still be usable after Clear.
	v := 42
	q.Enqueue(&v)
	got, err := q.Dequeue()
	if err != nil || got != 42 {
		t.Fatalf("Dequeue after Clear: got (%d, %v), want (42, nil)", got, err)
	}
}

// TestUnboundedClearAcrossSegments verifies Clear discards items
// spread across more than one chained segment: afterward IsEmpty
// holds and Dequeue reports ErrWouldBlock.
func TestUnboundedClearAcrossSegments(t *testing.T) {
	q := lfq.NewUnbounded[int]()
	for i := 0; i < 3000; i++ {
		i := i
		q.Enqueue(&i)
	}
	q.Clear()
	if !q.IsEmpty() {
		t.Fatal("IsEmpty after Clear: queue should be empty")
	}
	if _, err := q.Dequeue(); !lfq.IsWouldBlock(err) {
		t.Fatalf("Dequeue after Clear: got err %v, want ErrWouldBlock", err)
	}
}

// =============================================================================
// Drain (no-op hint)
// =============================================================================

// TestUnboundedDrainIsNoOp verifies that calling Drain does not affect
// Count, IsEmpty, or subsequent Dequeue behavior.
func TestUnboundedDrainIsNoOp(t *testing.T) {
	q := lfq.NewUnbounded[int]()
	for i := 0; i < 10; i++ {
		i := i
		q.Enqueue(&i)
	}

	var d lfq.Drainer = q
	d.Drain()

	if n := q.Count(); n != 10 {
		t.Fatalf("Count after Drain: got %d, want 10", n)
	}
	for i := 0; i < 10; i++ {
		got, err := q.Dequeue()
		if err != nil || got != i {
			t.Fatalf("Dequeue %d after Drain: got (%d, %v)", i, got, err)
		}
	}
	if !q.IsEmpty() {
		t.Fatal("IsEmpty after draining post-Drain: queue should be empty")
	}
}

// =============================================================================
// Cap
// =============================================================================

func TestUnboundedCap(t *testing.T) {
	q := lfq.NewUnbounded[int]()
	if got := q.Cap(); got != -1 {
		t.Fatalf("Cap: got %d, want -1", got)
	}
}

// =============================================================================
// Builder integration
// =============================================================================

func TestBuildUnbounded(t *testing.T) {
	q := lfq.BuildUnbounded[int](lfq.New(4))
	v := 7
	q.Enqueue(&v)
	got, err := q.Dequeue()
	if err != nil || got != 7 {
		t.Fatalf("Dequeue: got (%d, %v), want (7, nil)", got, err)
	}
}
