// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

// segmentPool is a LIFO stack of retired segments available for
// reuse. It is only ever touched while the owning Unbounded's
// cross-segment lock is held, so it needs no synchronization of its
// own.
type segmentPool[T any] struct {
	free []*segment[T]
}

// acquire pops a segment from the pool and reinitializes it, or
// allocates a fresh one if the pool is empty.
func (p *segmentPool[T]) acquire() *segment[T] {
	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		s.initialize()
		return s
	}
	return newSegment[T]()
}

// release pushes a retired segment onto the pool for later reuse.
// The segment's contents are not reinitialized until acquire.
func (p *segmentPool[T]) release(s *segment[T]) {
	p.free = append(p.free, s)
}

// len reports the number of segments currently retired in the pool.
func (p *segmentPool[T]) len() int {
	return len(p.free)
}
