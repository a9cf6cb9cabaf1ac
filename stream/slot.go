// Package stream runs the capture pipeline and serves the annotated
// result as an MJPEG stream.
package stream

import (
	"sync"

	"gocv.io/x/gocv"

	"doorcount/counter"
)

// Slot holds the single most recent annotated frame.  The capture loop
// overwrites it every cycle and each serving loop copies it out, a slow
// client always sees the latest frame rather than a backlog.
type Slot struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  gocv.Mat
	has    bool
	counts counter.Counts
	closed bool
}

// NewSlot returns an empty frame slot
func NewSlot() *Slot {
	s := &Slot{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Publish replaces the slot contents with a copy of the given frame and
// the counts current at the time it was rendered
func (s *Slot) Publish(frame gocv.Mat, counts counter.Counts) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if s.has {
		s.frame.Close()
	}

	s.frame = frame.Clone()
	s.has = true
	s.counts = counts

	s.cond.Broadcast()
}

// Frame returns a copy of the latest annotated frame, blocking until one
// has been published.  The returned Mat is owned by the caller and must
// be closed.  ok is false once the slot has been closed.
func (s *Slot) Frame() (gocv.Mat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.has && !s.closed {
		s.cond.Wait()
	}

	if s.closed {
		return gocv.Mat{}, false
	}

	return s.frame.Clone(), true
}

// Counts returns the counts snapshot taken with the latest frame
func (s *Slot) Counts() counter.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counts
}

// Close releases the held frame and wakes every blocked reader
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if s.has {
		s.frame.Close()
		s.has = false
	}

	s.closed = true
	s.cond.Broadcast()
}
