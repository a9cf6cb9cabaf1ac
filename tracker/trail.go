package tracker

import "sync"

// Point represents the x,y coordinates of the center of a tracked
// bounding box
type Point struct {
	X, Y int
}

// history holds the recent center points for one track identity
type history struct {
	points []Point
}

// Trail keeps a bounded history of track center points used for drawing
// a movement trail on the overlay
type Trail struct {
	// size is the maximum number of most recent points to keep per track
	size int
	// history of tracked points keyed by track id
	history map[int]*history
	sync.Mutex
}

// NewTrail returns a new trail history instance.  Size specifies the
// maximum length of the trail to maintain per track.
func NewTrail(size int) *Trail {
	return &Trail{
		size:    size,
		history: make(map[int]*history),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[int]*history)
}

// Add records the track's current center point
func (t *Trail) Add(track *Track) {
	t.Lock()
	defer t.Unlock()

	if _, exists := t.history[track.ID()]; !exists {
		t.history[track.ID()] = &history{}
	}

	h := t.history[track.ID()]

	rect := track.Rect()
	x := rect.TLX() + rect.Width()/2
	y := rect.TLY() + rect.Height()/2

	h.points = append(h.points, Point{
		X: int(x),
		Y: int(y),
	})

	// drop the oldest point once the history is exceeded
	if len(h.points) > t.size {
		h.points = h.points[1:]
	}
}

// GetPoints gets the point history for a specific track id
func (t *Trail) GetPoints(id int) []Point {
	t.Lock()
	defer t.Unlock()

	if h, exists := t.history[id]; exists {
		return h.points
	}

	return nil
}

// Prune drops history for track ids no longer present in the live set
func (t *Trail) Prune(live map[int]bool) {
	t.Lock()
	defer t.Unlock()

	for id := range t.history {
		if !live[id] {
			delete(t.history, id)
		}
	}
}
