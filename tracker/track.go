package tracker

import "image"

// Track represents one physical person followed across frames.  A track
// is created from an unmatched detection, updated every frame it is
// matched and removed once it has been missing too long or has exceeded
// its maximum lifetime.  Tracks are owned exclusively by the Tracker,
// consumers read them for the current frame only.
type Track struct {
	id         int
	rect       Rect
	confidence float64
	// misses counts consecutive frames without a matched detection
	misses int
	// age counts the frames this track has been matched
	age int

	// kalman state, allocated only when coasting is enabled
	mean Mean
	cov  *Covariance
}

// NewTrack creates a standalone track with a fixed identity and box.
// The Tracker mints its own tracks, this is for callers replaying
// recorded positions.
func NewTrack(id int, rect Rect, confidence float64) *Track {
	return &Track{
		id:         id,
		rect:       rect,
		confidence: confidence,
	}
}

// ID returns the persistent track identity.  Identities increase
// monotonically and are never reused.
func (t *Track) ID() int {
	return t.id
}

// Rect returns the track's current smoothed bounding box
func (t *Track) Rect() Rect {
	return t.rect
}

// Confidence returns the confidence of the last matched detection
func (t *Track) Confidence() float64 {
	return t.confidence
}

// Misses returns the consecutive-miss counter
func (t *Track) Misses() int {
	return t.misses
}

// Age returns the track age in matched frames
func (t *Track) Age() int {
	return t.age
}

// RefPoint returns the bottom-center of the bounding box, the reference
// point used for zone classification
func (t *Track) RefPoint() image.Point {
	return image.Pt(
		int(t.rect.TLX()+t.rect.Width()/2),
		int(t.rect.BRY()),
	)
}
