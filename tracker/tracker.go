// Package tracker associates per-frame detections into persistent track
// identities using greedy IoU matching.
package tracker

import (
	"gonum.org/v1/gonum/mat"

	"doorcount/detect"
)

const (
	// kalman measurement noise weights
	stdWeightPosition = 1.0 / 20.0
	stdWeightVelocity = 1.0 / 160.0
)

// Config holds the tracker thresholds
type Config struct {
	// MaxDisappeared is the number of consecutive missed frames after
	// which a track is removed
	MaxDisappeared int
	// MaxTrackAge is the maximum track lifetime in matched frames
	MaxTrackAge int
	// MinConfidence is the detection confidence required to start a new
	// track
	MinConfidence float64
	// MinIoU is the smallest IoU accepted when matching a detection to an
	// existing track
	MinIoU float64
	// SmoothingAlpha is the exponential smoothing weight kept on the
	// previous box when a match updates a track
	SmoothingAlpha float32
	// PredictMissing coasts unmatched tracks with a constant velocity
	// Kalman filter instead of freezing their last box
	PredictMissing bool
}

// DefaultConfig returns the tracker defaults
func DefaultConfig() Config {
	return Config{
		MaxDisappeared: 20,
		MaxTrackAge:    30,
		MinConfidence:  0.6,
		MinIoU:         0.3,
		SmoothingAlpha: 0.7,
	}
}

// Tracker maintains the set of live tracks.  It is owned by the capture
// goroutine, no internal locking is performed.
//
// Matching is greedy per existing track in insertion order, each track
// claims the unclaimed detection with the greatest IoU against its own
// box.  No globally optimal assignment is attempted, with the small track
// counts of a doorway camera the greedy result is nearly always identical
// and avoids the cost of a full assignment solve.
type Tracker struct {
	cfg    Config
	tracks []*Track
	nextID int
	kf     *KalmanFilter
}

// NewTracker returns a Tracker with the given configuration
func NewTracker(cfg Config) *Tracker {

	t := &Tracker{
		cfg: cfg,
	}

	if cfg.PredictMissing {
		t.kf = NewKalmanFilter(stdWeightPosition, stdWeightVelocity)
	}

	return t
}

// Tracks returns the current track table in insertion order
func (t *Tracker) Tracks() []*Track {
	return t.tracks
}

// Update consumes the cleaned detections for one frame and returns the
// updated track table, valid until the next call.
func (t *Tracker) Update(dets []detect.Detection) []*Track {

	boxes := make([]Rect, len(dets))

	for i, det := range dets {
		boxes[i] = NewRect(
			float32(det.Box.Left),
			float32(det.Box.Top),
			float32(det.Box.Width()),
			float32(det.Box.Height()),
		)
	}

	claimed := make([]bool, len(dets))
	matched := make(map[int]bool, len(t.tracks))

	// greedy matching in track insertion order
	for _, track := range t.tracks {

		bestIoU := float32(t.cfg.MinIoU)
		bestIdx := -1

		for i := range boxes {

			if claimed[i] {
				continue
			}

			if iou := track.rect.CalcIoU(boxes[i]); iou > bestIoU {
				bestIoU = iou
				bestIdx = i
			}
		}

		if bestIdx >= 0 {
			t.match(track, boxes[bestIdx], dets[bestIdx].Confidence)
			claimed[bestIdx] = true
			matched[track.id] = true
		}
	}

	// age out unmatched tracks, coasting them first when enabled
	kept := t.tracks[:0]

	for _, track := range t.tracks {

		if !matched[track.id] {
			track.misses++

			if track.misses > t.cfg.MaxDisappeared || track.age > t.cfg.MaxTrackAge {
				continue
			}

			if t.kf != nil {
				t.coast(track)
			}
		}

		kept = append(kept, track)
	}

	t.tracks = kept

	// unclaimed detections above the confidence gate start new tracks
	for i, det := range dets {

		if claimed[i] || det.Confidence < t.cfg.MinConfidence {
			continue
		}

		t.tracks = append(t.tracks, t.newTrack(boxes[i], det.Confidence))
	}

	return t.tracks
}

// match updates a track with its claimed detection
func (t *Tracker) match(track *Track, box Rect, confidence float64) {

	track.rect = track.rect.Smooth(box, t.cfg.SmoothingAlpha)
	track.confidence = confidence
	track.misses = 0
	track.age++

	if t.kf != nil {
		smoothed := track.rect

		if err := t.kf.Update(track.mean, track.cov, smoothed.GetXyah()); err != nil {
			// filter divergence is recoverable, restart from the current box
			t.kf.Initiate(track.mean, track.cov, smoothed.GetXyah())
		}
	}
}

// coast advances a missing track's box one frame under the constant
// velocity model
func (t *Tracker) coast(track *Track) {

	t.kf.Predict(track.mean, track.cov)

	rect := GenerateRectByXyah(Xyah{track.mean[0], track.mean[1], track.mean[2], track.mean[3]})

	if rect.Width() > 0 && rect.Height() > 0 {
		track.rect = rect
	}
}

// newTrack allocates a track with a fresh identity.  Identities are
// never reused, even after the original track is removed.
func (t *Tracker) newTrack(box Rect, confidence float64) *Track {

	track := &Track{
		id:         t.nextID,
		rect:       box,
		confidence: confidence,
	}

	t.nextID++

	if t.kf != nil {
		track.mean = make(Mean, 8)
		track.cov = &Covariance{Dense: mat.NewDense(8, 8, nil)}
		t.kf.Initiate(track.mean, track.cov, box.GetXyah())
	}

	return track
}
