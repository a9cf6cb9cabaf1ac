// Package fusion cleans the raw per-frame detections produced by the
// inference engine before they reach the tracker.  It gates detections on
// motion evidence and shape plausibility, then suppresses redundant
// overlapping boxes.
package fusion

import (
	"image"

	"gocv.io/x/gocv"

	"doorcount/detect"
)

// OverlapMode selects how a detection box is matched against motion
// regions during validation.
type OverlapMode int

const (
	// OverlapIntersect accepts any rectangle intersection with a motion
	// region
	OverlapIntersect OverlapMode = iota
	// OverlapIoU requires the IoU with a motion region to exceed the
	// configured threshold
	OverlapIoU
)

// Config holds the fusion thresholds
type Config struct {
	// PersonClass is the detection class id kept, all others are dropped
	PersonClass int
	// ConfThreshold is the minimum confidence for a detection to be
	// considered at all
	ConfThreshold float64
	// HighConfThreshold accepts a detection unconditionally, without
	// requiring motion evidence
	HighConfThreshold float64
	// NMSThreshold is the IoU above which overlapping boxes are suppressed
	NMSThreshold float64
	// MotionOverlap is the minimum IoU with a motion region when Mode is
	// OverlapIoU
	MotionOverlap float64
	// Mode selects the motion validation test
	Mode OverlapMode
	// MinAspect and MaxAspect bound the height/width ratio plausible for
	// a standing person
	MinAspect float64
	MaxAspect float64
	// MinArea and MaxArea bound the box area in pixels
	MinArea float64
	MaxArea float64
}

// Fuser combines motion gating and non-maximum suppression into a single
// per-frame cleaning stage.  It is owned by the capture goroutine.
type Fuser struct {
	cfg    Config
	motion *MotionDetector
}

// NewFuser returns a Fuser with the given thresholds.  motionMinArea is
// the smallest contour area kept as a motion region.
func NewFuser(cfg Config, motionMinArea float64) *Fuser {
	return &Fuser{
		cfg:    cfg,
		motion: NewMotionDetector(motionMinArea),
	}
}

// Fuse cleans the raw detections against the frame's motion evidence.
// It returns the accepted detections after NMS along with the motion
// regions found, the latter used for diagnostic overlay only.  On error
// the caller should treat the frame as having no detections.
func (f *Fuser) Fuse(frame gocv.Mat, raw []detect.Detection) ([]detect.Detection, []image.Rectangle, error) {

	regions, err := f.motion.Regions(frame)

	if err != nil {
		return nil, nil, err
	}

	accepted := Select(raw, regions, f.cfg)

	return NMS(accepted, f.cfg.NMSThreshold), regions, nil
}

// Close releases the motion detector resources
func (f *Fuser) Close() error {
	return f.motion.Close()
}

// Select filters raw detections by class, confidence, shape plausibility
// and motion evidence.  High confidence detections bypass the motion
// test.  The function is pure, suppression of overlapping survivors is
// done separately by NMS.
func Select(raw []detect.Detection, regions []image.Rectangle, cfg Config) []detect.Detection {

	var accepted []detect.Detection

	for _, det := range raw {

		if det.Class != cfg.PersonClass {
			continue
		}

		if det.Confidence < cfg.ConfThreshold {
			continue
		}

		if !plausible(det.Box, cfg) {
			continue
		}

		if det.Confidence >= cfg.HighConfThreshold || movingIn(det.Box, regions, cfg) {
			accepted = append(accepted, det)
		}
	}

	return accepted
}

// plausible rejects boxes whose shape or size cannot be a standing person
func plausible(box detect.BoxRect, cfg Config) bool {

	w := box.Width()
	h := box.Height()

	if w <= 0 || h <= 0 {
		return false
	}

	aspect := float64(h) / float64(w)

	if aspect < cfg.MinAspect || aspect > cfg.MaxAspect {
		return false
	}

	area := box.Area()

	return area >= cfg.MinArea && area <= cfg.MaxArea
}

// movingIn reports whether the box overlaps any motion region under the
// configured overlap test
func movingIn(box detect.BoxRect, regions []image.Rectangle, cfg Config) bool {

	for _, region := range regions {

		rbox := detect.BoxRect{
			Left:   region.Min.X,
			Top:    region.Min.Y,
			Right:  region.Max.X,
			Bottom: region.Max.Y,
		}

		switch cfg.Mode {
		case OverlapIoU:
			if IoU(box, rbox) > cfg.MotionOverlap {
				return true
			}
		default:
			if Intersects(box, rbox) {
				return true
			}
		}
	}

	return false
}
