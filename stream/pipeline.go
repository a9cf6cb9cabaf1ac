package stream

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"doorcount/counter"
	"doorcount/detect"
	"doorcount/fusion"
	"doorcount/render"
	"doorcount/tracker"
)

// FrameSource supplies sequential video frames
type FrameSource interface {
	// Read fills dst with the next frame, returning false on failure
	Read(dst *gocv.Mat) bool
	Close() error
}

// SourceFunc opens a FrameSource.  The engine calls it again after a
// source failure so a camera that drops out is reconnected.
type SourceFunc func() (FrameSource, error)

// OpenCamera opens a camera device or network stream address, requesting
// the given capture resolution when width and height are positive
func OpenCamera(url string, width, height int) (FrameSource, error) {

	cap, err := gocv.OpenVideoCapture(url)

	if err != nil {
		return nil, fmt.Errorf("failed to open video source %s: %w", url, err)
	}

	if width > 0 && height > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(width))
		cap.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}

	return &cameraSource{cap: cap}, nil
}

type cameraSource struct {
	cap *gocv.VideoCapture
}

func (c *cameraSource) Read(dst *gocv.Mat) bool {
	return c.cap.Read(dst)
}

func (c *cameraSource) Close() error {
	return c.cap.Close()
}

// EngineConfig bundles the pipeline stages and pacing parameters
type EngineConfig struct {
	Source   SourceFunc
	Detector detect.Detector
	Fuser    *fusion.Fuser
	Tracker  *tracker.Tracker
	Counter  *counter.Counter
	Overlay  *render.Overlay
	Slot     *Slot
	// Hub receives count updates, may be nil
	Hub *Hub
	// ConfThreshold is passed to the detector on every frame
	ConfThreshold float64
	// TargetFPS caps how many frames per second are fully processed
	TargetFPS float64
	// RetryDelay is the wait before reconnecting a failed source
	RetryDelay time.Duration
	// TrailLength is the number of center points kept per track for the
	// movement trail overlay
	TrailLength int
}

// Engine owns the capture loop.  Frames flow through detection fusion,
// tracking and counting in sequence, then the annotated result is
// published to the shared slot.  All pipeline state is confined to the
// one goroutine running Run, only the slot and hub cross threads.
type Engine struct {
	cfg      EngineConfig
	trail    *tracker.Trail
	interval time.Duration
	frameNum int
}

// NewEngine returns an Engine for the given pipeline configuration
func NewEngine(cfg EngineConfig) *Engine {

	trailLen := cfg.TrailLength
	if trailLen <= 0 {
		trailLen = 90
	}

	return &Engine{
		cfg:      cfg,
		trail:    tracker.NewTrail(trailLen),
		interval: time.Duration(float64(time.Second) / cfg.TargetFPS),
	}
}

// Run reads and processes frames until the context is cancelled.  Source
// failures are retried forever with a fixed delay, the stream degrades
// to a stale frame rather than killing the process.
func (e *Engine) Run(ctx context.Context) {

	for {
		src, err := e.cfg.Source()

		if err != nil {
			log.Errorf("video source open failed: %v", err)

			if !e.sleep(ctx, e.cfg.RetryDelay) {
				return
			}
			continue
		}

		log.Info("video source connected")
		e.capture(ctx, src)
		src.Close()

		if ctx.Err() != nil {
			return
		}

		log.Warnf("video source lost, reconnecting in %v", e.cfg.RetryDelay)

		if !e.sleep(ctx, e.cfg.RetryDelay) {
			return
		}
	}
}

// capture drains the source at its native rate and runs the full
// processing cycle at most once per target interval.  Returning hands
// reconnection back to Run.
func (e *Engine) capture(ctx context.Context, src FrameSource) {

	frame := gocv.NewMat()
	defer frame.Close()

	var lastCycle time.Time

	// used for calculating FPS
	frameCount := 0
	startTime := time.Now()
	fps := float64(0)

	for {
		if ctx.Err() != nil {
			return
		}

		if !src.Read(&frame) {
			log.Warn("frame read failed")
			return
		}

		if frame.Empty() {
			continue
		}

		// skip the work, not the frame, when ahead of the target rate
		if time.Since(lastCycle) < e.interval {
			continue
		}
		lastCycle = time.Now()

		e.cycle(&frame, fps)

		// calculate FPS
		frameCount++
		elapsed := time.Since(startTime).Seconds()

		if elapsed >= 1.0 {
			fps = float64(frameCount) / elapsed
			frameCount = 0
			startTime = time.Now()
		}
	}
}

// cycle processes one admitted frame end to end and publishes the
// annotated result
func (e *Engine) cycle(frame *gocv.Mat, fps float64) {

	raw, err := e.cfg.Detector.Detect(*frame, e.cfg.ConfThreshold)

	if err != nil {
		// treat the frame as having zero detections
		log.Errorf("inference failed: %v", err)
		raw = nil
	}

	dets, regions, err := e.cfg.Fuser.Fuse(*frame, raw)

	if err != nil {
		log.Errorf("detection fusion failed: %v", err)
		dets, regions = nil, nil
	}

	tracks := e.cfg.Tracker.Update(dets)

	live := make(map[int]bool, len(tracks))
	for _, track := range tracks {
		live[track.ID()] = true
		e.trail.Add(track)
	}
	e.trail.Prune(live)

	prev := e.cfg.Counter.Counts()
	counts := e.cfg.Counter.Update(tracks)

	if e.cfg.Hub != nil && counts != prev {
		log.Infof("counts changed: in=%d out_left=%d out_right=%d",
			counts.In, counts.OutLeft, counts.OutRight)
		e.cfg.Hub.BroadcastCounts(counts)
	}

	e.cfg.Overlay.Zones(frame, e.cfg.Counter.Zones())
	e.cfg.Overlay.MotionRegions(frame, regions)
	e.cfg.Overlay.TrackBoxes(frame, tracks, e.trail)

	e.frameNum++
	e.cfg.Overlay.Banner(frame, counts, fps, e.frameNum)

	e.cfg.Slot.Publish(*frame, counts)
}

// sleep waits for the delay, returning false if the context is cancelled
// first
func (e *Engine) sleep(ctx context.Context, delay time.Duration) bool {

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
