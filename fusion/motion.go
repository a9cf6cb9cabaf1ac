package fusion

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

const (
	// mog2History and mog2VarThreshold configure the background model
	mog2History      = 500
	mog2VarThreshold = 16.0
	// maskThreshold drops shadow pixels from the foreground mask
	maskThreshold = 127
	// morphKernelSize is the ellipse kernel used for open/close cleanup
	morphKernelSize = 5
)

// MotionDetector maintains a running background model and extracts the
// regions of a frame that differ from it.  It is owned by the capture
// goroutine and is not safe for concurrent use.
type MotionDetector struct {
	subtractor gocv.BackgroundSubtractorMOG2
	kernel     gocv.Mat
	// minArea is the smallest contour area in pixels kept as motion
	minArea float64
}

// NewMotionDetector returns a motion detector keeping contours whose area
// exceeds minArea pixels.
func NewMotionDetector(minArea float64) *MotionDetector {
	return &MotionDetector{
		subtractor: gocv.NewBackgroundSubtractorMOG2WithParams(
			mog2History, mog2VarThreshold, false),
		kernel:  gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(morphKernelSize, morphKernelSize)),
		minArea: minArea,
	}
}

// Regions updates the background model with the frame and returns the
// bounding rectangles of all motion regions found.
func (m *MotionDetector) Regions(frame gocv.Mat) ([]image.Rectangle, error) {

	if frame.Empty() {
		return nil, fmt.Errorf("input frame is empty")
	}

	fgMask := gocv.NewMat()
	defer fgMask.Close()

	m.subtractor.Apply(frame, &fgMask)

	// threshold away shadow values, then remove speckle noise and fill
	// small holes
	gocv.Threshold(fgMask, &fgMask, maskThreshold, 255, gocv.ThresholdBinary)
	gocv.MorphologyEx(fgMask, &fgMask, gocv.MorphOpen, m.kernel)
	gocv.MorphologyEx(fgMask, &fgMask, gocv.MorphClose, m.kernel)

	contours := gocv.FindContours(fgMask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var regions []image.Rectangle

	for i := 0; i < contours.Size(); i++ {

		contour := contours.At(i)

		if gocv.ContourArea(contour) < m.minArea {
			continue
		}

		regions = append(regions, gocv.BoundingRect(contour))
	}

	return regions, nil
}

// Close releases the background model resources
func (m *MotionDetector) Close() error {

	if err := m.subtractor.Close(); err != nil {
		return err
	}

	return m.kernel.Close()
}
