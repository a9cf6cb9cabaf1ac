package detect

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

const (
	// dnnInputSize is the square input size the detection network expects
	dnnInputSize = 300
	// dnnScale and dnnMean normalise pixel values for SSD style models
	dnnScale = 1.0 / 127.5
	dnnMean  = 127.5
)

// Detector turns a raw frame into a list of candidate detections.  The
// threshold is the minimum confidence a detection must have to be
// returned.
type Detector interface {
	Detect(frame gocv.Mat, threshold float64) ([]Detection, error)
	Close() error
}

// DNNDetector runs a pretrained object detection network via the OpenCV
// DNN module.  It implements Detector.
type DNNDetector struct {
	net gocv.Net
}

// NewDNNDetector loads the network from the given model weights and
// optional network config file.  The file formats accepted are those of
// gocv.ReadNet (ONNX, Caffe, TensorFlow).
func NewDNNDetector(modelPath, configPath string) (*DNNDetector, error) {

	net := gocv.ReadNet(modelPath, configPath)

	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		return nil, fmt.Errorf("setting network backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		return nil, fmt.Errorf("setting network target: %w", err)
	}

	return &DNNDetector{net: net}, nil
}

// Detect runs inference on the frame and returns all detections whose
// confidence meets the threshold.  Box coordinates are scaled back to the
// frame's pixel space and clamped to its bounds.
func (d *DNNDetector) Detect(frame gocv.Mat, threshold float64) ([]Detection, error) {

	if frame.Empty() {
		return nil, fmt.Errorf("input frame is empty")
	}

	blob := gocv.BlobFromImage(frame, dnnScale,
		image.Pt(dnnInputSize, dnnInputSize),
		gocv.NewScalar(dnnMean, dnnMean, dnnMean, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	// SSD output rows are [batch, class, confidence, x1, y1, x2, y2]
	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	cols := float32(frame.Cols())
	frows := float32(frame.Rows())

	var results []Detection

	for i := 0; i < rows.Rows(); i++ {

		confidence := float64(rows.GetFloatAt(i, 2))

		if confidence < threshold {
			continue
		}

		box := BoxRect{
			Left:   clampInt(int(rows.GetFloatAt(i, 3)*cols), 0, frame.Cols()),
			Top:    clampInt(int(rows.GetFloatAt(i, 4)*frows), 0, frame.Rows()),
			Right:  clampInt(int(rows.GetFloatAt(i, 5)*cols), 0, frame.Cols()),
			Bottom: clampInt(int(rows.GetFloatAt(i, 6)*frows), 0, frame.Rows()),
		}

		// degenerate boxes are skipped, not fatal
		if box.Width() <= 0 || box.Height() <= 0 {
			continue
		}

		results = append(results, Detection{
			Box:        box,
			Class:      int(rows.GetFloatAt(i, 1)),
			Confidence: confidence,
		})
	}

	return results, nil
}

// Close releases the network resources
func (d *DNNDetector) Close() error {
	return d.net.Close()
}

// clampInt restricts v to the range [min, max]
func clampInt(v, min, max int) int {

	if v < min {
		return min
	}

	if v > max {
		return max
	}

	return v
}
