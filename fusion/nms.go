package fusion

import (
	"sort"

	"doorcount/detect"
)

// IoU calculates the Intersection over Union of two boxes.  Disjoint
// boxes score 0, identical boxes score 1.
func IoU(a, b detect.BoxRect) float64 {

	ix := minInt(a.Right, b.Right) - maxInt(a.Left, b.Left)
	iy := minInt(a.Bottom, b.Bottom) - maxInt(a.Top, b.Top)

	if ix <= 0 || iy <= 0 {
		return 0
	}

	intersection := float64(ix) * float64(iy)
	union := a.Area() + b.Area() - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

// Intersects reports whether two boxes overlap at all
func Intersects(a, b detect.BoxRect) bool {
	return a.Left < b.Right && b.Left < a.Right &&
		a.Top < b.Bottom && b.Top < a.Bottom
}

// NMS applies greedy non-maximum suppression over the detections.  The
// set is sorted by descending confidence, then each survivor suppresses
// all remaining boxes whose IoU with it exceeds the threshold.  The input
// slice is not modified.
func NMS(dets []detect.Detection, threshold float64) []detect.Detection {

	if len(dets) == 0 {
		return nil
	}

	ordered := make([]detect.Detection, len(dets))
	copy(ordered, dets)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})

	suppressed := make([]bool, len(ordered))
	keep := make([]detect.Detection, 0, len(ordered))

	for i := 0; i < len(ordered); i++ {

		if suppressed[i] {
			continue
		}

		keep = append(keep, ordered[i])

		for j := i + 1; j < len(ordered); j++ {

			if suppressed[j] {
				continue
			}

			if IoU(ordered[i].Box, ordered[j].Box) > threshold {
				suppressed[j] = true
			}
		}
	}

	return keep
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
