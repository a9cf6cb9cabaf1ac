package fusion

import (
	"math"
	"testing"

	"doorcount/detect"
)

// almostEqual checks if two float64 values are approximately equal
func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func box(l, t, r, b int) detect.BoxRect {
	return detect.BoxRect{Left: l, Top: t, Right: r, Bottom: b}
}

func TestIoU(t *testing.T) {

	const tolerance = 1e-9

	tests := []struct {
		name string
		a, b detect.BoxRect
		want float64
	}{
		{"identical", box(10, 10, 50, 90), box(10, 10, 50, 90), 1.0},
		{"disjoint", box(0, 0, 10, 10), box(20, 20, 30, 30), 0.0},
		{"touching edges", box(0, 0, 10, 10), box(10, 0, 20, 10), 0.0},
		// 10x10 boxes offset by 5 in x: intersection 50, union 150
		{"half overlap", box(0, 0, 10, 10), box(5, 0, 15, 10), 50.0 / 150.0},
		// small box fully inside a larger one
		{"contained", box(0, 0, 20, 20), box(5, 5, 10, 10), 25.0 / 400.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			got := IoU(tc.a, tc.b)

			if !almostEqual(got, tc.want, tolerance) {
				t.Errorf("IoU = %v, want %v", got, tc.want)
			}

			// IoU must be symmetric
			if rev := IoU(tc.b, tc.a); !almostEqual(got, rev, tolerance) {
				t.Errorf("IoU not symmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestNMSSuppressesOverlaps(t *testing.T) {

	dets := []detect.Detection{
		{Box: box(0, 0, 100, 200), Class: 0, Confidence: 0.9},
		// heavy overlap with the first, lower confidence, must be dropped
		{Box: box(5, 5, 105, 205), Class: 0, Confidence: 0.7},
		// far away, must survive
		{Box: box(300, 0, 400, 200), Class: 0, Confidence: 0.6},
	}

	kept := NMS(dets, 0.45)

	if len(kept) != 2 {
		t.Fatalf("expected 2 detections after NMS, got %d", len(kept))
	}

	if kept[0].Confidence != 0.9 {
		t.Errorf("expected highest confidence first, got %v", kept[0].Confidence)
	}

	if kept[1].Box != box(300, 0, 400, 200) {
		t.Errorf("expected distant box to survive, got %+v", kept[1].Box)
	}
}

func TestNMSIdempotent(t *testing.T) {

	dets := []detect.Detection{
		{Box: box(0, 0, 100, 200), Confidence: 0.9},
		{Box: box(5, 5, 105, 205), Confidence: 0.7},
		{Box: box(300, 0, 400, 200), Confidence: 0.6},
		{Box: box(150, 0, 250, 180), Confidence: 0.85},
	}

	once := NMS(dets, 0.45)
	twice := NMS(once, 0.45)

	if len(once) != len(twice) {
		t.Fatalf("NMS not idempotent: %d then %d detections", len(once), len(twice))
	}

	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("detection %d changed on second pass: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestNMSEmpty(t *testing.T) {

	if kept := NMS(nil, 0.45); len(kept) != 0 {
		t.Errorf("expected no detections, got %d", len(kept))
	}
}
