package tracker

import (
	"testing"

	"doorcount/detect"
)

// det builds a detection from top-left corner and size
func det(x, y, w, h int, conf float64) detect.Detection {
	return detect.Detection{
		Box: detect.BoxRect{
			Left:   x,
			Top:    y,
			Right:  x + w,
			Bottom: y + h,
		},
		Class:      0,
		Confidence: conf,
	}
}

func TestTrackerIdentityStability(t *testing.T) {
	tr := NewTracker(DefaultConfig())

	tracks := tr.Update([]detect.Detection{det(100, 100, 60, 120, 0.9)})

	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}

	id := tracks[0].ID()

	// walk the box across the frame a few pixels at a time, the identity
	// must survive the whole pass
	for i := 1; i <= 40; i++ {
		tracks = tr.Update([]detect.Detection{det(100+i*3, 100, 60, 120, 0.9)})

		if len(tracks) != 1 {
			t.Fatalf("frame %d: expected 1 track, got %d", i, len(tracks))
		}

		if tracks[0].ID() != id {
			t.Fatalf("frame %d: identity changed from %d to %d", i, id, tracks[0].ID())
		}
	}

	if tracks[0].Age() != 40 {
		t.Errorf("expected age 40, got %d", tracks[0].Age())
	}
}

func TestTrackerPruning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDisappeared = 20

	tr := NewTracker(cfg)
	tr.Update([]detect.Detection{det(100, 100, 60, 120, 0.9)})

	// the track survives exactly MaxDisappeared empty frames
	for i := 1; i <= 20; i++ {
		tracks := tr.Update(nil)

		if len(tracks) != 1 {
			t.Fatalf("empty frame %d: expected track to survive, got %d tracks", i, len(tracks))
		}

		if tracks[0].Misses() != i {
			t.Fatalf("empty frame %d: expected %d misses, got %d", i, i, tracks[0].Misses())
		}
	}

	// one more empty frame pushes it over the limit
	if tracks := tr.Update(nil); len(tracks) != 0 {
		t.Errorf("expected track removal, got %d tracks", len(tracks))
	}
}

func TestTrackerMaxAge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTrackAge = 5

	tr := NewTracker(cfg)

	// keep the track matched well past the age limit, a matched track is
	// never removed on age alone
	var tracks []*Track
	for i := 0; i <= 8; i++ {
		tracks = tr.Update([]detect.Detection{det(100, 100, 60, 120, 0.9)})
	}

	if len(tracks) != 1 {
		t.Fatalf("expected matched track to survive, got %d tracks", len(tracks))
	}

	// the first miss retires it because the age limit is already exceeded
	if tracks = tr.Update(nil); len(tracks) != 0 {
		t.Errorf("expected aged track removal on first miss, got %d tracks", len(tracks))
	}
}

func TestTrackerIDNeverReused(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDisappeared = 1

	tr := NewTracker(cfg)

	tracks := tr.Update([]detect.Detection{det(100, 100, 60, 120, 0.9)})
	first := tracks[0].ID()

	// let the track die
	tr.Update(nil)
	tr.Update(nil)

	if tracks = tr.Tracks(); len(tracks) != 0 {
		t.Fatalf("expected empty track table, got %d tracks", len(tracks))
	}

	// a new appearance at the same position gets a fresh identity
	tracks = tr.Update([]detect.Detection{det(100, 100, 60, 120, 0.9)})

	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}

	if tracks[0].ID() == first {
		t.Errorf("identity %d was reused", first)
	}

	if tracks[0].ID() <= first {
		t.Errorf("expected identity above %d, got %d", first, tracks[0].ID())
	}
}

func TestTrackerConfidenceGate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinConfidence = 0.6

	tr := NewTracker(cfg)

	// below the confidence floor no track is started
	if tracks := tr.Update([]detect.Detection{det(100, 100, 60, 120, 0.5)}); len(tracks) != 0 {
		t.Fatalf("expected no track from low confidence detection, got %d", len(tracks))
	}

	// at or above the floor it is
	tracks := tr.Update([]detect.Detection{det(100, 100, 60, 120, 0.7)})

	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}

	// an existing track still matches low confidence detections
	tracks = tr.Update([]detect.Detection{det(102, 100, 60, 120, 0.4)})

	if len(tracks) != 1 {
		t.Errorf("expected low confidence match to keep the track, got %d tracks", len(tracks))
	}

	if tracks[0].Misses() != 0 {
		t.Errorf("expected match to clear misses, got %d", tracks[0].Misses())
	}
}

func TestTrackerGreedyClaiming(t *testing.T) {
	tr := NewTracker(DefaultConfig())

	// two well separated people
	tracks := tr.Update([]detect.Detection{
		det(100, 100, 60, 120, 0.9),
		det(400, 100, 60, 120, 0.9),
	})

	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}

	idLeft := tracks[0].ID()
	idRight := tracks[1].ID()

	// swap the detection order, identities must follow position not order
	tracks = tr.Update([]detect.Detection{
		det(402, 100, 60, 120, 0.9),
		det(98, 100, 60, 120, 0.9),
	})

	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}

	for _, track := range tracks {
		ref := track.RefPoint()

		switch track.ID() {
		case idLeft:
			if ref.X > 200 {
				t.Errorf("track %d drifted to the right side: %v", idLeft, ref)
			}
		case idRight:
			if ref.X < 200 {
				t.Errorf("track %d drifted to the left side: %v", idRight, ref)
			}
		default:
			t.Errorf("unexpected new identity %d", track.ID())
		}
	}
}

func TestTrackerSmoothing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothingAlpha = 0.7

	tr := NewTracker(cfg)

	tr.Update([]detect.Detection{det(100, 100, 60, 120, 0.9)})
	tracks := tr.Update([]detect.Detection{det(110, 100, 60, 120, 0.9)})

	// the published box lags the observation by the smoothing weight
	rect := tracks[0].Rect()
	if !almostEqual(rect.TLX(), 103) {
		t.Errorf("expected smoothed left edge 103, got %v", rect.TLX())
	}
}

func TestTrackerFrozenBoxWhileMissing(t *testing.T) {
	tr := NewTracker(DefaultConfig())

	tracks := tr.Update([]detect.Detection{det(100, 100, 60, 120, 0.9)})
	before := tracks[0].Rect()

	// without coasting enabled the box stays put across misses
	tracks = tr.Update(nil)

	after := tracks[0].Rect()
	if !almostEqual(before.TLX(), after.TLX()) || !almostEqual(before.TLY(), after.TLY()) {
		t.Errorf("expected frozen box, got %+v then %+v", before, after)
	}
}

func TestTrackerCoasting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PredictMissing = true

	tr := NewTracker(cfg)

	// establish a rightward velocity
	var tracks []*Track
	for i := 0; i <= 5; i++ {
		tracks = tr.Update([]detect.Detection{det(100+i*10, 100, 60, 120, 0.9)})
	}

	lastX := tracks[0].Rect().TLX()

	// on a miss the box keeps moving in the learned direction
	tracks = tr.Update(nil)

	if len(tracks) != 1 {
		t.Fatalf("expected coasting track to survive, got %d", len(tracks))
	}

	if tracks[0].Rect().TLX() <= lastX {
		t.Errorf("expected coasted box past %v, got %v", lastX, tracks[0].Rect().TLX())
	}
}
