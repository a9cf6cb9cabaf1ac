package counter

import (
	"image"
	"testing"

	"doorcount/tracker"
)

// testZones builds zones around a vertical line at x=300 with offset 40.
// The center band spans x in [266,340], the left exit zone x in
// [340,380] and the right exit zone x in [226,266].
func testZones(t *testing.T) *Zones {
	t.Helper()

	z, err := NewZones(
		image.Pt(300, 100),
		image.Pt(300, 400),
		40,
		image.Rect(0, 0, 640, 480),
	)
	if err != nil {
		t.Fatalf("failed to build zones: %v", err)
	}

	return z
}

// at returns a track whose reference point lands on the given position
func at(id, x, y int) *tracker.Track {
	return tracker.NewTrack(id, tracker.NewRect(
		float32(x-20), float32(y-80), 40, 80,
	), 0.9)
}

func TestEntryFromLeftExit(t *testing.T) {
	c := NewCounter(testZones(t))

	// appears in the left exit zone, then steps into the center band
	c.Update([]*tracker.Track{at(1, 360, 250)})
	counts := c.Update([]*tracker.Track{at(1, 300, 250)})

	if counts.In != 1 || counts.OutLeft != 0 || counts.OutRight != 0 {
		t.Errorf("expected in=1 only, got %+v", counts)
	}
}

func TestEntryFromRightExit(t *testing.T) {
	c := NewCounter(testZones(t))

	c.Update([]*tracker.Track{at(1, 240, 250)})
	counts := c.Update([]*tracker.Track{at(1, 300, 250)})

	if counts.In != 1 {
		t.Errorf("expected in=1, got %+v", counts)
	}
}

func TestExitCountedOnce(t *testing.T) {
	c := NewCounter(testZones(t))

	// linger at center for several frames
	var counts Counts
	for i := 0; i < 5; i++ {
		counts = c.Update([]*tracker.Track{at(1, 300, 250)})
	}

	if counts.In != 0 || counts.Out() != 0 {
		t.Fatalf("lingering must not count, got %+v", counts)
	}

	// step into the right exit zone and stay there
	for i := 0; i < 5; i++ {
		counts = c.Update([]*tracker.Track{at(1, 240, 250)})
	}

	if counts.OutRight != 1 {
		t.Errorf("expected out_right=1 exactly once, got %+v", counts)
	}
	if counts.In != 0 || counts.OutLeft != 0 {
		t.Errorf("expected other counters unchanged, got %+v", counts)
	}
}

func TestExitToLeft(t *testing.T) {
	c := NewCounter(testZones(t))

	c.Update([]*tracker.Track{at(1, 300, 250)})
	counts := c.Update([]*tracker.Track{at(1, 360, 250)})

	if counts.OutLeft != 1 || counts.OutRight != 0 {
		t.Errorf("expected out_left=1, got %+v", counts)
	}
}

func TestNoCountOnFirstAppearance(t *testing.T) {
	c := NewCounter(testZones(t))

	// first sighting already inside the center band has no prior zone
	counts := c.Update([]*tracker.Track{at(1, 300, 250)})

	if counts.In != 0 || counts.Out() != 0 {
		t.Errorf("expected no counts, got %+v", counts)
	}
}

func TestNoneInvolvementIgnored(t *testing.T) {
	c := NewCounter(testZones(t))

	// outside every zone, then center, then outside again
	c.Update([]*tracker.Track{at(1, 100, 250)})
	c.Update([]*tracker.Track{at(1, 300, 250)})
	counts := c.Update([]*tracker.Track{at(1, 100, 250)})

	if counts.In != 0 || counts.Out() != 0 {
		t.Errorf("transitions involving no zone must not count, got %+v", counts)
	}
}

func TestRepeatCrossingCounts(t *testing.T) {
	c := NewCounter(testZones(t))

	// first entry
	c.Update([]*tracker.Track{at(1, 360, 250)})
	counts := c.Update([]*tracker.Track{at(1, 300, 250)})

	if counts.In != 1 {
		t.Fatalf("expected in=1, got %+v", counts)
	}

	// retreat to the exit zone clears the counted flag, settle there
	c.Update([]*tracker.Track{at(1, 360, 250)})
	c.Update([]*tracker.Track{at(1, 360, 250)})

	// second distinct entry counts again
	counts = c.Update([]*tracker.Track{at(1, 300, 250)})

	if counts.In != 2 {
		t.Errorf("expected in=2 after a second crossing, got %+v", counts)
	}
}

func TestIndependentTracks(t *testing.T) {
	c := NewCounter(testZones(t))

	c.Update([]*tracker.Track{at(1, 360, 200), at(2, 300, 350)})
	counts := c.Update([]*tracker.Track{at(1, 300, 200), at(2, 240, 350)})

	if counts.In != 1 || counts.OutRight != 1 {
		t.Errorf("expected one entry and one right exit, got %+v", counts)
	}
}

func TestStatePrunedForDeadTracks(t *testing.T) {
	c := NewCounter(testZones(t))

	c.Update([]*tracker.Track{at(1, 360, 250)})
	c.Update(nil)

	if len(c.state) != 0 {
		t.Errorf("expected state for vanished tracks to be dropped, got %d entries", len(c.state))
	}

	// identities are never reused so a fresh id starts clean
	counts := c.Update([]*tracker.Track{at(2, 300, 250)})

	if counts.In != 0 {
		t.Errorf("expected no count for a fresh track in center, got %+v", counts)
	}
}

func TestCountsMonotonic(t *testing.T) {
	c := NewCounter(testZones(t))

	prev := c.Counts()

	// shuttle between zones, totals must never decrease
	positions := []int{360, 300, 360, 240, 300, 240, 360, 300}

	for _, x := range positions {
		counts := c.Update([]*tracker.Track{at(1, x, 250)})

		if counts.In < prev.In || counts.OutLeft < prev.OutLeft || counts.OutRight < prev.OutRight {
			t.Fatalf("counts decreased from %+v to %+v", prev, counts)
		}
		prev = counts
	}
}
