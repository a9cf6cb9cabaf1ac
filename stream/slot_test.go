package stream

import (
	"testing"
	"time"

	"gocv.io/x/gocv"

	"doorcount/counter"
)

func testFrame(t *testing.T, fill uint8) gocv.Mat {
	t.Helper()

	m := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	m.SetTo(gocv.NewScalar(float64(fill), float64(fill), float64(fill), 0))

	return m
}

func TestSlotPublishAndRead(t *testing.T) {
	s := NewSlot()
	defer s.Close()

	frame := testFrame(t, 100)
	defer frame.Close()

	s.Publish(frame, counter.Counts{In: 2})

	got, ok := s.Frame()
	if !ok {
		t.Fatal("expected a frame")
	}
	defer got.Close()

	if got.Rows() != 48 || got.Cols() != 64 {
		t.Errorf("expected 64x48 frame, got %dx%d", got.Cols(), got.Rows())
	}

	if counts := s.Counts(); counts.In != 2 {
		t.Errorf("expected counts snapshot in=2, got %+v", counts)
	}
}

func TestSlotReadIsACopy(t *testing.T) {
	s := NewSlot()
	defer s.Close()

	frame := testFrame(t, 100)
	defer frame.Close()

	s.Publish(frame, counter.Counts{})

	got, _ := s.Frame()
	defer got.Close()

	// overwriting the slot must not touch the copy already handed out
	next := testFrame(t, 200)
	defer next.Close()
	s.Publish(next, counter.Counts{})

	if v := got.GetUCharAt(0, 0); v != 100 {
		t.Errorf("reader copy mutated, pixel value %d", v)
	}
}

func TestSlotOnlyLatestKept(t *testing.T) {
	s := NewSlot()
	defer s.Close()

	for i := 0; i < 5; i++ {
		frame := testFrame(t, uint8(50+i*10))
		s.Publish(frame, counter.Counts{In: i})
		frame.Close()
	}

	got, _ := s.Frame()
	defer got.Close()

	if v := got.GetUCharAt(0, 0); v != 90 {
		t.Errorf("expected latest frame pixel 90, got %d", v)
	}

	if counts := s.Counts(); counts.In != 4 {
		t.Errorf("expected latest counts, got %+v", counts)
	}
}

func TestSlotFrameBlocksUntilPublish(t *testing.T) {
	s := NewSlot()
	defer s.Close()

	done := make(chan bool)

	go func() {
		_, ok := s.Frame()
		done <- ok
	}()

	select {
	case <-done:
		t.Fatal("Frame returned before any publish")
	case <-time.After(50 * time.Millisecond):
	}

	frame := testFrame(t, 100)
	defer frame.Close()
	s.Publish(frame, counter.Counts{})

	select {
	case ok := <-done:
		if !ok {
			t.Error("expected ok after publish")
		}
	case <-time.After(time.Second):
		t.Fatal("Frame still blocked after publish")
	}
}

func TestSlotCloseUnblocksReaders(t *testing.T) {
	s := NewSlot()

	done := make(chan bool)

	go func() {
		_, ok := s.Frame()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	s.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected ok=false from a closed slot")
		}
	case <-time.After(time.Second):
		t.Fatal("Frame still blocked after close")
	}
}
