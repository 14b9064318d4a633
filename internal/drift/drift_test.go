package drift

import (
	"math"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newTestCalibrator() (*Calibrator, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	opts := DefaultOptions()
	opts.Now = clock.Now
	return New(opts), clock
}

func TestConstantOffsetConverges(t *testing.T) {
	c, clock := newTestCalibrator()
	for i := 0; i < 10; i++ {
		expected := float64(i * 250)
		c.Record(expected+120, expected)
		clock.Advance(250 * time.Millisecond)
	}

	cal := c.Calibration()
	if math.Abs(cal.CurrentOffsetMs-120) > 5 {
		t.Fatalf("CurrentOffsetMs = %v, want ~120", cal.CurrentOffsetMs)
	}
	if cal.Confidence <= 0.8 {
		t.Fatalf("Confidence = %v, want > 0.8", cal.Confidence)
	}
	if math.Abs(cal.DriftRateMsPerSec) > 1e-9 {
		t.Fatalf("DriftRateMsPerSec = %v, want 0", cal.DriftRateMsPerSec)
	}
}

func TestFewSamplesClampConfidence(t *testing.T) {
	c, _ := newTestCalibrator()
	cal := c.Record(100, 0)
	if cal.Confidence != underflowConfidence {
		t.Fatalf("Confidence = %v, want %v", cal.Confidence, underflowConfidence)
	}
	if got := c.Adjust(1000); got != 1070 {
		t.Fatalf("Adjust = %v, want 1070", got)
	}
}

func TestNoisySamplesLowerConfidence(t *testing.T) {
	c, _ := newTestCalibrator()
	for i := 0; i < 10; i++ {
		off := 0.0
		if i%2 == 0 {
			off = 300
		}
		c.Record(off, 0)
	}
	cal := c.Calibration()
	if cal.Confidence != 0 {
		t.Fatalf("Confidence = %v, want 0", cal.Confidence)
	}
	if got := c.Adjust(0); got != 0.3*cal.CurrentOffsetMs {
		t.Fatalf("Adjust = %v, want %v", got, 0.3*cal.CurrentOffsetMs)
	}
}

func TestWindowAndHistoryBounds(t *testing.T) {
	c, _ := newTestCalibrator()
	for i := 0; i < 60; i++ {
		off := 0.0
		if i >= 50 {
			off = 200
		}
		c.Record(off, 0)
	}
	cal := c.Calibration()
	if cal.Samples != DefaultHistory {
		t.Fatalf("Samples = %d, want %d", cal.Samples, DefaultHistory)
	}
	if cal.CurrentOffsetMs != 200 {
		t.Fatalf("CurrentOffsetMs = %v, want 200", cal.CurrentOffsetMs)
	}
	if want := 200.0 * 10 / 50; math.Abs(cal.AverageOffsetMs-want) > 1e-9 {
		t.Fatalf("AverageOffsetMs = %v, want %v", cal.AverageOffsetMs, want)
	}
}

func TestDriftRateAndPredict(t *testing.T) {
	c, clock := newTestCalibrator()
	// offset grows by 10ms every second
	for i := 0; i < 10; i++ {
		c.Record(float64(i*1000+i*10), float64(i*1000))
		clock.Advance(time.Second)
	}
	cal := c.Calibration()
	if math.Abs(cal.DriftRateMsPerSec-10) > 1e-6 {
		t.Fatalf("DriftRateMsPerSec = %v, want 10", cal.DriftRateMsPerSec)
	}

	got := c.Predict(12000, 10000)
	want := 12000 + cal.CurrentOffsetMs + 10*2
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("Predict = %v, want %v", got, want)
	}
}

func TestCorrectInvertsAdjust(t *testing.T) {
	c, _ := newTestCalibrator()
	for i := 0; i < 5; i++ {
		c.Record(150, 100)
	}
	if got := c.Correct(c.Adjust(800)); math.Abs(got-800) > 1e-9 {
		t.Fatalf("Correct(Adjust(800)) = %v", got)
	}
}

func TestReset(t *testing.T) {
	c, _ := newTestCalibrator()
	c.Record(500, 0)
	c.Reset()
	if cal := c.Calibration(); cal != (Calibration{}) {
		t.Fatalf("after Reset = %+v", cal)
	}
	if got := c.Adjust(100); got != 100 {
		t.Fatalf("Adjust after Reset = %v, want 100", got)
	}
}
