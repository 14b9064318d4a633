// Package drift estimates the skew between the clock that reports playback
// position and the clock the highlight schedule was planned against.
package drift

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	DefaultHistory = 50
	DefaultWindow  = 10
	// DefaultMinSamples is how many samples are needed before the spread
	// of the window is trusted.
	DefaultMinSamples = 3

	underflowConfidence = 0.3
	spreadScaleMs       = 100.0
)

// Calibration is the current estimate. Offsets are actual minus expected.
type Calibration struct {
	CurrentOffsetMs   float64 `json:"currentOffsetMs"`
	AverageOffsetMs   float64 `json:"averageOffsetMs"`
	Confidence        float64 `json:"confidence"`
	DriftRateMsPerSec float64 `json:"driftRateMsPerSec"`
	Samples           int     `json:"samples"`
}

type Options struct {
	History    int
	Window     int
	MinSamples int
	// Now stamps samples recorded without an explicit time.
	Now func() time.Time
}

func DefaultOptions() Options {
	return Options{
		History:    DefaultHistory,
		Window:     DefaultWindow,
		MinSamples: DefaultMinSamples,
		Now:        time.Now,
	}
}

type sample struct {
	offset float64
	at     time.Time
}

// Calibrator keeps a bounded history of offset samples. It is not safe for
// concurrent use.
type Calibrator struct {
	opts    Options
	samples []sample
	cal     Calibration
}

func New(opts Options) *Calibrator {
	d := DefaultOptions()
	if opts.History <= 0 {
		opts.History = d.History
	}
	if opts.Window <= 0 {
		opts.Window = d.Window
	}
	opts.Window = min(opts.Window, opts.History)
	if opts.MinSamples <= 0 {
		opts.MinSamples = d.MinSamples
	}
	if opts.Now == nil {
		opts.Now = d.Now
	}
	return &Calibrator{opts: opts, samples: make([]sample, 0, opts.History)}
}

// Record adds one observation stamped with the current time.
func (c *Calibrator) Record(actualMs, expectedMs float64) Calibration {
	return c.RecordAt(actualMs, expectedMs, c.opts.Now())
}

func (c *Calibrator) RecordAt(actualMs, expectedMs float64, at time.Time) Calibration {
	if math.IsNaN(actualMs) || math.IsNaN(expectedMs) {
		return c.cal
	}
	if len(c.samples) == c.opts.History {
		copy(c.samples, c.samples[1:])
		c.samples = c.samples[:len(c.samples)-1]
	}
	c.samples = append(c.samples, sample{offset: actualMs - expectedMs, at: at})
	c.recompute()
	return c.cal
}

func (c *Calibrator) recompute() {
	all := offsets(c.samples)
	window := all[max(0, len(all)-c.opts.Window):]

	c.cal = Calibration{
		CurrentOffsetMs: stat.Mean(window, nil),
		AverageOffsetMs: stat.Mean(all, nil),
		Samples:         len(all),
	}

	if len(window) < c.opts.MinSamples {
		c.cal.Confidence = underflowConfidence
	} else {
		c.cal.Confidence = max(0, 1-stat.StdDev(window, nil)/spreadScaleMs)
	}

	c.cal.DriftRateMsPerSec = c.driftRate()
}

// driftRate compares the mean offset of the older half of the history with
// the newer half over the time between their mean timestamps.
func (c *Calibrator) driftRate() float64 {
	if len(c.samples) < 2 {
		return 0
	}
	half := len(c.samples) / 2
	older, newer := c.samples[:half], c.samples[half:]

	base := c.samples[0].at
	seconds := func(ss []sample) []float64 {
		out := make([]float64, len(ss))
		for i, s := range ss {
			out[i] = s.at.Sub(base).Seconds()
		}
		return out
	}

	dt := stat.Mean(seconds(newer), nil) - stat.Mean(seconds(older), nil)
	if dt <= 0 {
		return 0
	}
	return (stat.Mean(offsets(newer), nil) - stat.Mean(offsets(older), nil)) / dt
}

func (c *Calibrator) Calibration() Calibration {
	return c.cal
}

// Adjust maps a planned time onto the reporting clock. Only part of the
// offset is applied while confidence is low.
func (c *Calibrator) Adjust(plannedMs float64) float64 {
	return plannedMs + c.cal.CurrentOffsetMs*blend(c.cal.Confidence)
}

// Correct is the inverse of Adjust: it maps a reported time back onto the
// planned schedule.
func (c *Calibrator) Correct(actualMs float64) float64 {
	return actualMs - c.cal.CurrentOffsetMs*blend(c.cal.Confidence)
}

// Predict extrapolates where plannedMs will land on the reporting clock,
// given that the reporting clock currently reads nowActualMs.
func (c *Calibrator) Predict(plannedMs, nowActualMs float64) float64 {
	secondsAhead := (plannedMs - nowActualMs) / 1000
	return plannedMs + c.cal.CurrentOffsetMs + c.cal.DriftRateMsPerSec*secondsAhead
}

// Reset forgets every sample; called when a playback session ends.
func (c *Calibrator) Reset() {
	c.samples = c.samples[:0]
	c.cal = Calibration{}
}

func blend(confidence float64) float64 {
	switch {
	case confidence < 0.3:
		return 0.3
	case confidence < 0.7:
		return 0.7
	default:
		return 1
	}
}

func offsets(ss []sample) []float64 {
	out := make([]float64, len(ss))
	for i, s := range ss {
		out[i] = s.offset
	}
	return out
}
