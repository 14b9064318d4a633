package timeline

import "sort"

// SegmentAt returns the segment active at timeMs, allowing toleranceMs of
// slack on either edge. When the slack makes two segments eligible the more
// confident one wins, then the earlier one.
func (t Track) SegmentAt(timeMs int, toleranceMs int) (Segment, bool) {
	toleranceMs = max(toleranceMs, 0)
	i := sort.Search(len(t.Segments), func(i int) bool {
		return t.Segments[i].EndMs+toleranceMs >= timeMs
	})

	best, found := Segment{}, false
	for ; i < len(t.Segments); i++ {
		s := t.Segments[i]
		if s.StartMs-toleranceMs > timeMs {
			break
		}
		if !found || s.Confidence > best.Confidence {
			best, found = s, true
		}
	}
	return best, found
}

// SegmentsInRange returns the segments that intersect [fromMs, toMs].
func (t Track) SegmentsInRange(fromMs int, toMs int) []Segment {
	if toMs < fromMs {
		fromMs, toMs = toMs, fromMs
	}
	var out []Segment
	for _, s := range t.Segments {
		if s.StartMs > toMs {
			break
		}
		if s.EndMs >= fromMs {
			out = append(out, s)
		}
	}
	return out
}

// NextAfter returns the first segment starting after timeMs.
func (t Track) NextAfter(timeMs int) (Segment, bool) {
	i := sort.Search(len(t.Segments), func(i int) bool {
		return t.Segments[i].StartMs > timeMs
	})
	if i == len(t.Segments) {
		return Segment{}, false
	}
	return t.Segments[i], true
}

type Stats struct {
	SegmentCount      int     `json:"segmentCount"`
	CoveredMs         int     `json:"coveredMs"`
	Coverage          float64 `json:"coverage"`
	High              int     `json:"high"`
	Medium            int     `json:"medium"`
	Low               int     `json:"low"`
	AverageDurationMs float64 `json:"averageDurationMs"`
}

func (t Track) Stats() Stats {
	st := Stats{SegmentCount: len(t.Segments)}
	for _, s := range t.Segments {
		st.CoveredMs += s.DurationMs()
		switch TierFor(s.Confidence) {
		case TierHigh:
			st.High++
		case TierMedium:
			st.Medium++
		default:
			st.Low++
		}
	}
	if t.TotalDurationMs > 0 {
		st.Coverage = float64(st.CoveredMs) / float64(t.TotalDurationMs)
	}
	if st.SegmentCount > 0 {
		st.AverageDurationMs = float64(st.CoveredMs) / float64(st.SegmentCount)
	}
	return st
}
