package timeline

// WordTiming is the audio span of one spoken word.
type WordTiming struct {
	Word    string `json:"word" msgpack:"word"`
	StartMs int    `json:"startMs" msgpack:"startMs"`
	EndMs   int    `json:"endMs" msgpack:"endMs"`
}

type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// TierFor buckets a confidence for presentation.
func TierFor(confidence float64) Tier {
	switch {
	case confidence >= 0.8:
		return TierHigh
	case confidence >= 0.5:
		return TierMedium
	default:
		return TierLow
	}
}

type Segment struct {
	ID         string   `json:"id" msgpack:"id"`
	StartMs    int      `json:"startMs" msgpack:"startMs"`
	EndMs      int      `json:"endMs" msgpack:"endMs"`
	TokenIDs   []string `json:"tokenIds" msgpack:"tokenIds"`
	Confidence float64  `json:"confidence" msgpack:"confidence"`
	Tier       Tier     `json:"tier" msgpack:"tier"`
}

func (s Segment) DurationMs() int {
	return s.EndMs - s.StartMs
}

func (s Segment) SameTokens(other Segment) bool {
	if len(s.TokenIDs) != len(other.TokenIDs) {
		return false
	}
	for i := range s.TokenIDs {
		if s.TokenIDs[i] != other.TokenIDs[i] {
			return false
		}
	}
	return true
}

// Track is the complete highlight schedule of one explanation. Segments are
// ordered and never overlap; time not covered by a segment has no highlight.
type Track struct {
	Segments          []Segment `json:"segments" msgpack:"segments"`
	TotalDurationMs   int       `json:"totalDurationMs" msgpack:"totalDurationMs"`
	OverallConfidence float64   `json:"overallConfidence" msgpack:"overallConfidence"`
}

func (t Track) Empty() bool {
	return len(t.Segments) == 0
}
