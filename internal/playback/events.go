package playback

import "codenarrate/internal/timeline"

// Event is either a HighlightEvent or a ClearEvent.
type Event interface {
	event()
}

type HighlightEvent struct {
	SegmentID  string        `json:"segmentId"`
	TokenIDs   []string      `json:"tokenIds"`
	Tier       timeline.Tier `json:"tier"`
	Confidence float64       `json:"confidence"`
}

type ClearEvent struct{}

func (HighlightEvent) event() {}
func (ClearEvent) event()     {}

type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) {
	f(e)
}

type subscription struct {
	id  int
	obs Observer
}
