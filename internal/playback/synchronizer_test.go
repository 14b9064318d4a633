package playback

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"codenarrate/internal/drift"
	"codenarrate/internal/timeline"
)

type recorder struct {
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) counts() (highlights, clears int) {
	for _, e := range r.events {
		switch e.(type) {
		case HighlightEvent:
			highlights++
		case ClearEvent:
			clears++
		}
	}
	return highlights, clears
}

func testTrack() timeline.Track {
	return timeline.Track{
		Segments: []timeline.Segment{
			{ID: "seg-0", StartMs: 100, EndMs: 500, TokenIDs: []string{"1:0-8"}, Confidence: 0.9, Tier: timeline.TierHigh},
			{ID: "seg-1", StartMs: 500, EndMs: 900, TokenIDs: []string{"1:9-23"}, Confidence: 0.6, Tier: timeline.TierMedium},
		},
		TotalDurationMs: 1000,
	}
}

func newTestSync(opts Options) (*Synchronizer, *recorder) {
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(opts)
	rec := &recorder{}
	s.Subscribe(rec)
	return s, rec
}

func TestUpdateTimeEmitsOncePerSegment(t *testing.T) {
	s, rec := newTestSync(Options{})
	s.Load(testTrack())
	s.Play()
	for _, ms := range []int{120, 200, 300, 400, 440} {
		s.UpdateTime(ms)
	}
	if h, c := rec.counts(); h != 1 || c != 0 {
		t.Fatalf("events = %d highlights, %d clears, want 1, 0", h, c)
	}
	got := rec.events[0].(HighlightEvent)
	if !reflect.DeepEqual(got.TokenIDs, []string{"1:0-8"}) || got.Tier != timeline.TierHigh {
		t.Fatalf("highlight = %+v", got)
	}
}

func TestUpdateTimeClearsPastLastSegment(t *testing.T) {
	s, rec := newTestSync(Options{})
	s.Load(testTrack())
	s.Play()
	s.UpdateTime(800)
	s.UpdateTime(900 + DefaultToleranceMs + 1)
	s.UpdateTime(980)
	if h, c := rec.counts(); h != 1 || c != 1 {
		t.Fatalf("events = %d highlights, %d clears, want 1, 1", h, c)
	}
	if _, ok := rec.events[1].(ClearEvent); !ok {
		t.Fatalf("last event = %#v, want ClearEvent", rec.events[1])
	}
}

func TestUpdateTimeSwitchesSegments(t *testing.T) {
	s, rec := newTestSync(Options{})
	s.Load(testTrack())
	s.Play()
	s.UpdateTime(300)
	s.UpdateTime(700)
	if h, _ := rec.counts(); h != 2 {
		t.Fatalf("highlights = %d, want 2", h)
	}
	if got := rec.events[1].(HighlightEvent).SegmentID; got != "seg-1" {
		t.Fatalf("second highlight = %s, want seg-1", got)
	}
}

func TestUpdateTimeStartsPlaybackImplicitly(t *testing.T) {
	s, rec := newTestSync(Options{})
	s.Load(testTrack())
	if s.UpdateTime(0) {
		t.Fatalf("UpdateTime(0) from Loaded took effect")
	}
	if !s.UpdateTime(200) || s.Status() != Playing {
		t.Fatalf("status = %s, want playing", s.Status())
	}
	if h, _ := rec.counts(); h != 1 {
		t.Fatalf("highlights = %d, want 1", h)
	}
}

func TestInvalidTransitionsAreNoOps(t *testing.T) {
	s, rec := newTestSync(Options{})
	if s.UpdateTime(200) || s.Play() || s.Pause() || s.Seek(10) || s.Stop() {
		t.Fatalf("call before Load took effect")
	}
	if s.Status() != Idle || len(rec.events) != 0 {
		t.Fatalf("status = %s, events = %d", s.Status(), len(rec.events))
	}

	s.Load(testTrack())
	s.Play()
	s.Pause()
	if s.UpdateTime(300) {
		t.Fatalf("UpdateTime while paused took effect")
	}
	if len(rec.events) != 0 {
		t.Fatalf("events while paused = %d", len(rec.events))
	}
}

func TestSeekAlwaysReemits(t *testing.T) {
	s, rec := newTestSync(Options{})
	s.Load(testTrack())
	s.Play()
	s.UpdateTime(200)
	s.Seek(300)
	s.Seek(950 + DefaultToleranceMs)
	s.Seek(960 + DefaultToleranceMs)
	if h, c := rec.counts(); h != 2 || c != 2 {
		t.Fatalf("events = %d highlights, %d clears, want 2, 2", h, c)
	}
	if s.Status() != Playing {
		t.Fatalf("status = %s, want playing", s.Status())
	}
}

func TestStopClearsAndRewinds(t *testing.T) {
	s, rec := newTestSync(Options{})
	s.Load(testTrack())
	s.UpdateTime(200)
	s.Stop()
	if h, c := rec.counts(); h != 1 || c != 1 {
		t.Fatalf("events = %d highlights, %d clears, want 1, 1", h, c)
	}
	st := s.State()
	if st.Status != "stopped" || st.CurrentMs != 0 || st.Active != nil {
		t.Fatalf("state = %+v", st)
	}
	if !s.Play() {
		t.Fatalf("Play after Stop refused")
	}
}

func TestUnsubscribe(t *testing.T) {
	s := New(Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec)
	var fn []Event
	s.Subscribe(ObserverFunc(func(e Event) { fn = append(fn, e) }))
	unsubscribe()

	s.Load(testTrack())
	s.UpdateTime(200)
	if len(rec.events) != 0 || len(fn) != 1 {
		t.Fatalf("events = %d unsubscribed, %d subscribed", len(rec.events), len(fn))
	}
}

func TestLoadCopiesTrack(t *testing.T) {
	s, _ := newTestSync(Options{})
	track := testTrack()
	id := s.Load(track)
	track.Segments[0].TokenIDs[0] = "mutated"
	if got := s.Track().Segments[0].TokenIDs[0]; got != "1:0-8" {
		t.Fatalf("loaded track changed to %q", got)
	}
	if id == "" || s.Load(track) == id {
		t.Fatalf("session ids not unique")
	}
}

func TestState(t *testing.T) {
	s, _ := newTestSync(Options{})
	s.Load(testTrack())
	s.UpdateTime(250)
	st := s.State()
	if !st.Playing || st.Active == nil || st.Active.ID != "seg-0" {
		t.Fatalf("state = %+v", st)
	}
	if st.Next == nil || st.Next.ID != "seg-1" {
		t.Fatalf("next = %+v", st.Next)
	}
	if st.Progress != 0.25 {
		t.Fatalf("progress = %v, want 0.25", st.Progress)
	}
}

func TestCalibratorCorrectsLookup(t *testing.T) {
	cal := drift.New(drift.DefaultOptions())
	s, rec := newTestSync(Options{Calibrator: cal})
	s.Load(testTrack())
	for i := 0; i < 5; i++ {
		cal.Record(float64(400+i), float64(i))
	}
	// reported 1002 lands at 602 on the planned schedule
	s.UpdateTime(1002)
	if h, _ := rec.counts(); h != 1 {
		t.Fatalf("highlights = %d, want 1", h)
	}
	if got := rec.events[0].(HighlightEvent).SegmentID; got != "seg-1" {
		t.Fatalf("highlight = %s, want seg-1", got)
	}
}
