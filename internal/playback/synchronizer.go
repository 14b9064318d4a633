// Package playback drives highlight events from a live playback position.
package playback

import (
	"log/slog"
	"slices"

	"github.com/brunoga/deep"
	"github.com/google/uuid"

	"codenarrate/internal/drift"
	"codenarrate/internal/timeline"
)

const DefaultToleranceMs = 50

type Status int

const (
	Idle Status = iota
	Loaded
	Playing
	Paused
	Stopped
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loaded:
		return "loaded"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Options struct {
	// ToleranceMs widens every segment on both edges when looking up the
	// active one.
	ToleranceMs int
	// Calibrator, when set, corrects reported times before lookup and is
	// reset with each new session.
	Calibrator *drift.Calibrator
	Logger     *slog.Logger
}

// PlaybackState is a snapshot for status displays.
type PlaybackState struct {
	SessionID string            `json:"sessionId"`
	Status    string            `json:"status"`
	Playing   bool              `json:"playing"`
	CurrentMs int               `json:"currentMs"`
	Active    *timeline.Segment `json:"active,omitempty"`
	Next      *timeline.Segment `json:"next,omitempty"`
	Progress  float64           `json:"progress"`
}

// Synchronizer maps playback time onto a Track and notifies observers when
// the highlighted token set changes. Calls must be serialized by the caller.
type Synchronizer struct {
	opts   Options
	logger *slog.Logger

	status    Status
	track     timeline.Track
	sessionID string
	currentMs int

	active    bool
	activeSeg timeline.Segment

	subs   []subscription
	nextID int
}

func New(opts Options) *Synchronizer {
	if opts.ToleranceMs <= 0 {
		opts.ToleranceMs = DefaultToleranceMs
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{opts: opts, logger: logger}
}

// Subscribe registers obs and returns the function that removes it.
func (s *Synchronizer) Subscribe(obs Observer) (unsubscribe func()) {
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, obs: obs})
	return func() {
		s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool {
			return sub.id == id
		})
	}
}

// Load installs a private copy of track and starts a new session.
func (s *Synchronizer) Load(track timeline.Track) string {
	s.clear()
	s.track = deep.MustCopy(track)
	s.sessionID = uuid.NewString()
	s.status = Loaded
	s.currentMs = 0
	if s.opts.Calibrator != nil {
		s.opts.Calibrator.Reset()
	}
	s.logger.Debug("track loaded", "session", s.sessionID, "segments", len(s.track.Segments))
	return s.sessionID
}

func (s *Synchronizer) Play() bool {
	switch s.status {
	case Loaded, Paused, Stopped:
		s.status = Playing
		return true
	default:
		s.invalid("play")
		return false
	}
}

func (s *Synchronizer) Pause() bool {
	if s.status != Playing {
		s.invalid("pause")
		return false
	}
	s.status = Paused
	return true
}

// Stop rewinds to zero and clears any highlight. The track is retained.
func (s *Synchronizer) Stop() bool {
	if s.status == Idle {
		s.invalid("stop")
		return false
	}
	s.status = Stopped
	s.currentMs = 0
	s.clear()
	if s.opts.Calibrator != nil {
		s.opts.Calibrator.Reset()
	}
	return true
}

// Seek jumps to timeMs without changing state and always re-emits the
// highlight for the new position.
func (s *Synchronizer) Seek(timeMs int) bool {
	if s.status == Idle {
		s.invalid("seek")
		return false
	}
	s.currentMs = max(timeMs, 0)
	s.update(true)
	return true
}

// UpdateTime advances playback to timeMs. The first nonzero time after a
// load starts playback implicitly.
func (s *Synchronizer) UpdateTime(timeMs int) bool {
	if s.status == Loaded && timeMs > 0 {
		s.status = Playing
	}
	if s.status != Playing {
		s.invalid("updateTime")
		return false
	}
	s.currentMs = max(timeMs, 0)
	s.update(false)
	return true
}

func (s *Synchronizer) update(force bool) {
	lookup := s.currentMs
	if c := s.opts.Calibrator; c != nil {
		lookup = int(c.Correct(float64(lookup)))
	}

	seg, ok := s.track.SegmentAt(lookup, s.opts.ToleranceMs)
	if !ok {
		if s.active || force {
			s.active = false
			s.activeSeg = timeline.Segment{}
			s.emit(ClearEvent{})
		}
		return
	}

	if !force && s.active && seg.SameTokens(s.activeSeg) {
		s.activeSeg = seg
		return
	}
	s.active = true
	s.activeSeg = seg
	s.emit(HighlightEvent{
		SegmentID:  seg.ID,
		TokenIDs:   slices.Clone(seg.TokenIDs),
		Tier:       seg.Tier,
		Confidence: seg.Confidence,
	})
}

func (s *Synchronizer) clear() {
	if !s.active {
		return
	}
	s.active = false
	s.activeSeg = timeline.Segment{}
	s.emit(ClearEvent{})
}

func (s *Synchronizer) emit(e Event) {
	for _, sub := range slices.Clone(s.subs) {
		sub.obs.Notify(e)
	}
}

func (s *Synchronizer) invalid(op string) {
	s.logger.Debug("ignored playback call", "op", op, "status", s.status.String())
}

func (s *Synchronizer) Status() Status {
	return s.status
}

func (s *Synchronizer) SessionID() string {
	return s.sessionID
}

func (s *Synchronizer) Track() timeline.Track {
	return s.track
}

func (s *Synchronizer) State() PlaybackState {
	st := PlaybackState{
		SessionID: s.sessionID,
		Status:    s.status.String(),
		Playing:   s.status == Playing,
		CurrentMs: s.currentMs,
	}
	if s.active {
		seg := s.activeSeg
		st.Active = &seg
	}
	if next, ok := s.track.NextAfter(s.currentMs); ok {
		st.Next = &next
	}
	if s.track.TotalDurationMs > 0 {
		st.Progress = min(max(float64(s.currentMs)/float64(s.track.TotalDurationMs), 0), 1)
	}
	return st
}

func (s *Synchronizer) SegmentAt(timeMs int) (timeline.Segment, bool) {
	return s.track.SegmentAt(timeMs, s.opts.ToleranceMs)
}

func (s *Synchronizer) SegmentsInRange(fromMs, toMs int) []timeline.Segment {
	return s.track.SegmentsInRange(fromMs, toMs)
}

func (s *Synchronizer) Stats() timeline.Stats {
	return s.track.Stats()
}
