package wsbridge

import (
	"codenarrate/internal/drift"
	"codenarrate/internal/playback"
	"codenarrate/internal/timeline"
	"codenarrate/internal/tokenizer"
)

// Client to server.
const (
	TypePlay  = "play"
	TypePause = "pause"
	TypeStop  = "stop"
	TypeSeek  = "seek"
	TypeTime  = "time"
	TypeState = "state"
	// TypeLoad replaces the session's track with one built from the
	// message's code and explanation.
	TypeLoad = "load"
)

// Server to client.
const (
	TypeLoaded      = "loaded"
	TypeHighlight   = "highlight"
	TypeClear       = "clear"
	TypeCalibration = "calibration"
	TypeError       = "error"
)

type Message struct {
	Type string `json:"type"`

	TimeMs int `json:"timeMs,omitempty"`
	// ExpectedMs is where the client's scheduler thought playback should
	// be when TimeMs was read; when set it feeds drift calibration.
	ExpectedMs float64 `json:"expectedMs,omitempty"`

	SessionID  string        `json:"sessionId,omitempty"`
	SegmentID  string        `json:"segmentId,omitempty"`
	TokenIDs   []string      `json:"tokenIds,omitempty"`
	Tier       timeline.Tier `json:"tier,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`

	Code        string                `json:"code,omitempty"`
	Lang        string                `json:"lang,omitempty"`
	Explanation string                `json:"explanation,omitempty"`
	Timings     []timeline.WordTiming `json:"timings,omitempty"`

	Tokens      []tokenizer.Token       `json:"tokens,omitempty"`
	Track       *timeline.Track         `json:"track,omitempty"`
	State       *playback.PlaybackState `json:"state,omitempty"`
	Calibration *drift.Calibration      `json:"calibration,omitempty"`

	Error string `json:"error,omitempty"`
}
