package wsbridge

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"codenarrate/internal/drift"
	"codenarrate/internal/timeline"
	"codenarrate/internal/tokenizer"
)

func testTrack() timeline.Track {
	return timeline.Track{
		Segments: []timeline.Segment{
			{ID: "seg-0", StartMs: 100, EndMs: 500, TokenIDs: []string{"1:0-8"}, Confidence: 0.9, Tier: timeline.TierHigh},
		},
		TotalDurationMs:   1000,
		OverallConfidence: 0.9,
	}
}

func testOptions(signalsPerSecond float64) Options {
	return Options{
		Track:            testTrack(),
		SignalsPerSecond: signalsPerSecond,
		Drift:            drift.DefaultOptions(),
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func startServer(t *testing.T, signalsPerSecond float64) (*Server, *websocket.Conn) {
	t.Helper()
	return startServerWith(t, testOptions(signalsPerSecond))
}

func listen(t *testing.T, opts Options) (*Server, string) {
	t.Helper()
	s := NewServer(opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func startServerWith(t *testing.T, opts Options) (*Server, *websocket.Conn) {
	t.Helper()
	s, url := listen(t, opts)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	loaded := read(t, conn)
	if loaded.Type != TypeLoaded || loaded.SessionID == "" || loaded.Track == nil {
		t.Fatalf("first message = %+v, want loaded", loaded)
	}
	return s, conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func write(t *testing.T, conn *websocket.Conn, msg Message) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func TestTimeSignalsDriveEvents(t *testing.T) {
	_, conn := startServer(t, 100)

	write(t, conn, Message{Type: TypeTime, TimeMs: 200})
	got := read(t, conn)
	if got.Type != TypeHighlight || got.SegmentID != "seg-0" || got.Tier != timeline.TierHigh {
		t.Fatalf("message = %+v, want highlight of seg-0", got)
	}

	// same segment: nothing is sent, so the next message is the state reply
	write(t, conn, Message{Type: TypeTime, TimeMs: 300})
	write(t, conn, Message{Type: TypeState})
	if got := read(t, conn); got.Type != TypeState || got.State == nil || got.State.CurrentMs != 300 {
		t.Fatalf("message = %+v, want state at 300", got)
	}

	write(t, conn, Message{Type: TypeTime, TimeMs: 800})
	if got := read(t, conn); got.Type != TypeClear {
		t.Fatalf("message = %+v, want clear", got)
	}
}

func TestTimeSignalsAreRateLimited(t *testing.T) {
	_, conn := startServer(t, 1)

	write(t, conn, Message{Type: TypeTime, TimeMs: 200})
	if got := read(t, conn); got.Type != TypeHighlight {
		t.Fatalf("message = %+v, want highlight", got)
	}

	write(t, conn, Message{Type: TypeTime, TimeMs: 900})
	write(t, conn, Message{Type: TypeState})
	got := read(t, conn)
	if got.Type != TypeState || got.State.CurrentMs != 200 {
		t.Fatalf("message = %+v, want state still at 200", got)
	}
}

func TestCalibrationReported(t *testing.T) {
	_, conn := startServer(t, 100)

	write(t, conn, Message{Type: TypeTime, TimeMs: 250, ExpectedMs: 200})
	got := read(t, conn)
	if got.Type != TypeCalibration || got.Calibration == nil || got.Calibration.CurrentOffsetMs != 50 {
		t.Fatalf("message = %+v, want calibration with offset 50", got)
	}
	if got := read(t, conn); got.Type != TypeHighlight {
		t.Fatalf("message = %+v, want highlight", got)
	}
}

func TestUnknownMessageType(t *testing.T) {
	_, conn := startServer(t, 100)
	write(t, conn, Message{Type: "rewind"})
	if got := read(t, conn); got.Type != TypeError || !strings.Contains(got.Error, "rewind") {
		t.Fatalf("message = %+v, want error", got)
	}
}

func TestSessionsTracked(t *testing.T) {
	s, conn := startServer(t, 100)
	if n := s.Sessions(); n != 1 {
		t.Fatalf("Sessions = %d, want 1", n)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Sessions() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not released after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLoadBuildsNewSession(t *testing.T) {
	opts := testOptions(100)
	opts.Cache = tokenizer.NewCache(4)
	_, conn := startServerWith(t, opts)

	load := Message{
		Type:        TypeLoad,
		Code:        "let total = 0;",
		Lang:        "javascript",
		Explanation: "total",
		Timings:     []timeline.WordTiming{{Word: "total", StartMs: 0, EndMs: 300}},
	}
	write(t, conn, load)
	first := read(t, conn)
	if first.Type != TypeLoaded || first.Track == nil || len(first.Track.Segments) != 1 || len(first.Tokens) == 0 {
		t.Fatalf("message = %+v, want loaded track with one segment", first)
	}

	write(t, conn, Message{Type: TypeTime, TimeMs: 100})
	got := read(t, conn)
	if got.Type != TypeHighlight || got.SessionID != first.SessionID || got.SegmentID != "seg-0" {
		t.Fatalf("message = %+v, want highlight in session %s", got, first.SessionID)
	}

	write(t, conn, load)
	if got := read(t, conn); got.Type != TypeClear {
		t.Fatalf("message = %+v, want clear before reload", got)
	}
	second := read(t, conn)
	if second.Type != TypeLoaded || second.SessionID == first.SessionID {
		t.Fatalf("message = %+v, want loaded with a new session", second)
	}
	if hits, misses := opts.Cache.Stats(); hits != 1 || misses != 1 {
		t.Fatalf("cache Stats() = %d hits, %d misses, want 1, 1", hits, misses)
	}
}

func TestLoadRejectsEmptyCode(t *testing.T) {
	_, conn := startServer(t, 100)
	write(t, conn, Message{Type: TypeLoad, Explanation: "total"})
	if got := read(t, conn); got.Type != TypeError || !strings.Contains(got.Error, "empty code") {
		t.Fatalf("message = %+v, want error", got)
	}
}

func TestOriginCheck(t *testing.T) {
	opts := testOptions(100)
	opts.AllowedOrigins = []string{"http://localhost:3000"}
	_, url := listen(t, opts)

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{name: "no origin", origin: "", ok: true},
		{name: "allowed", origin: "http://localhost:3000", ok: true},
		{name: "foreign", origin: "https://evil.example.com", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			header := http.Header{}
			if tc.origin != "" {
				header.Set("Origin", tc.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if conn != nil {
				conn.Close()
			}
			if tc.ok && err != nil {
				t.Fatalf("Dial with origin %q: %v", tc.origin, err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatalf("Dial with origin %q succeeded", tc.origin)
				}
				if resp == nil || resp.StatusCode != http.StatusForbidden {
					t.Fatalf("response = %v, want 403", resp)
				}
			}
		})
	}
}

func TestOriginCheckAcceptsSameHost(t *testing.T) {
	s := NewServer(testOptions(100))
	r := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:8787/ws", nil)
	r.Header.Set("Origin", "http://127.0.0.1:8787")
	if !s.checkOrigin(r) {
		t.Fatalf("same-host origin rejected")
	}
}
