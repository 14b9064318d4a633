package wsbridge

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"codenarrate/internal/drift"
	"codenarrate/internal/lang"
	"codenarrate/internal/playback"
	"codenarrate/internal/timeline"
)

// client is one connection. Its synchronizer is only touched from the
// connection's read loop, so observer callbacks write from that goroutine
// too. id names the connection; the playback session changes on every load.
type client struct {
	srv         *Server
	id          string
	conn        *websocket.Conn
	sync        *playback.Synchronizer
	cal         *drift.Calibrator
	limiter     *rate.Limiter
	logger      *slog.Logger
	unsubscribe func()
	writeErr    error
}

func (s *Server) newClient(conn *websocket.Conn) *client {
	cal := drift.New(s.opts.Drift)
	c := &client{
		srv:     s,
		conn:    conn,
		cal:     cal,
		limiter: rate.NewLimiter(rate.Limit(s.opts.SignalsPerSecond), int(math.Ceil(s.opts.SignalsPerSecond))),
		logger:  s.logger,
	}
	c.sync = playback.New(playback.Options{
		ToleranceMs: s.opts.ToleranceMs,
		Calibrator:  cal,
		Logger:      s.logger,
	})
	c.unsubscribe = c.sync.Subscribe(playback.ObserverFunc(c.forward))
	c.id = c.sync.Load(s.opts.Track)
	return c
}

func (c *client) forward(e playback.Event) {
	switch e := e.(type) {
	case playback.HighlightEvent:
		c.writeErr = c.send(Message{
			Type:       TypeHighlight,
			SessionID:  c.sync.SessionID(),
			SegmentID:  e.SegmentID,
			TokenIDs:   e.TokenIDs,
			Tier:       e.Tier,
			Confidence: e.Confidence,
		})
	case playback.ClearEvent:
		c.writeErr = c.send(Message{Type: TypeClear, SessionID: c.sync.SessionID()})
	}
}

func (c *client) send(msg Message) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

// handle applies one client message. A returned error ends the connection.
func (c *client) handle(msg Message) error {
	c.writeErr = nil
	switch msg.Type {
	case TypePlay:
		c.sync.Play()
	case TypePause:
		c.sync.Pause()
	case TypeStop:
		c.sync.Stop()
	case TypeSeek:
		c.sync.Seek(msg.TimeMs)
	case TypeTime:
		if !c.limiter.Allow() {
			c.logger.Debug("time signal dropped", "session", c.sync.SessionID(), "timeMs", msg.TimeMs)
			return nil
		}
		if msg.ExpectedMs > 0 {
			cal := c.cal.Record(float64(msg.TimeMs), msg.ExpectedMs)
			if c.writeErr = c.send(Message{Type: TypeCalibration, SessionID: c.sync.SessionID(), Calibration: &cal}); c.writeErr != nil {
				return c.writeErr
			}
		}
		c.sync.UpdateTime(msg.TimeMs)
	case TypeState:
		st := c.sync.State()
		return c.send(Message{Type: TypeState, SessionID: st.SessionID, State: &st})
	case TypeLoad:
		return c.load(msg)
	default:
		return c.send(Message{Type: TypeError, SessionID: c.sync.SessionID(), Error: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
	return c.writeErr
}

// load builds a track from the message and starts a new session with it.
// Timings are estimated when the message carries none.
func (c *client) load(msg Message) error {
	if strings.TrimSpace(msg.Code) == "" {
		return c.send(Message{Type: TypeError, SessionID: c.sync.SessionID(), Error: "load: empty code"})
	}

	id := lang.Normalize(msg.Lang)
	tokens := c.srv.opts.Cache.TokenizeLang(msg.Code, id)
	timings := msg.Timings
	if len(timings) == 0 {
		timings = timeline.EstimateTimings(msg.Explanation, c.srv.opts.WordDurationMs)
	}
	track := c.srv.builder.Build(msg.Explanation, timings, tokens)

	session := c.sync.Load(track)
	if c.writeErr != nil {
		return c.writeErr
	}
	c.logger.Debug("client track loaded", "conn", c.id, "session", session, "lang", id, "segments", len(track.Segments))
	return c.send(Message{Type: TypeLoaded, SessionID: session, Tokens: tokens, Track: &track})
}
