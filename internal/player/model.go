// Package player renders code in the terminal and highlights the tokens an
// explanation is talking about as playback advances.
package player

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"codenarrate/internal/drift"
	"codenarrate/internal/playback"
	"codenarrate/internal/timeline"
	"codenarrate/internal/tokenizer"
)

const (
	seekStepMs = 2000
	// tailMs keeps the last highlight on screen briefly before finishing.
	tailMs = 500
)

type Options struct {
	Code        string
	Tokens      []tokenizer.Token
	Track       timeline.Track
	Explanation string
	Palette     Palette
	ToleranceMs int
	Calibrator  *drift.Calibrator
	Logger      *slog.Logger
	// Now is the playback clock; time.Now when nil.
	Now func() time.Time
}

// highlights is written by the synchronizer observer and read by View. It
// sits behind a pointer so copies of Model share it.
type highlights struct {
	ids        map[string]bool
	tier       timeline.Tier
	confidence float64
	events     int
}

func (h *highlights) Notify(e playback.Event) {
	h.events++
	switch e := e.(type) {
	case playback.HighlightEvent:
		h.ids = make(map[string]bool, len(e.TokenIDs))
		for _, id := range e.TokenIDs {
			h.ids[id] = true
		}
		h.tier = e.Tier
		h.confidence = e.Confidence
	case playback.ClearEvent:
		h.ids = nil
		h.confidence = 0
	}
}

type Model struct {
	sync  *playback.Synchronizer
	hl    *highlights
	index map[string]tokenizer.Token

	lines       []string
	spans       [][]lineSpan
	explanation string
	total       int

	palette Palette
	bar     progress.Model
	now     func() time.Time

	startedAt  time.Time
	positionMs int
	paused     bool
	done       bool

	width  int
	height int
	offset int
}

func New(opts Options) Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.Palette.Name == "" {
		if p, err := LoadPalette(DefaultTheme); err == nil {
			opts.Palette = p
		}
	}

	sync := playback.New(playback.Options{
		ToleranceMs: opts.ToleranceMs,
		Calibrator:  opts.Calibrator,
		Logger:      opts.Logger,
	})
	hl := &highlights{}
	sync.Subscribe(hl)
	sync.Load(opts.Track)
	sync.Play()

	lines := strings.Split(opts.Code, "\n")
	return Model{
		sync:        sync,
		hl:          hl,
		index:       tokenizer.Index(opts.Tokens),
		lines:       lines,
		spans:       spansByLine(lines, opts.Tokens),
		explanation: opts.Explanation,
		total:       opts.Track.TotalDurationMs,
		palette:     opts.Palette,
		bar:         progress.New(progress.WithSolidFill(opts.Palette.Accent), progress.WithoutPercentage()),
		now:         now,
		startedAt:   now(),
	}
}

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, m.width-2)

	case tickMsg:
		m.advance()
		return m, tickCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.sync.Stop()
			return m, tea.Quit
		case " ", "space", "p":
			m.togglePause()
		case "left", "h":
			m.seek(m.positionMs - seekStepMs)
		case "right", "l":
			m.seek(m.positionMs + seekStepMs)
		case "r", "home":
			m.done = false
			m.paused = false
			m.sync.Play()
			m.seek(0)
		}
	}
	return m, nil
}

func (m *Model) advance() {
	if m.paused || m.done {
		return
	}
	m.positionMs = int(m.now().Sub(m.startedAt).Milliseconds())
	if m.positionMs > m.total+tailMs {
		m.positionMs = m.total
		m.done = true
		m.sync.Stop()
		return
	}
	m.sync.UpdateTime(m.positionMs)
	m.follow()
}

func (m *Model) togglePause() {
	if m.done {
		return
	}
	if m.paused {
		m.paused = false
		m.startedAt = m.now().Add(-time.Duration(m.positionMs) * time.Millisecond)
		m.sync.Play()
		return
	}
	m.paused = true
	m.sync.Pause()
}

func (m *Model) seek(ms int) {
	m.positionMs = clamp(ms, 0, max(m.total, 0))
	m.startedAt = m.now().Add(-time.Duration(m.positionMs) * time.Millisecond)
	m.sync.Seek(m.positionMs)
	m.follow()
}

// follow scrolls so the first highlighted line is visible.
func (m *Model) follow() {
	first := -1
	for id := range m.hl.ids {
		tok, ok := m.index[id]
		if !ok {
			continue
		}
		if first < 0 || tok.Line < first {
			first = tok.Line
		}
	}
	if first < 0 {
		return
	}
	visible := m.codeHeight()
	row := first - 1
	if row < m.offset {
		m.offset = row
	} else if row >= m.offset+visible {
		m.offset = row - visible + 1
	}
}

func (m Model) codeHeight() int {
	// header, caption, bar, footer
	return max(1, m.height-4)
}

func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderCode(m.width, m.codeHeight()),
		m.renderCaption(),
		m.bar.ViewAs(m.progress()),
		m.renderFooter(),
	)
}

func (m Model) progress() float64 {
	if m.total <= 0 {
		return 0
	}
	return min(max(float64(m.positionMs)/float64(m.total), 0), 1)
}

func (m Model) renderHeader() string {
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Header)).Bold(true)
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Muted))

	state := "playing"
	switch {
	case m.done:
		state = "finished"
	case m.paused:
		state = "paused"
	}
	status := fmt.Sprintf("%s  %s / %s", state, formatClock(m.positionMs), formatClock(m.total))
	if len(m.hl.ids) > 0 {
		status += fmt.Sprintf("  %s %.2f", m.hl.tier, m.hl.confidence)
	}
	return headerStyle.Render("codenarrate") + "  " + statusStyle.Render(truncateText(status, max(0, m.width-13)))
}

func (m Model) renderCaption() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Text)).Italic(true)
	return style.Render(truncateText(m.explanation, m.width))
}

func (m Model) renderFooter() string {
	footerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Muted))
	text := "space pause  left/right seek  r restart  q quit"
	if m.done {
		text = "finished, press r to replay or q to quit"
	}
	return footerStyle.Render(truncateText(text, m.width))
}

func (m Model) renderCode(width int, height int) string {
	numStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Muted))
	maxCode := max(0, width-7)

	rows := make([]string, 0, height)
	for i := m.offset; i < len(m.lines) && len(rows) < height; i++ {
		prefix := numStyle.Render(fmt.Sprintf("%5d ", i+1))
		rows = append(rows, prefix+padRightANSI(m.renderLine(i, maxCode), maxCode))
	}
	for len(rows) < height {
		rows = append(rows, "")
	}
	return strings.Join(rows, "\n")
}
