package player

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"codenarrate/internal/timeline"
	"codenarrate/internal/tokenizer"
)

// lineSpan is the part of one token that falls on one source line, in rune
// columns.
type lineSpan struct {
	start int
	end   int
	id    string
	kind  tokenizer.Kind
}

func spansByLine(lines []string, tokens []tokenizer.Token) [][]lineSpan {
	out := make([][]lineSpan, len(lines))
	for _, tok := range tokens {
		for line := tok.Line; line <= tok.EndLine; line++ {
			row := line - 1
			if row < 0 || row >= len(lines) {
				continue
			}
			start, end := 0, len([]rune(lines[row]))
			if line == tok.Line {
				start = tok.StartColumn
			}
			if line == tok.EndLine {
				end = tok.EndColumn
			}
			if end > start {
				out[row] = append(out[row], lineSpan{start: start, end: end, id: tok.ID, kind: tok.Kind})
			}
		}
	}
	return out
}

// renderLine styles source line row, clipped to maxWidth cells.
func (m Model) renderLine(row int, maxWidth int) string {
	runes := []rune(m.lines[row])
	if len(runes) == 0 || maxWidth <= 0 {
		return ""
	}

	var b strings.Builder
	width := 0
	write := func(text string, style lipgloss.Style) bool {
		text = expandTabs(text)
		w := runewidth.StringWidth(text)
		if width+w > maxWidth {
			text = runewidth.Truncate(text, maxWidth-width, "")
			w = runewidth.StringWidth(text)
		}
		b.WriteString(style.Render(text))
		width += w
		return width < maxWidth
	}

	plain := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Text))
	cursor := 0
	for _, sp := range m.spans[row] {
		start := clamp(sp.start, cursor, len(runes))
		end := clamp(sp.end, start, len(runes))
		if start > cursor && !write(string(runes[cursor:start]), plain) {
			return b.String()
		}
		style := m.tokenStyle(sp.kind)
		if m.hl.ids[sp.id] {
			style = m.highlightStyle(style)
		}
		if end > start && !write(string(runes[start:end]), style) {
			return b.String()
		}
		cursor = end
	}
	if cursor < len(runes) {
		write(string(runes[cursor:]), plain)
	}
	return b.String()
}

func (m Model) tokenStyle(kind tokenizer.Kind) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Text))
	switch kind {
	case tokenizer.Keyword:
		return style.Foreground(lipgloss.Color(m.palette.Keyword))
	case tokenizer.Identifier:
		return style.Foreground(lipgloss.Color(m.palette.Identifier))
	case tokenizer.StringLiteral:
		return style.Foreground(lipgloss.Color(m.palette.String))
	case tokenizer.Literal:
		return style.Foreground(lipgloss.Color(m.palette.Number))
	case tokenizer.Comment:
		return style.Foreground(lipgloss.Color(m.palette.Comment))
	case tokenizer.Operator:
		return style.Foreground(lipgloss.Color(m.palette.Operator)).Faint(true)
	default:
		return style
	}
}

// highlightStyle layers the active tier over a token style. Lower tiers are
// drawn more quietly.
func (m Model) highlightStyle(style lipgloss.Style) lipgloss.Style {
	style = style.Background(lipgloss.Color(m.palette.TierBackground(m.hl.tier)))
	switch m.hl.tier {
	case timeline.TierHigh:
		return style.Bold(true).Faint(false)
	case timeline.TierMedium:
		return style.Faint(false)
	default:
		return style.Underline(true)
	}
}
