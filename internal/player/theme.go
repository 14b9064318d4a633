package player

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	chroma "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"

	"codenarrate/internal/timeline"
)

const DefaultTheme = "monokai"

// Palette holds the colors the player draws with, all as #RRGGBB.
type Palette struct {
	Name       string
	Text       string
	Background string
	Muted      string
	Header     string
	Accent     string
	Keyword    string
	Identifier string
	String     string
	Number     string
	Comment    string
	Operator   string
	Error      string

	HighBG   string
	MediumBG string
	LowBG    string
}

// TierBackground returns the highlight color for a tier.
func (p Palette) TierBackground(t timeline.Tier) string {
	switch t {
	case timeline.TierHigh:
		return p.HighBG
	case timeline.TierMedium:
		return p.MediumBG
	default:
		return p.LowBG
	}
}

func LoadPalette(name string) (Palette, error) {
	requested := strings.TrimSpace(name)
	if requested == "" {
		requested = DefaultTheme
	}

	lookup := normalizeThemeName(requested)
	names := styles.Names()
	available := make(map[string]struct{}, len(names))
	for _, n := range names {
		available[n] = struct{}{}
	}
	unknownThemeErr := func() error {
		sort.Strings(names)
		return fmt.Errorf("unknown theme %q. try one of: %s", requested, strings.Join(topThemeHints(names), ", "))
	}
	if _, ok := available[lookup]; !ok {
		return Palette{}, unknownThemeErr()
	}
	style := styles.Get(lookup)
	if style == nil {
		return Palette{}, unknownThemeErr()
	}

	baseBG := pickBackground(style, "#272822", chroma.Background)
	baseFG := pickForeground(style, "#F8F8F2", chroma.Text, chroma.Background)
	comment := pickForeground(style, adjustTone(baseFG, -60), chroma.Comment)
	accent := pickForeground(style, baseFG, chroma.NameFunction, chroma.Keyword)

	// highlight strength steps down from the line-highlight color
	high := pickBackground(style, adjustTone(baseBG, autoDelta(baseBG, 48, -48)), chroma.LineHighlight)
	return Palette{
		Name:       lookup,
		Text:       baseFG,
		Background: baseBG,
		Muted:      pickForeground(style, adjustTone(baseFG, -48), chroma.LineNumbers, chroma.Comment),
		Header:     pickForeground(style, adjustTone(baseFG, -20), chroma.NameClass, chroma.Keyword),
		Accent:     accent,
		Keyword:    pickForeground(style, baseFG, chroma.Keyword),
		Identifier: pickForeground(style, baseFG, chroma.NameFunction, chroma.Name),
		String:     pickForeground(style, baseFG, chroma.LiteralString),
		Number:     pickForeground(style, baseFG, chroma.LiteralNumber),
		Comment:    comment,
		Operator:   pickForeground(style, baseFG, chroma.Operator),
		Error:      pickForeground(style, "#BF616A", chroma.Error),
		HighBG:     high,
		MediumBG:   adjustTone(baseBG, autoDelta(baseBG, 30, -30)),
		LowBG:      adjustTone(baseBG, autoDelta(baseBG, 14, -14)),
	}, nil
}

func normalizeThemeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "solarized":
		return "solarized-dark"
	case "one-dark":
		return "onedark"
	default:
		return n
	}
}

func pickForeground(style *chroma.Style, fallback string, types ...chroma.TokenType) string {
	for _, tt := range types {
		entry := style.Get(tt)
		if entry.Colour.IsSet() {
			return entry.Colour.String()
		}
	}
	return fallback
}

func pickBackground(style *chroma.Style, fallback string, types ...chroma.TokenType) string {
	for _, tt := range types {
		entry := style.Get(tt)
		if entry.Background.IsSet() {
			return entry.Background.String()
		}
	}
	return fallback
}

func topThemeHints(all []string) []string {
	wanted := []string{"monokai", "nord", "dracula", "github", "github-dark", "solarized-dark", "gruvbox", "onedark"}
	set := map[string]bool{}
	for _, n := range all {
		set[n] = true
	}
	out := make([]string, 0, len(wanted))
	for _, name := range wanted {
		if set[name] {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return all[:min(8, len(all))]
	}
	return out
}

func autoDelta(bg string, darkDelta int, lightDelta int) int {
	r, g, b, ok := parseHexRGB(bg)
	if !ok {
		return darkDelta
	}
	l := 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
	if l < 128 {
		return darkDelta
	}
	return lightDelta
}

func adjustTone(hex string, delta int) string {
	r, g, b, ok := parseHexRGB(hex)
	if !ok {
		return hex
	}
	return fmt.Sprintf("#%02X%02X%02X", clamp(r+delta, 0, 255), clamp(g+delta, 0, 255), clamp(b+delta, 0, 255))
}

func parseHexRGB(hex string) (int, int, int, bool) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int((v >> 16) & 0xFF), int((v >> 8) & 0xFF), int(v & 0xFF), true
}
