package tokenizer

import (
	"unicode"
	"unicode/utf8"

	"codenarrate/internal/lang"
)

// Tokenize splits code into typed tokens using the pattern set for
// languageID. Unknown ids use a generic pattern set. It never fails: every
// non-whitespace rune of code ends up inside exactly one token.
func Tokenize(code string, languageID string) []Token {
	return TokenizeLang(code, lang.Normalize(languageID))
}

func TokenizeLang(code string, id lang.ID) []Token {
	if code == "" {
		return nil
	}

	g := grammarFor(id)
	sc := scanner{src: code, line: 1}
	out := make([]Token, 0, len(code)/4+1)

	for sc.pos < len(code) {
		r, size := utf8.DecodeRuneInString(code[sc.pos:])
		if unicode.IsSpace(r) {
			sc.advance(code[sc.pos : sc.pos+size])
			continue
		}

		kind, n := g.match(code[sc.pos:])
		if n == 0 {
			kind, n = Punctuation, size
		}
		out = append(out, sc.emit(kind, n))
	}

	return out
}

func (g *grammar) match(rest string) (Kind, int) {
	for _, r := range g.rules {
		if loc := r.re.FindStringIndex(rest); loc != nil && loc[1] > 0 {
			return r.kind, loc[1]
		}
	}

	if loc := identRe.FindStringIndex(rest); loc != nil {
		word := rest[:loc[1]]
		switch {
		case g.keywords[word]:
			return Keyword, loc[1]
		case g.literals[word]:
			return Literal, loc[1]
		default:
			return Identifier, loc[1]
		}
	}
	return 0, 0
}

type scanner struct {
	src  string
	pos  int
	line int
	col  int
}

func (s *scanner) emit(kind Kind, n int) Token {
	text := s.src[s.pos : s.pos+n]
	startLine, startCol, offset := s.line, s.col, s.pos
	s.advance(text)

	return Token{
		ID:          TokenID(startLine, startCol, s.line, s.col),
		Text:        text,
		Kind:        kind,
		Line:        startLine,
		StartColumn: startCol,
		EndLine:     s.line,
		EndColumn:   s.col,
		Offset:      offset,
		Length:      n,
		Weight:      weightFor(kind, text),
	}
}

func (s *scanner) advance(text string) {
	for _, r := range text {
		if r == '\n' {
			s.line++
			s.col = 0
			continue
		}
		s.col++
	}
	s.pos += len(text)
}
