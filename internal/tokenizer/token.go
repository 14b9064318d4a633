package tokenizer

import "fmt"

type Kind int

const (
	Keyword Kind = iota
	Identifier
	Operator
	Literal
	Punctuation
	Comment
	StringLiteral
)

func (k Kind) String() string {
	switch k {
	case Keyword:
		return "keyword"
	case Identifier:
		return "identifier"
	case Operator:
		return "operator"
	case Literal:
		return "literal"
	case Punctuation:
		return "punctuation"
	case Comment:
		return "comment"
	case StringLiteral:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Token is a typed lexical unit. Lines are 1-based; columns are 0-based rune
// offsets within their line and EndColumn is exclusive. Offset and Length are
// byte positions in the tokenized source.
type Token struct {
	ID          string  `json:"id" msgpack:"id"`
	Text        string  `json:"text" msgpack:"text"`
	Kind        Kind    `json:"kind" msgpack:"kind"`
	Line        int     `json:"line" msgpack:"line"`
	StartColumn int     `json:"startColumn" msgpack:"startColumn"`
	EndLine     int     `json:"endLine" msgpack:"endLine"`
	EndColumn   int     `json:"endColumn" msgpack:"endColumn"`
	Offset      int     `json:"offset" msgpack:"offset"`
	Length      int     `json:"length" msgpack:"length"`
	Weight      float64 `json:"weight" msgpack:"weight"`
}

// TokenID derives a stable id from a token's position.
func TokenID(line int, startCol int, endLine int, endCol int) string {
	if endLine == line {
		return fmt.Sprintf("%d:%d-%d", line, startCol, endCol)
	}
	return fmt.Sprintf("%d:%d-%d:%d", line, startCol, endLine, endCol)
}

func weightFor(kind Kind, text string) float64 {
	switch kind {
	case Keyword:
		return 0.9
	case StringLiteral:
		return 0.8
	case Literal:
		return 0.7
	case Identifier:
		if len(text) >= 3 {
			return 0.8
		}
		return 0.6
	case Operator:
		return 0.7
	case Comment:
		return 0.5
	default:
		return 0.3
	}
}

// Index maps token ids to tokens.
func Index(tokens []Token) map[string]Token {
	out := make(map[string]Token, len(tokens))
	for _, tok := range tokens {
		out[tok.ID] = tok
	}
	return out
}
