package timeline

import (
	"errors"
	"fmt"
	"math"

	"codenarrate/internal/tokenizer"
)

var (
	ErrUnknownToken = errors.New("unknown token id")
	ErrInvalidHint  = errors.New("invalid hint")
)

// Hint is an externally supplied mapping from one explanation word to the
// tokens it refers to, typically produced alongside a generated explanation.
type Hint struct {
	WordIndex  int      `json:"wordIndex"`
	TokenIDs   []string `json:"tokenIds"`
	Confidence float64  `json:"confidence"`
}

// ValidateHints checks hints against the token set. Confidences are clamped
// into [0, 1] and token ids are deduplicated and put in source order; any
// reference to a token that does not exist rejects the whole batch.
func ValidateHints(hints []Hint, tokens []tokenizer.Token) ([]Hint, error) {
	order := tokenOrder(tokens)

	out := make([]Hint, 0, len(hints))
	seen := make(map[int]bool, len(hints))
	for i, h := range hints {
		if h.WordIndex < 0 {
			return nil, fmt.Errorf("hint %d: negative word index %d: %w", i, h.WordIndex, ErrInvalidHint)
		}
		if seen[h.WordIndex] {
			return nil, fmt.Errorf("hint %d: duplicate word index %d: %w", i, h.WordIndex, ErrInvalidHint)
		}
		if len(h.TokenIDs) == 0 {
			return nil, fmt.Errorf("hint %d: no token ids: %w", i, ErrInvalidHint)
		}
		if math.IsNaN(h.Confidence) {
			return nil, fmt.Errorf("hint %d: confidence is NaN: %w", i, ErrInvalidHint)
		}
		for _, id := range h.TokenIDs {
			if _, ok := order[id]; !ok {
				return nil, fmt.Errorf("hint %d: %q: %w", i, id, ErrUnknownToken)
			}
		}
		seen[h.WordIndex] = true

		out = append(out, Hint{
			WordIndex:  h.WordIndex,
			TokenIDs:   sortedUnique(h.TokenIDs, order),
			Confidence: min(max(h.Confidence, 0), 1),
		})
	}
	return out, nil
}
