package matcher

import (
	"fmt"
	"sort"

	"codenarrate/internal/tokenizer"
)

type MatchKind int

const (
	NoMatch MatchKind = iota
	Direct
	Semantic
	Fuzzy
	Contextual
)

func (k MatchKind) String() string {
	switch k {
	case NoMatch:
		return "none"
	case Direct:
		return "direct"
	case Semantic:
		return "semantic"
	case Fuzzy:
		return "fuzzy"
	case Contextual:
		return "contextual"
	default:
		return fmt.Sprintf("match(%d)", int(k))
	}
}

const (
	exactConfidence     = 1.0
	containsConfidence  = 0.9
	semanticConfidence  = 0.95
	minContainsRunes    = 3
	minFuzzyRunesExcl   = 3
	defaultMaxTokens    = 3
	defaultBroadPenalty = 0.8
	defaultFuzzyCutoff  = 0.7
	defaultFuzzyFactor  = 0.8
)

type Options struct {
	// MaxTokens bounds how many tokens one word may highlight.
	MaxTokens int
	// BroadPenalty scales the confidence of words that matched more than
	// MaxTokens candidates.
	BroadPenalty float64
	// FuzzyThreshold is the similarity a fuzzy match must exceed.
	FuzzyThreshold float64
	// FuzzyDiscount scales accepted fuzzy similarities.
	FuzzyDiscount float64
}

func DefaultOptions() Options {
	return Options{
		MaxTokens:      defaultMaxTokens,
		BroadPenalty:   defaultBroadPenalty,
		FuzzyThreshold: defaultFuzzyCutoff,
		FuzzyDiscount:  defaultFuzzyFactor,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.MaxTokens <= 0 {
		o.MaxTokens = d.MaxTokens
	}
	if o.BroadPenalty <= 0 || o.BroadPenalty > 1 {
		o.BroadPenalty = d.BroadPenalty
	}
	if o.FuzzyThreshold <= 0 || o.FuzzyThreshold >= 1 {
		o.FuzzyThreshold = d.FuzzyThreshold
	}
	if o.FuzzyDiscount <= 0 || o.FuzzyDiscount > 1 {
		o.FuzzyDiscount = d.FuzzyDiscount
	}
	return o
}

type Result struct {
	Confidence float64
	Kind       MatchKind
}

// Match is the outcome of matching one spoken word against a token set.
type Match struct {
	WordIndex  int
	TokenIDs   []string
	Confidence float64
	Kind       MatchKind
}

func (m Match) Empty() bool {
	return len(m.TokenIDs) == 0
}

// Matcher scores spoken words against tokens. The zero value is not usable;
// build one with New.
type Matcher struct {
	opts Options
}

func New(opts Options) *Matcher {
	return &Matcher{opts: opts.normalized()}
}

// MaxTokens is the most tokens a single match may carry.
func (m *Matcher) MaxTokens() int {
	return m.opts.MaxTokens
}

var defaultMatcher = New(DefaultOptions())

// Score runs the layered evaluation with default options.
func Score(word string, tok tokenizer.Token) Result {
	return defaultMatcher.Score(word, tok)
}

// Score evaluates word against tok. The first layer that fires wins:
// direct, semantic, fuzzy, contextual.
func (m *Matcher) Score(word string, tok tokenizer.Token) Result {
	w := lowerRunes(word)
	t := lowerRunes(tok.Text)
	if len(w) == 0 || len(t) == 0 {
		return Result{}
	}
	ws, ts := string(w), string(t)

	if ws == ts {
		return Result{Confidence: exactConfidence, Kind: Direct}
	}
	if (len(t) >= minContainsRunes && containsRunes(w, t)) || (len(w) >= minContainsRunes && containsRunes(t, w)) {
		return Result{Confidence: containsConfidence, Kind: Direct}
	}

	if isAlias(ts, ws) {
		return Result{Confidence: semanticConfidence, Kind: Semantic}
	}

	if len(w) > minFuzzyRunesExcl && len(t) > minFuzzyRunesExcl {
		if sim := similarity(w, t); sim > m.opts.FuzzyThreshold {
			return Result{Confidence: sim * m.opts.FuzzyDiscount, Kind: Fuzzy}
		}
	}

	if rule, ok := contextWords[ws]; ok && rule.matches(ts, tok.Kind) {
		return Result{Confidence: rule.confidence, Kind: Contextual}
	}

	return Result{}
}

type candidate struct {
	index  int
	result Result
	weight float64
}

// Match scores word against every token and keeps the strongest few.
// The kept confidences are averaged; words that hit more than MaxTokens
// tokens are penalized as over-broad.
func (m *Matcher) Match(word string, tokens []tokenizer.Token) Match {
	cands := make([]candidate, 0, 4)
	for i := range tokens {
		res := m.Score(word, tokens[i])
		if res.Confidence <= 0 {
			continue
		}
		cands = append(cands, candidate{index: i, result: res, weight: tokens[i].Weight})
	}
	if len(cands) == 0 {
		return Match{}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].result.Confidence != cands[j].result.Confidence {
			return cands[i].result.Confidence > cands[j].result.Confidence
		}
		if cands[i].weight != cands[j].weight {
			return cands[i].weight > cands[j].weight
		}
		return cands[i].index < cands[j].index
	})

	best := cands[0].result.Kind
	kept := cands[:min(len(cands), m.opts.MaxTokens)]
	total := 0.0
	for _, c := range kept {
		total += c.result.Confidence
	}
	confidence := total / float64(len(kept))
	if len(cands) > m.opts.MaxTokens {
		confidence *= m.opts.BroadPenalty
	}

	// ids follow source order so equal sets compare equal
	sort.Slice(kept, func(i, j int) bool { return kept[i].index < kept[j].index })
	ids := make([]string, len(kept))
	for i, c := range kept {
		ids[i] = tokens[c.index].ID
	}

	return Match{
		TokenIDs:   ids,
		Confidence: confidence,
		Kind:       best,
	}
}
