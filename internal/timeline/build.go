package timeline

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"codenarrate/internal/matcher"
	"codenarrate/internal/tokenizer"
)

const (
	DefaultMergeWindowMs = 200
	minWordRunes         = 3
)

type Options struct {
	// MergeWindowMs is the widest gap between two segments that still
	// lets them merge.
	MergeWindowMs int
	Matcher       matcher.Options
	Logger        *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		MergeWindowMs: DefaultMergeWindowMs,
		Matcher:       matcher.DefaultOptions(),
	}
}

// Builder turns an explanation and its word timings into a Track.
type Builder struct {
	mergeWindow int
	matcher     *matcher.Matcher
	logger      *slog.Logger
}

func NewBuilder(opts Options) *Builder {
	if opts.MergeWindowMs < 0 {
		opts.MergeWindowMs = DefaultMergeWindowMs
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		mergeWindow: opts.MergeWindowMs,
		matcher:     matcher.New(opts.Matcher),
		logger:      logger,
	}
}

// Build runs with default options.
func Build(explanation string, timings []WordTiming, tokens []tokenizer.Token) Track {
	return NewBuilder(DefaultOptions()).Build(explanation, timings, tokens)
}

func (b *Builder) Build(explanation string, timings []WordTiming, tokens []tokenizer.Token) Track {
	return b.build(explanation, timings, tokens, nil)
}

// BuildWithHints is Build with hinted words taking their tokens from the
// hint instead of the lexical matcher. Invalid hints fail the build.
func (b *Builder) BuildWithHints(explanation string, timings []WordTiming, tokens []tokenizer.Token, hints []Hint) (Track, error) {
	valid, err := ValidateHints(hints, tokens)
	if err != nil {
		return Track{}, err
	}
	byWord := make(map[int]Hint, len(valid))
	for _, h := range valid {
		byWord[h.WordIndex] = h
	}
	return b.build(explanation, timings, tokens, byWord), nil
}

func (b *Builder) build(explanation string, timings []WordTiming, tokens []tokenizer.Token, hints map[int]Hint) Track {
	words := alignWords(explanation, timings)
	if n := countWords(explanation, timings); n != len(timings) {
		b.logger.Warn("word and timing counts differ", "words", n, "timings", len(timings), "aligned", len(words))
	}

	order := tokenOrder(tokens)
	raw := make([]Segment, 0, len(words))
	for _, w := range words {
		if h, ok := hints[w.index]; ok {
			raw = append(raw, Segment{
				StartMs:    w.timing.StartMs,
				EndMs:      w.timing.EndMs,
				TokenIDs:   h.TokenIDs,
				Confidence: h.Confidence,
			})
			continue
		}

		text := cleanWord(w.text)
		if len([]rune(text)) < minWordRunes {
			continue
		}
		m := b.matcher.Match(text, tokens)
		if m.Empty() {
			continue
		}
		raw = append(raw, Segment{
			StartMs:    w.timing.StartMs,
			EndMs:      w.timing.EndMs,
			TokenIDs:   m.TokenIDs,
			Confidence: m.Confidence,
		})
	}

	segments := resolveConflicts(mergeSegments(raw, order, b.mergeWindow, b.matcher.MaxTokens()))

	track := Track{Segments: segments}
	for i := range track.Segments {
		s := &track.Segments[i]
		s.ID = fmt.Sprintf("seg-%d", i)
		s.Tier = TierFor(s.Confidence)
		track.OverallConfidence += s.Confidence
	}
	if len(track.Segments) > 0 {
		track.OverallConfidence /= float64(len(track.Segments))
	}
	for _, t := range timings {
		track.TotalDurationMs = max(track.TotalDurationMs, clampTiming(t).EndMs)
	}

	b.logger.Debug("track built",
		"words", len(words),
		"raw", len(raw),
		"segments", len(track.Segments),
		"confidence", track.OverallConfidence,
	)
	return track
}

func countWords(explanation string, timings []WordTiming) int {
	if n := len(strings.Fields(explanation)); n > 0 {
		return n
	}
	return len(timings)
}

// mergeSegments folds each segment into its predecessor when the two are
// close in time and describe the same code: either the same token set or
// tokens that sit next to each other in the source. Adjacency joins at most
// two segments and never grows a set past maxTokens.
func mergeSegments(segs []Segment, order map[string]int, window, maxTokens int) []Segment {
	if len(segs) == 0 {
		return nil
	}

	sorted := make([]Segment, len(segs))
	copy(sorted, segs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartMs < sorted[j].StartMs
	})

	out := []Segment{sorted[0]}
	joined := []bool{false}
	for _, next := range sorted[1:] {
		cur := &out[len(out)-1]
		if next.StartMs-cur.EndMs > window {
			out = append(out, next)
			joined = append(joined, false)
			continue
		}
		switch {
		case cur.SameTokens(next):
		case !joined[len(joined)-1] && sourceAdjacent(cur.TokenIDs, next.TokenIDs, order):
			union := sortedUnique(append(append([]string{}, cur.TokenIDs...), next.TokenIDs...), order)
			if len(union) > maxTokens {
				out = append(out, next)
				joined = append(joined, false)
				continue
			}
			cur.TokenIDs = union
			joined[len(joined)-1] = true
		default:
			out = append(out, next)
			joined = append(joined, false)
			continue
		}
		cur.EndMs = max(cur.EndMs, next.EndMs)
		cur.Confidence = max(cur.Confidence, next.Confidence)
	}
	return out
}

func sourceAdjacent(a, b []string, order map[string]int) bool {
	for _, x := range a {
		ix, ok := order[x]
		if !ok {
			continue
		}
		for _, y := range b {
			iy, ok := order[y]
			if !ok {
				continue
			}
			if d := ix - iy; d == 1 || d == -1 {
				return true
			}
		}
	}
	return false
}

// resolveConflicts removes the remaining overlaps. The stronger segment keeps
// the contested span; on a tie the earlier one does. A loser that outlasts
// the winner keeps its tail, and a loser fully covered disappears.
func resolveConflicts(segs []Segment) []Segment {
	queue := make([]Segment, 0, len(segs))
	for _, s := range segs {
		if s.EndMs > s.StartMs {
			queue = append(queue, s)
		}
	}

	out := make([]Segment, 0, len(queue))
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if len(out) == 0 || next.StartMs >= out[len(out)-1].EndMs {
			out = append(out, next)
			continue
		}

		prev := &out[len(out)-1]
		if prev.Confidence >= next.Confidence {
			if next.EndMs > prev.EndMs {
				next.StartMs = prev.EndMs
				queue = insertByStart(queue, next)
			}
			continue
		}

		tail := *prev
		prevEnd := prev.EndMs
		prev.EndMs = next.StartMs
		if prev.EndMs <= prev.StartMs {
			out = out[:len(out)-1]
		}
		if prevEnd > next.EndMs {
			tail.StartMs = next.EndMs
			tail.EndMs = prevEnd
			queue = insertByStart(queue, tail)
		}
		out = append(out, next)
	}
	return out
}

func insertByStart(queue []Segment, s Segment) []Segment {
	i := sort.Search(len(queue), func(i int) bool {
		return queue[i].StartMs > s.StartMs
	})
	queue = append(queue, Segment{})
	copy(queue[i+1:], queue[i:])
	queue[i] = s
	return queue
}

func tokenOrder(tokens []tokenizer.Token) map[string]int {
	order := make(map[string]int, len(tokens))
	for i, t := range tokens {
		if _, ok := order[t.ID]; !ok {
			order[t.ID] = i
		}
	}
	return order
}

func sortedUnique(ids []string, order map[string]int) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return order[out[i]] < order[out[j]]
	})
	return out
}
