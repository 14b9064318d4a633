package timeline

import (
	"sort"
	"strings"
	"unicode"
)

const defaultWordDurationMs = 400

type alignedWord struct {
	index  int
	text   string
	timing WordTiming
}

// alignWords pairs explanation words with timings by position. Extra words
// or timings on either side are dropped. The pairs come back ordered by
// start time with malformed spans clamped.
func alignWords(explanation string, timings []WordTiming) []alignedWord {
	words := strings.Fields(explanation)
	if len(words) == 0 {
		words = make([]string, len(timings))
		for i, t := range timings {
			words[i] = t.Word
		}
	}

	n := min(len(words), len(timings))
	out := make([]alignedWord, n)
	for i := 0; i < n; i++ {
		out[i] = alignedWord{index: i, text: words[i], timing: clampTiming(timings[i])}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].timing.StartMs < out[j].timing.StartMs
	})
	return out
}

func clampTiming(t WordTiming) WordTiming {
	if t.StartMs < 0 {
		t.StartMs = 0
	}
	t.EndMs = max(t.EndMs, t.StartMs)
	return t
}

// SanitizeTimings returns a time-ordered copy of timings with negative
// starts and inverted spans clamped.
func SanitizeTimings(timings []WordTiming) []WordTiming {
	out := make([]WordTiming, len(timings))
	for i, t := range timings {
		out[i] = clampTiming(t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartMs < out[j].StartMs
	})
	return out
}

// EstimateTimings assigns each word of text a fixed duration, back to back,
// for speech providers that report no word timing.
func EstimateTimings(text string, perWordMs int) []WordTiming {
	if perWordMs <= 0 {
		perWordMs = defaultWordDurationMs
	}

	words := strings.Fields(text)
	out := make([]WordTiming, len(words))
	for i, w := range words {
		out[i] = WordTiming{Word: w, StartMs: i * perWordMs, EndMs: (i + 1) * perWordMs}
	}
	return out
}

// cleanWord strips surrounding punctuation from a spoken word.
func cleanWord(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$'
	})
}
