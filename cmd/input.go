package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"codenarrate/internal/config"
	"codenarrate/internal/lang"
	"codenarrate/internal/readfile"
	"codenarrate/internal/timeline"
	"codenarrate/internal/tokenizer"
	"codenarrate/internal/trackcache"
)

type inputFlags struct {
	code        string
	explanation string
	timings     string
	hints       string
	lang        string
	noCache     bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.code, "code", "c", "", "source file to highlight")
	cmd.Flags().StringVarP(&f.explanation, "explanation", "e", "", "text file with the spoken explanation")
	cmd.Flags().StringVarP(&f.timings, "timings", "t", "", "JSON word timings [{word,startMs,endMs}] (estimated when omitted)")
	cmd.Flags().StringVar(&f.hints, "hints", "", "JSON word-to-token hints [{wordIndex,tokenIds,confidence}]")
	cmd.Flags().StringVarP(&f.lang, "lang", "l", "", "language id (detected from the code file when omitted)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "do not read or write the track cache")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("explanation")
}

type inputs struct {
	lang        lang.ID
	code        string
	explanation string
	timings     []timeline.WordTiming
	hints       []timeline.Hint
}

func (f *inputFlags) load(c *config.Config) (inputs, error) {
	var in inputs
	var err error

	if in.code, err = readfile.ReadNormalized(f.code); err != nil {
		return in, fmt.Errorf("read code: %w", err)
	}
	if in.explanation, err = readfile.ReadNormalized(f.explanation); err != nil {
		return in, fmt.Errorf("read explanation: %w", err)
	}

	in.lang = lang.Normalize(f.lang)
	if f.lang == "" {
		in.lang = lang.Detect(f.code)
	}

	if f.timings != "" {
		if err := readJSON(f.timings, &in.timings); err != nil {
			return in, fmt.Errorf("timings: %w", err)
		}
	} else {
		in.timings = timeline.EstimateTimings(in.explanation, c.WordDurationMs)
	}

	if f.hints != "" {
		if err := readJSON(f.hints, &in.hints); err != nil {
			return in, fmt.Errorf("hints: %w", err)
		}
	}
	return in, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

var (
	tokenCacheOnce sync.Once
	tokenCache     *tokenizer.Cache
)

// sharedTokenCache is the process-wide tokenization cache. Every command and
// every websocket session tokenizes through it.
func sharedTokenCache(c *config.Config) *tokenizer.Cache {
	tokenCacheOnce.Do(func() {
		tokenCache = tokenizer.NewCache(c.TokenCacheSize)
	})
	return tokenCache
}

// buildTrack tokenizes and builds, going through the track cache when one is
// configured. Hinted builds are never cached.
func buildTrack(c *config.Config, in inputs, useCache bool) ([]tokenizer.Token, timeline.Track, error) {
	logger := slog.Default()

	var store *trackcache.Store
	var key string
	if useCache && c.CacheDir != "" && len(in.hints) == 0 {
		s, err := trackcache.Open(c.CacheDir)
		if err != nil {
			logger.Warn("track cache disabled", "err", err)
		} else {
			store = s
			key = trackcache.Key(string(in.lang), in.code, in.explanation, in.timings)
			e, err := store.Load(key)
			switch {
			case err == nil:
				logger.Debug("track cache hit", "key", key)
				return e.Tokens, e.Track, nil
			case !errors.Is(err, trackcache.ErrMiss):
				logger.Warn("track cache read failed", "key", key, "err", err)
			}
		}
	}

	tokens := sharedTokenCache(c).TokenizeLang(in.code, in.lang)
	opts := c.TimelineOptions()
	opts.Logger = logger
	builder := timeline.NewBuilder(opts)

	var track timeline.Track
	if len(in.hints) > 0 {
		var err error
		if track, err = builder.BuildWithHints(in.explanation, in.timings, tokens, in.hints); err != nil {
			return nil, timeline.Track{}, err
		}
	} else {
		track = builder.Build(in.explanation, in.timings, tokens)
	}

	if store != nil {
		if err := store.Save(key, trackcache.Entry{Lang: string(in.lang), Tokens: tokens, Track: track}); err != nil {
			logger.Warn("track cache write failed", "key", key, "err", err)
		}
		if err := store.Prune(c.CacheMaxBytes); err != nil {
			logger.Warn("track cache prune failed", "err", err)
		}
	}
	return tokens, track, nil
}
