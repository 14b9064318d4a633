package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"codenarrate/internal/config"
	"codenarrate/internal/lang"
	"codenarrate/internal/timeline"
	"codenarrate/internal/trackcache"
)

func writeFile(t *testing.T, dir string, name string, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := config.Default()
	c.CacheDir = filepath.Join(t.TempDir(), "cache")
	return c
}

func TestInputsDetectLanguageAndEstimateTimings(t *testing.T) {
	dir := t.TempDir()
	f := inputFlags{
		code:        writeFile(t, dir, "calc.js", "function calculateTotal(items) {\r\n  let total = 0;\r\n}"),
		explanation: writeFile(t, dir, "explain.txt", "the calculateTotal function"),
	}

	c := testConfig(t)
	in, err := f.load(c)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if in.lang != lang.JavaScript {
		t.Fatalf("lang = %s, want %s", in.lang, lang.JavaScript)
	}
	if len(in.timings) != 3 || in.timings[2].EndMs != 3*c.WordDurationMs {
		t.Fatalf("timings = %+v", in.timings)
	}
	if in.code != "function calculateTotal(items) {\n  let total = 0;\n}" {
		t.Fatalf("code not normalized: %q", in.code)
	}
}

func TestInputsReadTimingsAndHints(t *testing.T) {
	dir := t.TempDir()
	timings := []timeline.WordTiming{{Word: "total", StartMs: 0, EndMs: 300}}
	data, _ := json.Marshal(timings)

	f := inputFlags{
		code:        writeFile(t, dir, "a.txt", "total = 1"),
		explanation: writeFile(t, dir, "e.txt", "total"),
		timings:     writeFile(t, dir, "t.json", string(data)),
		hints:       writeFile(t, dir, "h.json", `[{"wordIndex":0,"tokenIds":["1:0-5"],"confidence":0.9}]`),
		lang:        "python",
	}
	in, err := f.load(testConfig(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if in.lang != lang.Python || !reflect.DeepEqual(in.timings, timings) || len(in.hints) != 1 {
		t.Fatalf("inputs = %+v", in)
	}
}

func TestInputsRejectBadTimings(t *testing.T) {
	dir := t.TempDir()
	f := inputFlags{
		code:        writeFile(t, dir, "a.go", "x := 1"),
		explanation: writeFile(t, dir, "e.txt", "x"),
		timings:     writeFile(t, dir, "t.json", "{not json"),
	}
	if _, err := f.load(testConfig(t)); err == nil {
		t.Fatalf("load accepted malformed timings")
	}
}

func TestBuildTrackUsesCache(t *testing.T) {
	c := testConfig(t)
	in := inputs{
		lang:        lang.JavaScript,
		code:        "let total = 0;",
		explanation: "total",
		timings:     []timeline.WordTiming{{Word: "total", StartMs: 0, EndMs: 300}},
	}

	tokens, track, err := buildTrack(c, in, true)
	if err != nil {
		t.Fatalf("buildTrack: %v", err)
	}
	if len(tokens) == 0 || track.Empty() {
		t.Fatalf("tokens = %d, segments = %d", len(tokens), len(track.Segments))
	}

	store, err := trackcache.Open(c.CacheDir)
	if err != nil {
		t.Fatal(err)
	}
	e, err := store.Load(trackcache.Key(string(in.lang), in.code, in.explanation, in.timings))
	if err != nil {
		t.Fatalf("cache entry missing: %v", err)
	}
	if !reflect.DeepEqual(e.Track, track) {
		t.Fatalf("cached track = %+v, want %+v", e.Track, track)
	}

	_, again, err := buildTrack(c, in, true)
	if err != nil || !reflect.DeepEqual(again, track) {
		t.Fatalf("cached build = %+v, %v", again, err)
	}
}

func TestBuildTrackRejectsBadHints(t *testing.T) {
	in := inputs{
		lang:        lang.Go,
		code:        "x := 1",
		explanation: "x",
		timings:     []timeline.WordTiming{{Word: "x", StartMs: 0, EndMs: 100}},
		hints:       []timeline.Hint{{WordIndex: 0, TokenIDs: []string{"9:9-9"}, Confidence: 1}},
	}
	if _, _, err := buildTrack(testConfig(t), in, true); !errors.Is(err, timeline.ErrUnknownToken) {
		t.Fatalf("err = %v, want ErrUnknownToken", err)
	}
}

func TestBuildTrackPrunesCache(t *testing.T) {
	c := testConfig(t)
	c.CacheMaxBytes = 4096
	if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := writeFile(t, c.CacheDir, "stale.zst", strings.Repeat("x", 4000))
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	in := inputs{
		lang:        lang.JavaScript,
		code:        "let total = 0;",
		explanation: "total",
		timings:     []timeline.WordTiming{{Word: "total", StartMs: 0, EndMs: 300}},
	}
	if _, _, err := buildTrack(c, in, true); err != nil {
		t.Fatalf("buildTrack: %v", err)
	}

	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stale entry still present: %v", err)
	}
	store, err := trackcache.Open(c.CacheDir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(trackcache.Key(string(in.lang), in.code, in.explanation, in.timings)); err != nil {
		t.Fatalf("fresh entry pruned: %v", err)
	}
}

func TestSharedTokenCacheIsReused(t *testing.T) {
	c := testConfig(t)
	first := sharedTokenCache(c)
	if second := sharedTokenCache(c); first != second {
		t.Fatalf("sharedTokenCache returned a new cache")
	}

	in := inputs{
		lang:        lang.Go,
		code:        "reusedCounter := 0",
		explanation: "reusedCounter",
		timings:     []timeline.WordTiming{{Word: "reusedCounter", StartMs: 0, EndMs: 300}},
	}
	before, _ := first.Stats()
	if _, _, err := buildTrack(c, in, false); err != nil {
		t.Fatal(err)
	}
	if _, _, err := buildTrack(c, in, false); err != nil {
		t.Fatal(err)
	}
	if hits, _ := first.Stats(); hits != before+1 {
		t.Fatalf("hits = %d, want %d", hits, before+1)
	}
}
