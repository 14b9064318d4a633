package trackcache

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"codenarrate/internal/timeline"
	"codenarrate/internal/tokenizer"
)

func sampleEntry() Entry {
	tokens := tokenizer.Tokenize("let total = 0;", "javascript")
	timings := []timeline.WordTiming{{Word: "total", StartMs: 0, EndMs: 300}}
	return Entry{
		Lang:   "javascript",
		Tokens: tokens,
		Track:  timeline.Build("total", timings, tokens),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	want := sampleEntry()
	key := Key("javascript", "let total = 0;", "total", nil)
	if err := s.Save(key, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want.Version = entryVersion
	want.Key = key
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}

	if _, err := os.Stat(s.path(key) + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestLoadMiss(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Load("absent"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Load = %v, want ErrMiss", err)
	}
}

func TestLoadRejectsCorruptEntry(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := os.WriteFile(s.path("bad"), []byte("not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load("bad"); err == nil || errors.Is(err, ErrMiss) {
		t.Fatalf("Load = %v, want decode error", err)
	}
}

func TestKeyCoversInputs(t *testing.T) {
	timings := []timeline.WordTiming{{Word: "a", StartMs: 0, EndMs: 10}}
	base := Key("go", "x := 1", "x", timings)
	if base != Key("go", "x := 1", "x", timings) {
		t.Fatalf("Key is not stable")
	}

	variants := []string{
		Key("rust", "x := 1", "x", timings),
		Key("go", "x := 2", "x", timings),
		Key("go", "x := 1", "y", timings),
		Key("go", "x := 1", "x", []timeline.WordTiming{{Word: "a", StartMs: 0, EndMs: 11}}),
		// field boundaries are length-prefixed
		Key("gox", " := 1", "x", timings),
	}
	for i, k := range variants {
		if k == base {
			t.Fatalf("variant %d collides with base key", i)
		}
	}
}

func TestPruneRemovesOldest(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	e := sampleEntry()
	for i, key := range []string{"old", "mid", "new"} {
		if err := s.Save(key, e); err != nil {
			t.Fatalf("Save %s: %v", key, err)
		}
		stamp := time.Unix(1700000000+int64(i)*60, 0)
		if err := os.Chtimes(s.path(key), stamp, stamp); err != nil {
			t.Fatal(err)
		}
	}

	info, err := os.Stat(s.path("new"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Prune(info.Size()); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	left, _ := filepath.Glob(filepath.Join(dir, "*"+entryExt))
	if len(left) != 1 || filepath.Base(left[0]) != "new"+entryExt {
		t.Fatalf("left = %v, want only the newest entry", left)
	}
}
