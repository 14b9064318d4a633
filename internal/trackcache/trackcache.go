// Package trackcache stores built tracks on disk so repeated runs over the
// same code, explanation and timings skip tokenizing and matching.
package trackcache

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"codenarrate/internal/timeline"
	"codenarrate/internal/tokenizer"
)

const (
	entryVersion = 1
	entryExt     = ".msgpack.zst"
)

var ErrMiss = errors.New("track cache miss")

type Entry struct {
	Version int               `msgpack:"version"`
	Key     string            `msgpack:"key"`
	Lang    string            `msgpack:"lang"`
	Tokens  []tokenizer.Token `msgpack:"tokens"`
	Track   timeline.Track    `msgpack:"track"`
}

type Store struct {
	dir string
}

func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("track cache: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("track cache: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Key digests every input that affects a built track.
func Key(lang string, code string, explanation string, timings []timeline.WordTiming) string {
	h := sha256.New()
	writeField(h, strconv.Itoa(entryVersion))
	writeField(h, lang)
	writeField(h, code)
	writeField(h, explanation)
	for _, t := range timings {
		writeField(h, t.Word)
		writeField(h, strconv.Itoa(t.StartMs))
		writeField(h, strconv.Itoa(t.EndMs))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	fmt.Fprintf(h, "%d:%s;", len(s), s)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+entryExt)
}

// Load returns the entry stored under key, or ErrMiss.
func (s *Store) Load(key string) (Entry, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, ErrMiss
		}
		return Entry{}, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(bufio.NewReaderSize(f, 1<<16), zstd.WithDecoderConcurrency(0))
	if err != nil {
		return Entry{}, err
	}
	defer zr.Close()

	var e Entry
	if err := msgpack.NewDecoder(zr).Decode(&e); err != nil {
		return Entry{}, fmt.Errorf("decode %s: %w", key, err)
	}
	if e.Version != entryVersion || e.Key != key {
		return Entry{}, ErrMiss
	}
	return e, nil
}

// Save writes e under key. The file is replaced atomically.
func (s *Store) Save(key string, e Entry) error {
	e.Version = entryVersion
	e.Key = key

	path := s.path(key)
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	fail := func(err error) error {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fail(err)
	}
	if err := msgpack.NewEncoder(zw).Encode(&e); err != nil {
		_ = zw.Close()
		return fail(err)
	}
	if err := zw.Close(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Prune removes the oldest entries until the cache fits in maxBytes.
func (s *Store) Prune(maxBytes int64) error {
	type fileInfo struct {
		path    string
		size    int64
		modTime time.Time
	}
	var files []fileInfo
	var total int64

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".zst" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: filepath.Join(s.dir, de.Name()), size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
	}

	slices.SortFunc(files, func(a, b fileInfo) int {
		return a.modTime.Compare(b.modTime)
	})
	for len(files) > 0 && total > maxBytes {
		if err := os.Remove(files[0].path); err == nil {
			total -= files[0].size
		}
		files = files[1:]
	}
	return nil
}
