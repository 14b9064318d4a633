package tokenizer

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"codenarrate/internal/lang"
	"codenarrate/internal/readfile"

	"golang.org/x/sync/errgroup"
)

type File struct {
	Path   string
	Lang   lang.ID
	Tokens []Token
}

// TokenizeFiles reads and tokenizes paths in parallel. The language of each
// file is detected from its name unless override is non-empty. Results keep
// the order of paths.
func TokenizeFiles(ctx context.Context, paths []string, override string, cache *Cache) ([]File, error) {
	out := make([]File, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, runtime.GOMAXPROCS(0)))

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			code, err := readfile.ReadNormalized(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			id := lang.Detect(path)
			if strings.TrimSpace(override) != "" {
				id = lang.Normalize(override)
			}

			out[i] = File{Path: path, Lang: id, Tokens: cache.TokenizeLang(code, id)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
