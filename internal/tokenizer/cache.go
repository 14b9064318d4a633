package tokenizer

import (
	"slices"
	"sync/atomic"

	"codenarrate/internal/lang"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	Lang lang.ID
	Code string
}

// Cache memoizes tokenization per (language, code). It is safe for
// concurrent use.
type Cache struct {
	entries *lru.Cache[cacheKey, []Token]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	entries, err := lru.New[cacheKey, []Token](capacity)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Cache{entries: entries}
}

func (c *Cache) Tokenize(code string, languageID string) []Token {
	return c.TokenizeLang(code, lang.Normalize(languageID))
}

func (c *Cache) TokenizeLang(code string, id lang.ID) []Token {
	if c == nil {
		return TokenizeLang(code, id)
	}

	key := cacheKey{Lang: id, Code: code}
	if tokens, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return slices.Clone(tokens)
	}
	c.misses.Add(1)

	tokens := TokenizeLang(code, id)
	c.entries.Add(key, tokens)
	return slices.Clone(tokens)
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// Stats reports lookups served from the cache and lookups that tokenized.
func (c *Cache) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}
