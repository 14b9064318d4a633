package lang

import (
	"path/filepath"
	"strings"

	chroma "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

type ID string

const (
	Plain      ID = "plain"
	Go         ID = "go"
	Rust       ID = "rust"
	Python     ID = "python"
	JavaScript ID = "javascript"
	TypeScript ID = "typescript"
	Java       ID = "java"
	C          ID = "c"
	CPP        ID = "cpp"
	CSharp     ID = "csharp"
)

// aliases maps editor language ids to tokenizer languages.
var aliases = map[string]ID{
	"plain":           Plain,
	"plaintext":       Plain,
	"text":            Plain,
	"go":              Go,
	"golang":          Go,
	"rust":            Rust,
	"python":          Python,
	"py":              Python,
	"javascript":      JavaScript,
	"javascriptreact": JavaScript,
	"js":              JavaScript,
	"jsx":             JavaScript,
	"typescript":      TypeScript,
	"typescriptreact": TypeScript,
	"ts":              TypeScript,
	"tsx":             TypeScript,
	"java":            Java,
	"c":               C,
	"cpp":             CPP,
	"c++":             CPP,
	"csharp":          CSharp,
	"c#":              CSharp,
}

// lexerNames maps chroma lexer names to tokenizer languages.
var lexerNames = map[string]ID{
	"go":         Go,
	"rust":       Rust,
	"python":     Python,
	"python 2":   Python,
	"javascript": JavaScript,
	"react":      JavaScript,
	"typescript": TypeScript,
	"tsx":        TypeScript,
	"java":       Java,
	"c":          C,
	"c++":        CPP,
	"c#":         CSharp,
}

var extMap = map[string]ID{
	".go":   Go,
	".rs":   Rust,
	".py":   Python,
	".js":   JavaScript,
	".jsx":  JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".ts":   TypeScript,
	".tsx":  TypeScript,
	".java": Java,
	".c":    C,
	".h":    C,
	".cpp":  CPP,
	".cc":   CPP,
	".cxx":  CPP,
	".hpp":  CPP,
	".hh":   CPP,
	".cs":   CSharp,
	".md":   Plain,
	".txt":  Plain,
}

// Normalize resolves an editor language id. Ids unknown to the alias table
// are looked up in chroma's lexer registry; anything else is Plain.
func Normalize(id string) ID {
	key := strings.ToLower(strings.TrimSpace(id))
	if key == "" {
		return Plain
	}
	if v, ok := aliases[key]; ok {
		return v
	}
	return fromLexerName(lexers.Get(key))
}

func Detect(path string) ID {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	if id, ok := extMap[ext]; ok {
		return id
	}
	return fromLexerName(lexers.Match(base))
}

func fromLexerName(l chroma.Lexer) ID {
	if l == nil {
		return Plain
	}
	cfg := l.Config()
	if cfg == nil {
		return Plain
	}
	if v, ok := lexerNames[strings.ToLower(cfg.Name)]; ok {
		return v
	}
	return Plain
}
