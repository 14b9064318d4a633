package tokenizer

import (
	"regexp"
	"strings"

	"codenarrate/internal/lang"
)

type rule struct {
	kind Kind
	re   *regexp.Regexp
}

type grammar struct {
	rules    []rule
	keywords map[string]bool
	literals map[string]bool
}

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*`)

const (
	lineCommentSlash = `//[^\n]*`
	lineCommentHash  = `#[^\n]*`
	blockComment     = `/\*[\s\S]*?(?:\*/|\z)`

	doubleQuoted = `"(?:[^"\\\n]|\\.)*"`
	singleQuoted = `'(?:[^'\\\n]|\\.)*'`
	charLiteral  = `'(?:[^'\\\n]|\\.)'`
	tripleDouble = `"""[\s\S]*?"""`
	tripleSingle = `'''[\s\S]*?'''`
	backtickTmpl = "`(?:[^`\\\\]|\\\\[\\s\\S])*`"
	backtickRaw  = "`[^`]*`"

	number = `(?:0[xX][0-9a-fA-F_]+|0[bB][01_]+|0[oO][0-7_]+|\d[\d_]*(?:\.\d[\d_]*)?(?:[eE][+-]?\d+)?)(?:[A-Za-z][A-Za-z0-9]*)?`

	punctuation = `[()\[\]{};,.:?]`
)

// Operator lists are ordered longest first; alternation is leftmost-first.
var (
	jsOperators = []string{
		">>>=", "===", "!==", "**=", "<<=", ">>=", ">>>", "...", "??=", "&&=", "||=",
		"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
		"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "**", "<<", ">>",
		"+", "-", "*", "/", "%", "=", "<", ">", "!", "&", "|", "^", "~",
	}
	goOperators = []string{
		"<<=", ">>=", "&^=", "...", ":=", "<-", "&&", "||", "==", "!=", "<=", ">=",
		"++", "--", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "&^", "<<", ">>",
		"+", "-", "*", "/", "%", "=", "<", ">", "!", "&", "|", "^",
	}
	pythonOperators = []string{
		"**=", "//=", ">>=", "<<=", "->", ":=", "**", "//", "==", "!=", "<=", ">=",
		"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=", "<<", ">>",
		"+", "-", "*", "/", "%", "=", "<", ">", "&", "|", "^", "~", "@",
	}
	rustOperators = []string{
		"<<=", ">>=", "...", "..=", "=>", "->", "::", "..", "==", "!=", "<=", ">=",
		"&&", "||", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>",
		"+", "-", "*", "/", "%", "=", "<", ">", "!", "&", "|", "^", "@",
	}
	cOperators = []string{
		"<<=", ">>=", "->*", "...", "->", "::", "++", "--", "&&", "||", "==", "!=", "<=", ">=",
		"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>", "??", "=>",
		"+", "-", "*", "/", "%", "=", "<", ">", "!", "&", "|", "^", "~",
	}
	genericOperators = []string{
		"===", "!==", "=>", "->", "==", "!=", "<=", ">=", "&&", "||", "++", "--",
		"+=", "-=", "*=", "/=",
		"+", "-", "*", "/", "%", "=", "<", ">", "!", "&", "|", "^", "~",
	}
)

var (
	jsKeywords = words(`async await break case catch class const continue debugger default delete do else
		export extends finally for from function if import in instanceof let new of return static super
		switch this throw try typeof var void while with yield`)
	tsKeywords = union(jsKeywords, words(`abstract any as boolean declare enum implements interface keyof
		namespace never number private protected public readonly string type unknown`))
	goKeywords = words(`break case chan const continue default defer else fallthrough for func go goto if
		import interface map package range return select struct switch type var`)
	pythonKeywords = words(`and as assert async await break class continue def del elif else except
		finally for from global if import in is lambda nonlocal not or pass raise return try while with yield`)
	rustKeywords = words(`as async await break const continue crate dyn else enum extern fn for if impl in
		let loop match mod move mut pub ref return self Self static struct super trait type unsafe use where while`)
	javaKeywords = words(`abstract assert boolean break byte case catch char class const continue default do
		double else enum extends final finally float for if implements import instanceof int interface long
		native new package private protected public return short static super switch synchronized this throw
		throws try void volatile while var`)
	cKeywords = words(`auto break case char const continue default do double else enum extern float for goto
		if inline int long register return short signed sizeof static struct switch typedef union unsigned void
		volatile while`)
	cppKeywords = union(cKeywords, words(`bool catch class constexpr delete explicit friend namespace new
		operator private protected public template this throw try typename using virtual`))
	csharpKeywords = words(`abstract as async await base bool break case catch class const continue decimal
		default delegate do double else enum event explicit extern finally fixed float for foreach if implicit
		in int interface internal is lock long namespace new object operator out override params private
		protected public readonly ref return sealed short sizeof static string struct switch this throw try
		typeof uint ulong unsafe using var virtual void volatile while`)
	genericKeywords = words(`break case class const continue default do else for function if import in let
		new return switch var while`)

	cLiterals      = words(`true false NULL nullptr`)
	jsLiterals     = words(`true false null undefined NaN Infinity`)
	goLiterals     = words(`true false nil iota`)
	pythonLiterals = words(`True False None`)
	rustLiterals   = words(`true false`)
	javaLiterals   = words(`true false null`)
	anyLiterals    = words(`true false null nil None`)
)

var grammars = map[lang.ID]*grammar{
	lang.JavaScript: newGrammar(jsKeywords, jsLiterals,
		alt(Comment, lineCommentSlash, blockComment),
		alt(StringLiteral, doubleQuoted, singleQuoted, backtickTmpl),
		alt(Literal, number),
		operators(jsOperators),
		alt(Punctuation, punctuation),
	),
	lang.TypeScript: newGrammar(tsKeywords, jsLiterals,
		alt(Comment, lineCommentSlash, blockComment),
		alt(StringLiteral, doubleQuoted, singleQuoted, backtickTmpl),
		alt(Literal, number),
		operators(jsOperators),
		alt(Punctuation, punctuation),
	),
	lang.Go: newGrammar(goKeywords, goLiterals,
		alt(Comment, lineCommentSlash, blockComment),
		alt(StringLiteral, doubleQuoted, charLiteral, backtickRaw),
		alt(Literal, number),
		operators(goOperators),
		alt(Punctuation, punctuation),
	),
	lang.Python: newGrammar(pythonKeywords, pythonLiterals,
		alt(Comment, lineCommentHash),
		alt(StringLiteral, tripleDouble, tripleSingle, doubleQuoted, singleQuoted),
		alt(Literal, number),
		operators(pythonOperators),
		alt(Punctuation, punctuation),
	),
	lang.Rust: newGrammar(rustKeywords, rustLiterals,
		alt(Comment, lineCommentSlash, blockComment),
		alt(StringLiteral, doubleQuoted, charLiteral),
		alt(Literal, number),
		operators(rustOperators),
		alt(Punctuation, punctuation),
	),
	lang.Java: newGrammar(javaKeywords, javaLiterals,
		alt(Comment, lineCommentSlash, blockComment),
		alt(StringLiteral, doubleQuoted, charLiteral),
		alt(Literal, number),
		operators(cOperators),
		alt(Punctuation, punctuation),
	),
	lang.C: newGrammar(cKeywords, cLiterals,
		alt(Comment, lineCommentSlash, blockComment),
		alt(StringLiteral, doubleQuoted, charLiteral),
		alt(Literal, number),
		operators(cOperators),
		alt(Punctuation, punctuation),
	),
	lang.CPP: newGrammar(cppKeywords, cLiterals,
		alt(Comment, lineCommentSlash, blockComment),
		alt(StringLiteral, doubleQuoted, charLiteral),
		alt(Literal, number),
		operators(cOperators),
		alt(Punctuation, punctuation),
	),
	lang.CSharp: newGrammar(csharpKeywords, javaLiterals,
		alt(Comment, lineCommentSlash, blockComment),
		alt(StringLiteral, doubleQuoted, charLiteral),
		alt(Literal, number),
		operators(cOperators),
		alt(Punctuation, punctuation),
	),
}

// genericGrammar serves unknown languages: common keywords, no
// language-specific literal forms.
var genericGrammar = newGrammar(genericKeywords, anyLiterals,
	alt(Comment, lineCommentSlash, blockComment, lineCommentHash),
	alt(StringLiteral, doubleQuoted, singleQuoted),
	alt(Literal, `\d+(?:\.\d+)?`),
	operators(genericOperators),
	alt(Punctuation, punctuation),
)

func grammarFor(id lang.ID) *grammar {
	if g, ok := grammars[id]; ok {
		return g
	}
	return genericGrammar
}

func newGrammar(keywords map[string]bool, literals map[string]bool, rules ...rule) *grammar {
	return &grammar{rules: rules, keywords: keywords, literals: literals}
}

func alt(kind Kind, patterns ...string) rule {
	return rule{kind: kind, re: regexp.MustCompile(`^(?:` + strings.Join(patterns, "|") + `)`)}
}

func operators(ops []string) rule {
	quoted := make([]string, len(ops))
	for i, op := range ops {
		quoted[i] = regexp.QuoteMeta(op)
	}
	return alt(Operator, quoted...)
}

func words(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		out[w] = true
	}
	return out
}

func union(sets ...map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for _, set := range sets {
		for k := range set {
			out[k] = true
		}
	}
	return out
}
