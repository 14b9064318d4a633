package matcher

import "strings"

// spokenAliases maps canonical token text to the words a speaker uses for it.
var spokenAliases = map[string][]string{
	"=":   {"equals", "equal", "assign", "assigns", "assigned", "assignment", "set", "sets"},
	"==":  {"equals", "equal", "equality", "compare", "compares", "comparison"},
	"===": {"equals", "equal", "equality", "strict", "strictly", "identical", "compare", "compares"},
	"!=":  {"unequal", "inequality", "differs", "different"},
	"!==": {"unequal", "inequality", "differs", "different"},
	"=>":  {"arrow", "lambda"},
	"->":  {"arrow", "pointer"},
	":=":  {"declare", "declares", "assign", "assigns", "short"},
	"+":   {"plus", "add", "adds", "addition", "sum", "concatenate", "concatenates"},
	"+=":  {"increment", "increments", "accumulate", "accumulates", "add", "adds"},
	"-":   {"minus", "subtract", "subtracts", "subtraction", "negative"},
	"-=":  {"decrement", "decrements", "subtract", "subtracts"},
	"*":   {"times", "multiply", "multiplies", "multiplied", "multiplication", "star"},
	"/":   {"divide", "divides", "divided", "division", "slash"},
	"%":   {"modulo", "mod", "remainder", "percent"},
	"**":  {"power", "exponent", "squared"},
	"++":  {"increment", "increments", "incremented"},
	"--":  {"decrement", "decrements", "decremented"},
	"&&":  {"and", "both"},
	"||":  {"or", "either"},
	"!":   {"not", "negate", "negates", "negation", "bang"},
	"<":   {"less", "smaller", "fewer", "below"},
	">":   {"greater", "larger", "bigger", "above", "exceeds"},
	"<=":  {"less", "most"},
	">=":  {"greater", "least"},
	"?":   {"ternary"},
	"??":  {"nullish", "coalescing", "coalesce"},
	"...": {"spread", "rest", "ellipsis"},
	".":   {"dot", "property", "member", "access", "accesses"},
	",":   {"comma"},
	";":   {"semicolon"},
	":":   {"colon"},
	"(":   {"parenthesis", "parentheses", "paren", "parens"},
	")":   {"parenthesis", "parentheses", "paren", "parens"},
	"[":   {"bracket", "brackets", "index", "subscript"},
	"]":   {"bracket", "brackets", "index", "subscript"},
	"{":   {"brace", "braces", "curly", "block", "body"},
	"}":   {"brace", "braces", "curly", "block", "body"},

	"for":       {"loop", "loops", "looping", "iterate", "iterates", "iterating", "iteration"},
	"foreach":   {"loop", "loops", "iterate", "iterates", "each"},
	"while":     {"loop", "loops", "repeat", "repeats", "until"},
	"loop":      {"loop", "loops", "forever"},
	"if":        {"condition", "conditional", "check", "checks", "checking", "whether"},
	"else":      {"otherwise", "alternative", "fallback"},
	"elif":      {"otherwise"},
	"switch":    {"cases", "branch", "branches"},
	"match":     {"cases", "branch", "branches", "pattern"},
	"case":      {"cases", "branch"},
	"return":    {"returns", "returning", "returned", "result", "output", "outputs"},
	"yield":     {"yields", "generator"},
	"function":  {"method", "procedure", "define", "defines", "defined"},
	"func":      {"function", "method", "procedure", "define", "defines"},
	"def":       {"function", "method", "define", "defines", "defined"},
	"fn":        {"function", "method", "define", "defines"},
	"let":       {"variable", "variables", "declare", "declares", "declaration"},
	"var":       {"variable", "variables", "declare", "declares", "declaration"},
	"const":     {"constant", "constants", "variable", "declare", "declares"},
	"class":     {"object", "blueprint"},
	"struct":    {"structure", "record", "type"},
	"import":    {"imports", "imported", "module", "dependency", "load", "loads"},
	"from":      {"imports", "module"},
	"require":   {"imports", "module", "dependency"},
	"use":       {"imports", "module"},
	"try":       {"attempt", "attempts"},
	"catch":     {"error", "errors", "exception", "handle", "handles"},
	"except":    {"error", "errors", "exception", "handle", "handles"},
	"throw":     {"throws", "error", "exception"},
	"raise":     {"raises", "error", "exception"},
	"async":     {"asynchronous", "asynchronously"},
	"await":     {"awaits", "wait", "waits"},
	"new":       {"create", "creates", "instantiate", "instantiates", "construct", "constructs"},
	"null":      {"nothing", "empty", "none"},
	"nil":       {"nothing", "empty", "none", "null"},
	"none":      {"nothing", "empty", "null"},
	"undefined": {"nothing", "unset"},
	"true":      {"truthy"},
	"false":     {"falsy"},
	"this":      {"instance", "current", "self"},
	"self":      {"instance", "current", "this"},
	"break":     {"exit", "exits", "stop", "stops"},
	"continue":  {"skip", "skips", "next"},
}

var aliasSets = buildAliasSets(spokenAliases)

func buildAliasSets(table map[string][]string) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(table))
	for canonical, spoken := range table {
		set := make(map[string]bool, len(spoken))
		for _, w := range spoken {
			set[strings.ToLower(w)] = true
		}
		out[strings.ToLower(canonical)] = set
	}
	return out
}

// isAlias reports whether a and b name the same thing through the alias
// table, in either direction. Both must already be lower-case.
func isAlias(a string, b string) bool {
	if set, ok := aliasSets[a]; ok && set[b] {
		return true
	}
	if set, ok := aliasSets[b]; ok && set[a] {
		return true
	}
	return false
}
