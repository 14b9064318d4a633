package matcher

import "codenarrate/internal/tokenizer"

type contextRule struct {
	texts      map[string]bool
	kinds      map[tokenizer.Kind]bool
	confidence float64
}

func (r contextRule) matches(text string, kind tokenizer.Kind) bool {
	return r.texts[text] || r.kinds[kind]
}

// Rules naming concrete token texts are more specific than rules naming a
// whole token kind and score higher.
var (
	loopRule = contextRule{
		texts:      set("for", "while", "do", "foreach", "loop", "range"),
		confidence: 0.8,
	}
	conditionRule = contextRule{
		texts:      set("if", "else", "elif", "switch", "case", "match", "?"),
		confidence: 0.75,
	}
	functionRule = contextRule{
		texts:      set("function", "func", "def", "fn", "=>", "lambda"),
		confidence: 0.8,
	}
	variableRule = contextRule{
		texts:      set("let", "var", "const", ":="),
		confidence: 0.7,
	}
	returnRule = contextRule{
		texts:      set("return", "yield"),
		confidence: 0.8,
	}
	typeRule = contextRule{
		texts:      set("class", "struct", "interface", "type", "enum", "trait"),
		confidence: 0.75,
	}
	importRule = contextRule{
		texts:      set("import", "from", "require", "use", "include", "package"),
		confidence: 0.7,
	}
	errorRule = contextRule{
		texts:      set("try", "catch", "except", "throw", "raise", "finally"),
		confidence: 0.75,
	}
	stringRule = contextRule{
		kinds:      map[tokenizer.Kind]bool{tokenizer.StringLiteral: true},
		confidence: 0.6,
	}
	numberRule = contextRule{
		kinds:      map[tokenizer.Kind]bool{tokenizer.Literal: true},
		confidence: 0.6,
	}
	commentRule = contextRule{
		kinds:      map[tokenizer.Kind]bool{tokenizer.Comment: true},
		confidence: 0.7,
	}
	operatorRule = contextRule{
		kinds:      map[tokenizer.Kind]bool{tokenizer.Operator: true},
		confidence: 0.6,
	}
)

var contextWords = map[string]contextRule{
	"loop":        loopRule,
	"loops":       loopRule,
	"iterate":     loopRule,
	"iterates":    loopRule,
	"iteration":   loopRule,
	"condition":   conditionRule,
	"conditions":  conditionRule,
	"conditional": conditionRule,
	"branch":      conditionRule,
	"function":    functionRule,
	"functions":   functionRule,
	"method":      functionRule,
	"callback":    functionRule,
	"variable":    variableRule,
	"variables":   variableRule,
	"declaration": variableRule,
	"return":      returnRule,
	"returns":     returnRule,
	"class":       typeRule,
	"type":        typeRule,
	"struct":      typeRule,
	"import":      importRule,
	"imports":     importRule,
	"module":      importRule,
	"error":       errorRule,
	"errors":      errorRule,
	"exception":   errorRule,
	"string":      stringRule,
	"strings":     stringRule,
	"text":        stringRule,
	"message":     stringRule,
	"number":      numberRule,
	"numbers":     numberRule,
	"zero":        numberRule,
	"constant":    numberRule,
	"comment":     commentRule,
	"comments":    commentRule,
	"operator":    operatorRule,
	"operation":   operatorRule,
}

func set(items ...string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		out[item] = true
	}
	return out
}
