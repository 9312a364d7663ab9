package parser

import (
	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/lexer"
)

// mergeRange returns a range covering start through end.
func mergeRange(start, end lexer.Range) lexer.Range {
	return start.Merge(end)
}

func rangeOf(first lexer.Token, last ast.Node) lexer.Range {
	return mergeRange(first.Range, last.Range())
}

var binaryOperators = map[string]bool{
	"=": true, "==": true, "!=": true,
	"&": true, "&&": true, "&=": true,
	"|": true, "||": true, "|=": true,
	">": true, ">=": true, "<": true, "<=": true,
	"+": true, "+=": true, "-": true, "-=": true,
	"*": true, "*=": true, "/": true, "/=": true,
	"%": true, "%=": true, "^": true, "^=": true,
	"<<": true, "<<=": true, ">>": true, ">>=": true, ">>>": true,
	"~=": true,
}

var prefixOperators = map[string]bool{
	"!": true, "~": true, "-": true, "--": true, "++": true,
}

var comparators = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

// IsBinaryOperator reports whether op may join two operands.
func IsBinaryOperator(op string) bool {
	return binaryOperators[op]
}

// blockNames are the keywords that may still open a named block.
var blockNames = map[string]bool{
	"func":   true,
	"repeat": true,
}
