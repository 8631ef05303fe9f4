package parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var graphLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{Name: "Comment", Pattern: `//[^\n]*`},

		// Attribute values
		{Name: "String", Pattern: `"[^"]*"`},

		// Operator names like prim::CallMethod or aten::__interpolate
		// (must come before Ident)
		{Name: "OpName", Pattern: `[A-Za-z_][A-Za-z0-9_]*::[A-Za-z0-9_]+`},

		// Value references like %self or %1
		{Name: "ValueRef", Pattern: `%[A-Za-z0-9_]+`},

		// Function references like @__torch__.toy.Net.forward
		{Name: "FuncRef", Pattern: `@[A-Za-z0-9_.]+`},

		// Keywords and identifiers
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},

		// Punctuation
		{Name: "Punctuation", Pattern: `[{}()\[\]=:,.<>]`},

		// Whitespace
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	},
})
