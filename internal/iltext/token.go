package iltext

import "fmt"

// TokenType identifies a lexical token of the textual IL grammar
// (spec §4.3.1).
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	IDENT  // mnemonics, type names, block labels, bare identifiers
	INT    // 123
	FLOAT  // 123.45
	STRING // "quoted"

	ATNAME  // @name
	PCTNAME // %name or %tN (digits-after-t handled by parser)

	ARROW // ->
	ASSIGN
	COLON
	COMMA
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	DOT
	MINUS

	KwIl
	KwExtern
	KwGlobal
	KwFunc
	KwLabel
	KwNull
)

var names = map[TokenType]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF",
	IDENT: "IDENT", INT: "INT", FLOAT: "FLOAT", STRING: "STRING",
	ATNAME: "ATNAME", PCTNAME: "PCTNAME",
	ARROW: "->", ASSIGN: "=", COLON: ":", COMMA: ",",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", DOT: ".", MINUS: "-",
	KwIl: "il", KwExtern: "extern", KwGlobal: "global", KwFunc: "func", KwLabel: "label", KwNull: "null",
}

func (t TokenType) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

var keywords = map[string]TokenType{
	"il":     KwIl,
	"extern": KwExtern,
	"global": KwGlobal,
	"func":   KwFunc,
	"label":  KwLabel,
	"null":   KwNull,
}

// Token is one lexed token: its type, literal text, and source position.
type Token struct {
	Type    TokenType
	Literal string
	Line    uint32
	Col     uint32
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Type, t.Literal, t.Line, t.Col)
}
