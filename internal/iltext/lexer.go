package iltext

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Lexer tokenizes the textual IL grammar (spec §4.3.1). Identifiers and
// string-literal contents are NFC-normalized on read so that two
// byte-distinct but canonically equal inputs lex identically — part of
// the determinism guarantee in spec §3.7.7 (SPEC_FULL.md B).
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
	line         uint32
	col          uint32
}

// NewLexer returns a Lexer positioned at the start of input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	ch, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.position = l.readPosition
	l.readPosition += size
	l.col++
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.ch = ch
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return ch
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == ';': // line comment, informative extension for readable fixtures
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()
	line, col := l.line, l.col
	mk := func(tt TokenType, lit string) Token { return Token{Type: tt, Literal: lit, Line: line, Col: col} }

	switch {
	case l.ch == 0:
		return mk(EOF, "")
	case l.ch == '(':
		l.readChar()
		return mk(LPAREN, "(")
	case l.ch == ')':
		l.readChar()
		return mk(RPAREN, ")")
	case l.ch == '{':
		l.readChar()
		return mk(LBRACE, "{")
	case l.ch == '}':
		l.readChar()
		return mk(RBRACE, "}")
	case l.ch == ':':
		l.readChar()
		return mk(COLON, ":")
	case l.ch == ',':
		l.readChar()
		return mk(COMMA, ",")
	case l.ch == '.':
		l.readChar()
		return mk(DOT, ".")
	case l.ch == '=':
		l.readChar()
		return mk(ASSIGN, "=")
	case l.ch == '-':
		if isDigit(l.peekChar()) {
			return l.readNumber(true, line, col)
		}
		l.readChar()
		if l.ch == '>' {
			l.readChar()
			return mk(ARROW, "->")
		}
		return mk(MINUS, "-")
	case l.ch == '@':
		l.readChar()
		name := l.readIdentRunes()
		if name == "" {
			return mk(ILLEGAL, "@")
		}
		return mk(ATNAME, name)
	case l.ch == '%':
		l.readChar()
		name := l.readIdentRunes()
		if name == "" {
			return mk(ILLEGAL, "%")
		}
		return mk(PCTNAME, name)
	case l.ch == '"':
		return l.readString(line, col)
	case isDigit(l.ch):
		return l.readNumber(false, line, col)
	case isIdentStart(l.ch):
		name := normalizeIdent(l.readIdentRunes())
		if kw, ok := keywords[name]; ok {
			return mk(kw, name)
		}
		return mk(IDENT, name)
	default:
		ch := l.ch
		l.readChar()
		return mk(ILLEGAL, string(ch))
	}
}

func (l *Lexer) readIdentRunes() string {
	var sb strings.Builder
	for isIdentPart(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return sb.String()
}

func (l *Lexer) readNumber(negative bool, line, col uint32) Token {
	var sb strings.Builder
	if negative {
		sb.WriteByte('-')
		l.readChar() // consume the '-'
	}
	isFloat := false
	for isDigit(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		sb.WriteRune(l.ch)
		l.readChar()
		for isDigit(l.ch) {
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		sb.WriteRune(l.ch)
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			sb.WriteRune(l.ch)
			l.readChar()
		}
		for isDigit(l.ch) {
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
	tt := INT
	if isFloat {
		tt = FLOAT
	}
	return Token{Type: tt, Literal: sb.String(), Line: line, Col: col}
}

func (l *Lexer) readString(line, col uint32) Token {
	l.readChar() // consume opening quote
	var sb strings.Builder
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == '"' {
		l.readChar()
	} else {
		return Token{Type: ILLEGAL, Literal: sb.String(), Line: line, Col: col}
	}
	return Token{Type: STRING, Literal: normalizeString(sb.String()), Line: line, Col: col}
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || ch == '.' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

// normalizeIdent applies Unicode NFC normalization to an identifier so
// equivalent byte sequences always lex to the same literal (spec
// §3.7.7 determinism; SPEC_FULL.md domain-stack table).
func normalizeIdent(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// normalizeString applies the same normalization to string-literal
// contents.
func normalizeString(s string) string {
	return normalizeIdent(s)
}
