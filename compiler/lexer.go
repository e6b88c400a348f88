package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for script syntax
// ---------------------------------------------------------------------------

// Lexer tokenizes script source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // line of the current character (1-based)
	col     int  // column of the current character (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	first := l.readPos == 0

	if l.readPos >= len(l.input) {
		// EOF sits one past the final character.
		if l.ch != 0 {
			l.advancePosition()
		}
		l.ch = 0
		l.pos = l.readPos
		return
	}

	if !first {
		l.advancePosition()
	}

	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// advancePosition moves the line/column cursor past the current character.
func (l *Lexer) advancePosition() {
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Literal: "", Pos: pos}

	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}

	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}

	case l.ch == '{':
		l.readChar()
		return Token{Type: TokenLBrace, Literal: "{", Pos: pos}

	case l.ch == '}':
		l.readChar()
		return Token{Type: TokenRBrace, Literal: "}", Pos: pos}

	case l.ch == ';':
		l.readChar()
		return Token{Type: TokenSemicolon, Literal: ";", Pos: pos}

	case l.ch == ',':
		l.readChar()
		return Token{Type: TokenComma, Literal: ",", Pos: pos}

	case l.ch == '=':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenEq, Literal: "==", Pos: pos}
		}
		return Token{Type: TokenAssign, Literal: "=", Pos: pos}

	case l.ch == '!':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenNotEq, Literal: "!=", Pos: pos}
		}
		return Token{Type: TokenError, Literal: "unexpected character: !", Pos: pos}

	case l.ch == '<':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenLessEq, Literal: "<=", Pos: pos}
		}
		return Token{Type: TokenLess, Literal: "<", Pos: pos}

	case l.ch == '>':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenGreaterEq, Literal: ">=", Pos: pos}
		}
		return Token{Type: TokenGreater, Literal: ">", Pos: pos}

	case l.ch == '+':
		l.readChar()
		if l.ch == '+' {
			l.readChar()
			return Token{Type: TokenIncr, Literal: "++", Pos: pos}
		}
		return Token{Type: TokenPlus, Literal: "+", Pos: pos}

	case l.ch == '-':
		l.readChar()
		if l.ch == '-' {
			l.readChar()
			return Token{Type: TokenDecr, Literal: "--", Pos: pos}
		}
		return Token{Type: TokenMinus, Literal: "-", Pos: pos}

	case l.ch == '*':
		l.readChar()
		return Token{Type: TokenStar, Literal: "*", Pos: pos}

	case l.ch == '/':
		l.readChar()
		return Token{Type: TokenSlash, Literal: "/", Pos: pos}

	case l.ch == '&':
		l.readChar()
		if l.ch == '&' {
			l.readChar()
			return Token{Type: TokenAnd, Literal: "&&", Pos: pos}
		}
		return Token{Type: TokenError, Literal: "unexpected character: &", Pos: pos}

	case l.ch == '|':
		l.readChar()
		if l.ch == '|' {
			l.readChar()
			return Token{Type: TokenOr, Literal: "||", Pos: pos}
		}
		return Token{Type: TokenError, Literal: "unexpected character: |", Pos: pos}

	case l.ch == '"':
		return l.readString(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifierOrKeyword(pos)

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character: %c", ch), Pos: pos}
	}
}

// skipWhitespaceAndComments skips whitespace and // line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		break
	}
}

// readString reads a double-quoted string literal. Escape sequences are
// processed here, so the token literal carries the final text.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // consume opening "

	var sb strings.Builder
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '"':
				sb.WriteRune('"')
			case '\\':
				sb.WriteRune('\\')
			case 0:
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}

	if l.ch != '"' {
		return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
	}
	l.readChar() // consume closing "

	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// readNumber reads a decimal integer literal. The raw text is kept; the
// lowering stage parses it and reports overflow there.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Pos: pos}
}

// readIdentifierOrKeyword reads an identifier or reserved word.
func (l *Lexer) readIdentifierOrKeyword(pos Position) Token {
	start := l.pos

	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}

	literal := l.input[start:l.pos]

	if tokType, ok := reservedWords[literal]; ok {
		return Token{Type: tokType, Literal: literal, Pos: pos}
	}

	return Token{Type: TokenIdentifier, Literal: literal, Pos: pos}
}

// Helper functions

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens from the input.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return tokens
}
