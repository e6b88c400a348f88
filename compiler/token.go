package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the script lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenNumber     // 42
	TokenString     // "hello"
	TokenIdentifier // foo, OutputText

	// Keywords
	TokenVar
	TokenIf
	TokenElse
	TokenFor

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenSemicolon // ;
	TokenComma     // ,

	// Operators
	TokenAssign    // =
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenEq        // ==
	TokenNotEq     // !=
	TokenLess      // <
	TokenGreater   // >
	TokenLessEq    // <=
	TokenGreaterEq // >=
	TokenAnd       // &&
	TokenOr        // ||
	TokenIncr      // ++
	TokenDecr      // --
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNumber:     "NUMBER",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",
	TokenVar:        "var",
	TokenIf:         "if",
	TokenElse:       "else",
	TokenFor:        "for",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenSemicolon:  ";",
	TokenComma:      ",",
	TokenAssign:     "=",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenEq:         "==",
	TokenNotEq:      "!=",
	TokenLess:       "<",
	TokenGreater:    ">",
	TokenLessEq:     "<=",
	TokenGreaterEq:  ">=",
	TokenAnd:        "&&",
	TokenOr:         "||",
	TokenIncr:       "++",
	TokenDecr:       "--",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"var":  TokenVar,
	"if":   TokenIf,
	"else": TokenElse,
	"for":  TokenFor,
}
