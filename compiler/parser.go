package compiler

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for script syntax
// ---------------------------------------------------------------------------

// Parser parses script source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []string
	input     string // original source text
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		input: input,
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken.Type)
	return false
}

// errorf records a parse error.
func (p *Parser) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf("line %d: %s", p.curToken.Pos.Line, fmt.Sprintf(format, args...))
	p.errors = append(p.errors, msg)
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string {
	return p.errors
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseScript parses a complete script: a single entry block named main.
func (p *Parser) ParseScript() *Script {
	startPos := p.curToken.Pos

	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected entry block name, got %s", p.curToken.Type)
		return nil
	}
	entry := p.curToken.Literal
	if entry != "main" {
		p.errorf("entry block must be named main, got %q", entry)
	}
	p.nextToken()

	p.expect(TokenLParen)
	p.expect(TokenRParen)

	if !p.curTokenIs(TokenLBrace) {
		p.errorf("expected { to open entry block, got %s", p.curToken.Type)
		return nil
	}
	body := p.parseBlock()

	if !p.curTokenIs(TokenEOF) {
		p.errorf("unexpected %s after entry block", p.curToken.Type)
	}

	return &Script{
		SpanVal:    MakeSpan(startPos, p.curToken.Pos),
		Entry:      entry,
		Statements: body.Statements,
	}
}

// ---------------------------------------------------------------------------
// Statement parsing
// ---------------------------------------------------------------------------

// ParseStatement parses a single statement.
func (p *Parser) ParseStatement() Stmt {
	switch {
	case p.curTokenIs(TokenVar):
		return p.parseVarDeclaration()
	case p.curTokenIs(TokenIf):
		return p.parseIf()
	case p.curTokenIs(TokenFor):
		return p.parseFor()
	case p.curTokenIs(TokenLBrace):
		return p.parseBlock()
	default:
		return p.parseExprStatement()
	}
}

// parseVarDeclaration parses var a, b, c;
func (p *Parser) parseVarDeclaration() Stmt {
	startPos := p.curToken.Pos
	p.nextToken() // consume var

	var names []string
	for {
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected variable name, got %s", p.curToken.Type)
			return nil
		}
		names = append(names, p.curToken.Literal)
		p.nextToken()

		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken() // consume ,
	}

	if !p.expect(TokenSemicolon) {
		return nil
	}

	return &VarDeclaration{
		SpanVal: MakeSpan(startPos, p.curToken.Pos),
		Names:   names,
	}
}

// parseIf parses if (cond) stmt [else stmt]
func (p *Parser) parseIf() Stmt {
	startPos := p.curToken.Pos
	p.nextToken() // consume if

	if !p.expect(TokenLParen) {
		return nil
	}
	cond := p.parseExpression()
	if cond == nil {
		return nil
	}
	if !p.expect(TokenRParen) {
		return nil
	}

	then := p.ParseStatement()
	if then == nil {
		return nil
	}

	var elseStmt Stmt
	if p.curTokenIs(TokenElse) {
		p.nextToken() // consume else
		elseStmt = p.ParseStatement()
		if elseStmt == nil {
			return nil
		}
	}

	return &IfStatement{
		SpanVal:   MakeSpan(startPos, p.curToken.Pos),
		Condition: cond,
		Then:      then,
		Else:      elseStmt,
	}
}

// parseFor parses for (init; cond; post) stmt. All three header sections
// are required.
func (p *Parser) parseFor() Stmt {
	startPos := p.curToken.Pos
	p.nextToken() // consume for

	if !p.expect(TokenLParen) {
		return nil
	}
	init := p.parseExpression()
	if init == nil {
		return nil
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}
	cond := p.parseExpression()
	if cond == nil {
		return nil
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}
	post := p.parseExpression()
	if post == nil {
		return nil
	}
	if !p.expect(TokenRParen) {
		return nil
	}

	body := p.ParseStatement()
	if body == nil {
		return nil
	}

	return &ForLoop{
		SpanVal:   MakeSpan(startPos, p.curToken.Pos),
		Init:      init,
		Condition: cond,
		Post:      post,
		Body:      body,
	}
}

// parseBlock parses { stmt* }
func (p *Parser) parseBlock() *BlockStmt {
	startPos := p.curToken.Pos
	p.nextToken() // consume {

	var stmts []Stmt
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenError) {
		stmt := p.ParseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	if p.curTokenIs(TokenError) {
		p.errorf("%s", p.curToken.Literal)
		p.nextToken()
	}
	p.expect(TokenRBrace)

	return &BlockStmt{
		SpanVal:    MakeSpan(startPos, p.curToken.Pos),
		Statements: stmts,
	}
}

// parseExprStatement parses expr;
func (p *Parser) parseExprStatement() Stmt {
	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}
	return &ExprStmt{SpanVal: expr.Span(), Expr: expr}
}

// ---------------------------------------------------------------------------
// Expression parsing (operator precedence)
// ---------------------------------------------------------------------------

// parseExpression parses an expression at the lowest precedence level.
func (p *Parser) parseExpression() Expr {
	return p.parseAssignment()
}

// parseAssignment parses x = expr. Assignment is right-associative, so
// a = b = 1 assigns 1 to b and then to a.
func (p *Parser) parseAssignment() Expr {
	if p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenAssign) {
		startPos := p.curToken.Pos
		target := p.curToken.Literal
		p.nextToken() // identifier
		p.nextToken() // consume =

		value := p.parseAssignment()
		if value == nil {
			return nil
		}
		return &Assignment{
			SpanVal: MakeSpan(startPos, value.Span().End),
			Target:  target,
			Value:   value,
		}
	}
	return p.parseLogicalOr()
}

// parseLogicalOr parses left || right.
func (p *Parser) parseLogicalOr() Expr {
	left := p.parseLogicalAnd()
	if left == nil {
		return nil
	}
	for p.curTokenIs(TokenOr) {
		op := p.curToken.Literal
		p.nextToken()
		right := p.parseLogicalAnd()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{
			SpanVal:  MakeSpan(left.Span().Start, right.Span().End),
			Operator: op,
			Left:     left,
			Right:    right,
		}
	}
	return left
}

// parseLogicalAnd parses left && right.
func (p *Parser) parseLogicalAnd() Expr {
	left := p.parseEquality()
	if left == nil {
		return nil
	}
	for p.curTokenIs(TokenAnd) {
		op := p.curToken.Literal
		p.nextToken()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{
			SpanVal:  MakeSpan(left.Span().Start, right.Span().End),
			Operator: op,
			Left:     left,
			Right:    right,
		}
	}
	return left
}

// parseEquality parses == and !=.
func (p *Parser) parseEquality() Expr {
	left := p.parseRelational()
	if left == nil {
		return nil
	}
	for p.curTokenIs(TokenEq) || p.curTokenIs(TokenNotEq) {
		op := p.curToken.Literal
		p.nextToken()
		right := p.parseRelational()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{
			SpanVal:  MakeSpan(left.Span().Start, right.Span().End),
			Operator: op,
			Left:     left,
			Right:    right,
		}
	}
	return left
}

// parseRelational parses <, >, <= and >=.
func (p *Parser) parseRelational() Expr {
	left := p.parseAdditive()
	if left == nil {
		return nil
	}
	for p.curTokenIs(TokenLess) || p.curTokenIs(TokenGreater) ||
		p.curTokenIs(TokenLessEq) || p.curTokenIs(TokenGreaterEq) {
		op := p.curToken.Literal
		p.nextToken()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{
			SpanVal:  MakeSpan(left.Span().Start, right.Span().End),
			Operator: op,
			Left:     left,
			Right:    right,
		}
	}
	return left
}

// parseAdditive parses + and -.
func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	if left == nil {
		return nil
	}
	for p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus) {
		op := p.curToken.Literal
		p.nextToken()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{
			SpanVal:  MakeSpan(left.Span().Start, right.Span().End),
			Operator: op,
			Left:     left,
			Right:    right,
		}
	}
	return left
}

// parseMultiplicative parses * and /.
func (p *Parser) parseMultiplicative() Expr {
	left := p.parsePostfix()
	if left == nil {
		return nil
	}
	for p.curTokenIs(TokenStar) || p.curTokenIs(TokenSlash) {
		op := p.curToken.Literal
		p.nextToken()
		right := p.parsePostfix()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{
			SpanVal:  MakeSpan(left.Span().Start, right.Span().End),
			Operator: op,
			Left:     left,
			Right:    right,
		}
	}
	return left
}

// parsePostfix parses x++ and x--. The operand must be an identifier.
func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}

	if p.curTokenIs(TokenIncr) || p.curTokenIs(TokenDecr) {
		op := p.curToken.Literal
		endPos := p.curToken.Pos

		ident, ok := expr.(*Identifier)
		if !ok {
			p.errorf("%s requires a variable", op)
			p.nextToken()
			return nil
		}
		p.nextToken()

		return &UnaryExpr{
			SpanVal:  MakeSpan(ident.SpanVal.Start, endPos),
			Operator: op,
			Target:   ident.Name,
		}
	}

	return expr
}

// parsePrimary parses literals, identifiers, calls and parenthesized
// expressions.
func (p *Parser) parsePrimary() Expr {
	switch {
	case p.curTokenIs(TokenNumber):
		tok := p.curToken
		p.nextToken()
		return &NumberLiteral{
			SpanVal: MakeSpan(tok.Pos, p.curToken.Pos),
			Text:    tok.Literal,
		}

	case p.curTokenIs(TokenString):
		tok := p.curToken
		p.nextToken()
		return &StringLiteral{
			SpanVal: MakeSpan(tok.Pos, p.curToken.Pos),
			Value:   tok.Literal,
		}

	case p.curTokenIs(TokenIdentifier):
		if p.peekTokenIs(TokenLParen) {
			return p.parseCall()
		}
		tok := p.curToken
		p.nextToken()
		return &Identifier{
			SpanVal: MakeSpan(tok.Pos, p.curToken.Pos),
			Name:    tok.Literal,
		}

	case p.curTokenIs(TokenLParen):
		startPos := p.curToken.Pos
		p.nextToken() // consume (
		inner := p.parseExpression()
		if inner == nil {
			return nil
		}
		if !p.expect(TokenRParen) {
			return nil
		}
		return &ParenExpr{
			SpanVal: MakeSpan(startPos, p.curToken.Pos),
			Inner:   inner,
		}

	case p.curTokenIs(TokenError):
		p.errorf("%s", p.curToken.Literal)
		p.nextToken()
		return nil

	default:
		p.errorf("unexpected token %s", p.curToken.Type)
		p.nextToken()
		return nil
	}
}

// parseCall parses name(arg, arg, ...).
func (p *Parser) parseCall() Expr {
	startPos := p.curToken.Pos
	name := p.curToken.Literal
	p.nextToken() // function name
	p.nextToken() // consume (

	var args []Expr
	if !p.curTokenIs(TokenRParen) {
		for {
			arg := p.parseExpression()
			if arg == nil {
				return nil
			}
			args = append(args, arg)

			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken() // consume ,
		}
	}

	if !p.expect(TokenRParen) {
		return nil
	}

	return &CallExpr{
		SpanVal: MakeSpan(startPos, p.curToken.Pos),
		Name:    name,
		Args:    args,
	}
}
