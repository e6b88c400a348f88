package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for script syntax
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// NumberLiteral represents an integer literal. The raw digits are kept;
// lowering parses and range-checks them.
type NumberLiteral struct {
	SpanVal Span
	Text    string
}

func (n *NumberLiteral) Span() Span { return n.SpanVal }
func (n *NumberLiteral) node()      {}
func (n *NumberLiteral) expr()      {}

// StringLiteral represents a string literal with escapes already processed.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// Identifier represents a variable reference.
type Identifier struct {
	SpanVal Span
	Name    string
}

func (n *Identifier) Span() Span { return n.SpanVal }
func (n *Identifier) node()      {}
func (n *Identifier) expr()      {}

// Assignment represents a variable assignment (x = expr). Assignment is an
// expression, so chains like a = b = 1 parse right to left.
type Assignment struct {
	SpanVal Span
	Target  string
	Value   Expr
}

func (n *Assignment) Span() Span { return n.SpanVal }
func (n *Assignment) node()      {}
func (n *Assignment) expr()      {}

// UnaryExpr represents a postfix increment or decrement (x++ / x--).
// The operand is always an identifier.
type UnaryExpr struct {
	SpanVal  Span
	Operator string // "++" or "--"
	Target   string
}

func (n *UnaryExpr) Span() Span { return n.SpanVal }
func (n *UnaryExpr) node()      {}
func (n *UnaryExpr) expr()      {}

// BinaryExpr represents a binary operation (left OP right).
type BinaryExpr struct {
	SpanVal  Span
	Operator string
	Left     Expr
	Right    Expr
}

func (n *BinaryExpr) Span() Span { return n.SpanVal }
func (n *BinaryExpr) node()      {}
func (n *BinaryExpr) expr()      {}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	SpanVal Span
	Inner   Expr
}

func (n *ParenExpr) Span() Span { return n.SpanVal }
func (n *ParenExpr) node()      {}
func (n *ParenExpr) expr()      {}

// CallExpr represents a call to a named function (OutputText("hi")).
type CallExpr struct {
	SpanVal Span
	Name    string
	Args    []Expr
}

func (n *CallExpr) Span() Span { return n.SpanVal }
func (n *CallExpr) node()      {}
func (n *CallExpr) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// VarDeclaration represents a variable declaration (var a, b, c;).
type VarDeclaration struct {
	SpanVal Span
	Names   []string
}

func (n *VarDeclaration) Span() Span { return n.SpanVal }
func (n *VarDeclaration) node()      {}
func (n *VarDeclaration) stmt()      {}

// IfStatement represents a conditional with an optional else branch.
type IfStatement struct {
	SpanVal   Span
	Condition Expr
	Then      Stmt
	Else      Stmt // nil when there is no else branch
}

func (n *IfStatement) Span() Span { return n.SpanVal }
func (n *IfStatement) node()      {}
func (n *IfStatement) stmt()      {}

// ForLoop represents a for loop. All three header sections are required.
type ForLoop struct {
	SpanVal   Span
	Init      Expr
	Condition Expr
	Post      Expr
	Body      Stmt
}

func (n *ForLoop) Span() Span { return n.SpanVal }
func (n *ForLoop) node()      {}
func (n *ForLoop) stmt()      {}

// BlockStmt represents a braced statement list.
type BlockStmt struct {
	SpanVal    Span
	Statements []Stmt
}

func (n *BlockStmt) Span() Span { return n.SpanVal }
func (n *BlockStmt) node()      {}
func (n *BlockStmt) stmt()      {}

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// ---------------------------------------------------------------------------
// Top-level structure
// ---------------------------------------------------------------------------

// Script represents a complete parsed script: a single entry block named
// main holding the statements to execute.
type Script struct {
	SpanVal    Span
	Entry      string // entry block name; must be "main"
	Statements []Stmt
}

func (n *Script) Span() Span { return n.SpanVal }
func (n *Script) node()      {}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// MakeSpan creates a span from start and end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// ZeroSpan returns an empty span.
func ZeroSpan() Span {
	return Span{}
}
