package compiler

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: Pre-codegen checks
// ---------------------------------------------------------------------------

// SemanticAnalyzer inspects the AST for constructs that lower fine but are
// almost certainly mistakes. It produces warnings only; hard errors stay
// with the lowering stage.
type SemanticAnalyzer struct {
	warnings []string

	declared  map[string]*VarDeclaration // name -> declaring node (first wins)
	used      map[string]bool            // a write counts as a use
	declOrder []string
}

// NewSemanticAnalyzer creates a new semantic analyzer.
func NewSemanticAnalyzer() *SemanticAnalyzer {
	return &SemanticAnalyzer{
		declared: make(map[string]*VarDeclaration),
		used:     make(map[string]bool),
	}
}

// Warnings returns accumulated warnings.
func (s *SemanticAnalyzer) Warnings() []string {
	return s.warnings
}

// warnAt records a warning with position information.
func (s *SemanticAnalyzer) warnAt(node Node, format string, args ...interface{}) {
	pos := node.Span().Start
	msg := fmt.Sprintf("warning: line %d: %s", pos.Line, fmt.Sprintf(format, args...))
	s.warnings = append(s.warnings, msg)
}

// AnalyzeScript analyzes a parsed script.
func (s *SemanticAnalyzer) AnalyzeScript(script *Script) {
	s.analyzeStatements(script.Statements)

	for _, name := range s.declOrder {
		if !s.used[name] {
			s.warnAt(s.declared[name], "variable %q is declared but never used", name)
		}
	}
}

func (s *SemanticAnalyzer) analyzeStatements(stmts []Stmt) {
	for _, stmt := range stmts {
		s.analyzeStmt(stmt)
	}
}

func (s *SemanticAnalyzer) analyzeStmt(stmt Stmt) {
	switch st := stmt.(type) {
	case *VarDeclaration:
		for _, name := range st.Names {
			if _, ok := s.declared[name]; !ok {
				s.declared[name] = st
				s.declOrder = append(s.declOrder, name)
			}
		}
	case *IfStatement:
		s.checkCondition(st.Condition)
		s.analyzeExpr(st.Condition)
		s.analyzeStmt(st.Then)
		if st.Else != nil {
			s.analyzeStmt(st.Else)
		}
	case *ForLoop:
		s.analyzeExpr(st.Init)
		s.checkCondition(st.Condition)
		s.analyzeExpr(st.Condition)
		s.analyzeExpr(st.Post)
		s.analyzeStmt(st.Body)
	case *BlockStmt:
		s.analyzeStatements(st.Statements)
	case *ExprStmt:
		if !hasEffect(st.Expr) {
			s.warnAt(st, "expression statement has no effect")
		}
		s.analyzeExpr(st.Expr)
	}
}

func (s *SemanticAnalyzer) analyzeExpr(expr Expr) {
	switch e := expr.(type) {
	case *Identifier:
		s.used[e.Name] = true
	case *Assignment:
		s.used[e.Target] = true
		s.analyzeExpr(e.Value)
	case *UnaryExpr:
		s.used[e.Target] = true
	case *BinaryExpr:
		if e.Operator == "/" {
			if lit, ok := unwrapParens(e.Right).(*NumberLiteral); ok && lit.Text == "0" {
				s.warnAt(e.Right, "division by constant zero")
			}
		}
		s.analyzeExpr(e.Left)
		s.analyzeExpr(e.Right)
	case *ParenExpr:
		s.analyzeExpr(e.Inner)
	case *CallExpr:
		for _, arg := range e.Args {
			s.analyzeExpr(arg)
		}
	}
}

// checkCondition flags assignment where a comparison was likely intended.
func (s *SemanticAnalyzer) checkCondition(cond Expr) {
	if assign, ok := unwrapParens(cond).(*Assignment); ok {
		s.warnAt(assign, "assignment in condition (did you mean ==?)")
	}
}

// hasEffect reports whether evaluating the expression changes state.
func hasEffect(expr Expr) bool {
	switch e := expr.(type) {
	case *Assignment, *UnaryExpr, *CallExpr:
		return true
	case *ParenExpr:
		return hasEffect(e.Inner)
	case *BinaryExpr:
		return hasEffect(e.Left) || hasEffect(e.Right)
	default:
		return false
	}
}

func unwrapParens(expr Expr) Expr {
	for {
		paren, ok := expr.(*ParenExpr)
		if !ok {
			return expr
		}
		expr = paren.Inner
	}
}

// ---------------------------------------------------------------------------
// Integration with Compile function
// ---------------------------------------------------------------------------

// Analyze parses source and returns analysis warnings. Parse failures yield
// no warnings; the parser reports those as errors.
func Analyze(source string) []string {
	parser := NewParser(source)
	script := parser.ParseScript()
	if script == nil || len(parser.Errors()) > 0 {
		return nil
	}

	analyzer := NewSemanticAnalyzer()
	analyzer.AnalyzeScript(script)
	return analyzer.Warnings()
}
