package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Doddler/Scripting-Language-Guide/vm"
)

// ---------------------------------------------------------------------------
// Codegen: Lower AST to bytecode
// ---------------------------------------------------------------------------

// Compiler lowers AST nodes to bytecode. Expression results land in r0;
// anything that must survive a nested lowering travels through the stack.
type Compiler struct {
	hosts   *vm.HostRegistry
	logger  *zap.Logger
	builder *vm.Builder
	errors  []string
}

// Option configures a Compiler.
type Option func(*Compiler) *Compiler

// WithHostRegistry sets the registry used to resolve host function names.
func WithHostRegistry(hosts *vm.HostRegistry) Option {
	return func(c *Compiler) *Compiler {
		c.hosts = hosts
		return c
	}
}

// WithLogger sets the compiler logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) *Compiler {
		c.logger = l
		return c
	}
}

// NewCompiler creates a compiler bound to the standard host registry.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		hosts:  vm.StandardHostRegistry(),
		logger: zap.L(),
	}
	for _, opt := range opts {
		c = opt(c)
	}
	c.logger = c.logger.Named("compiler")
	return c
}

// Errors returns accumulated compilation errors.
func (c *Compiler) Errors() []string {
	return c.errors
}

// VariableDecls returns the variable declarations recorded during the last
// CompileScript, for debug sidecars and disassembly.
func (c *Compiler) VariableDecls() []vm.VarDecl {
	if c.builder == nil {
		return nil
	}
	return c.builder.VariableDecls()
}

// errorf records a compilation error against a source position.
func (c *Compiler) errorf(pos Position, format string, args ...interface{}) {
	msg := fmt.Sprintf("line %d: %s", pos.Line, fmt.Sprintf(format, args...))
	c.errors = append(c.errors, msg)
}

// CompileScript lowers a parsed script to an executable program.
func (c *Compiler) CompileScript(script *Script) (*vm.Program, error) {
	c.builder = vm.NewBuilder()
	c.errors = nil

	for _, stmt := range script.Statements {
		c.compileStmt(stmt)
	}

	if len(c.errors) > 0 {
		return nil, fmt.Errorf("compile errors: %s", strings.Join(c.errors, "; "))
	}

	prog, err := c.builder.Finalize()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("compiled script",
		zap.Int("instructions", len(prog.Instructions)),
		zap.Int("strings", len(prog.Strings)),
		zap.Int32("variables", prog.VariableCount))

	return prog, nil
}

// ---------------------------------------------------------------------------
// Statement lowering
// ---------------------------------------------------------------------------

func (c *Compiler) compileStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *VarDeclaration:
		c.compileVarDeclaration(s)
	case *IfStatement:
		c.compileIf(s)
	case *ForLoop:
		c.compileFor(s)
	case *BlockStmt:
		for _, inner := range s.Statements {
			c.compileStmt(inner)
		}
	case *ExprStmt:
		c.compileExpr(s.Expr)
	default:
		c.errorf(stmt.Span().Start, "unknown statement type: %T", stmt)
	}
}

func (c *Compiler) compileVarDeclaration(decl *VarDeclaration) {
	for _, name := range decl.Names {
		if _, err := c.builder.DeclareVariable(name); err != nil {
			c.errorf(decl.SpanVal.Start, "%v", err)
		}
	}
}

// compileIf lowers a conditional. The condition leaves its truth value in
// r0; JumpNotIf takes the branch when r0 holds false.
func (c *Compiler) compileIf(s *IfStatement) {
	elseLabel := c.builder.AllocateLabel()
	endLabel := c.builder.AllocateLabel()

	c.compileExpr(s.Condition)
	c.builder.EmitJump(vm.OpJumpNotIf, elseLabel)

	c.compileStmt(s.Then)
	c.builder.EmitJump(vm.OpJump, endLabel)

	c.builder.MarkLabel(elseLabel)
	if s.Else != nil {
		c.compileStmt(s.Else)
	}
	c.builder.MarkLabel(endLabel)
}

// compileFor lowers a loop. The start label is marked before the condition
// so the condition reruns on every iteration.
func (c *Compiler) compileFor(s *ForLoop) {
	c.compileExpr(s.Init)

	startLabel := c.builder.AllocateLabel()
	c.builder.MarkLabel(startLabel)
	endLabel := c.builder.AllocateLabel()

	c.compileExpr(s.Condition)
	c.builder.EmitJump(vm.OpJumpNotIf, endLabel)

	c.compileStmt(s.Body)
	c.compileExpr(s.Post)

	c.builder.EmitJump(vm.OpJump, startLabel)
	c.builder.MarkLabel(endLabel)
}

// ---------------------------------------------------------------------------
// Expression lowering
// ---------------------------------------------------------------------------

func (c *Compiler) compileExpr(expr Expr) {
	switch e := expr.(type) {
	case *NumberLiteral:
		c.compileNumber(e)
	case *StringLiteral:
		id := c.builder.InternString(e.Value)
		c.builder.Emit(vm.OpVal, id)
	case *Identifier:
		slot, err := c.builder.ResolveVariable(e.Name)
		if err != nil {
			c.errorf(e.SpanVal.Start, "%v", err)
			return
		}
		c.builder.Emit(vm.OpGetVar, slot)
	case *Assignment:
		c.compileAssignment(e)
	case *UnaryExpr:
		c.compileUnary(e)
	case *BinaryExpr:
		c.compileBinary(e)
	case *ParenExpr:
		c.compileExpr(e.Inner)
	case *CallExpr:
		c.compileCall(e)
	default:
		c.errorf(expr.Span().Start, "unknown expression type: %T", expr)
	}
}

func (c *Compiler) compileNumber(lit *NumberLiteral) {
	value, err := strconv.ParseInt(lit.Text, 10, 32)
	if err != nil {
		c.errorf(lit.SpanVal.Start, "bad numeric literal %q", lit.Text)
		return
	}
	c.builder.Emit(vm.OpVal, int32(value))
}

// compileAssignment lowers x = expr. The target resolves before the value
// lowers, so an unknown target reports ahead of errors inside the value.
// Assign stores r0 into the slot and leaves r0 untouched, which makes
// chained assignment fall out for free.
func (c *Compiler) compileAssignment(assign *Assignment) {
	slot, err := c.builder.ResolveVariable(assign.Target)
	if err != nil {
		c.errorf(assign.SpanVal.Start, "%v", err)
		// still lower the value so nested errors surface
		c.compileExpr(assign.Value)
		return
	}

	c.compileExpr(assign.Value)
	c.builder.Emit(vm.OpAssign, slot)
}

// compileUnary lowers x++ and x--. Both operate on the slot directly and
// leave r0 alone.
func (c *Compiler) compileUnary(u *UnaryExpr) {
	slot, err := c.builder.ResolveVariable(u.Target)
	if err != nil {
		c.errorf(u.SpanVal.Start, "%v", err)
		return
	}

	op := vm.OpInc
	if u.Operator == "--" {
		op = vm.OpDec
	}
	c.builder.Emit(op, slot)
}

// binaryOpcodes maps operator text to the opcode computing r1 OP r0.
var binaryOpcodes = map[string]vm.Opcode{
	"+":  vm.OpAdd,
	"-":  vm.OpSub,
	"*":  vm.OpMul,
	"/":  vm.OpDiv,
	"&&": vm.OpAnd,
	"||": vm.OpOr,
	"==": vm.OpEquals,
	"!=": vm.OpNotEquals,
	">":  vm.OpGreaterThan,
	"<":  vm.OpLessThan,
	">=": vm.OpGreaterOrEquals,
	"<=": vm.OpLessThanOrEquals,
}

// compileBinary lowers left OP right. The left value travels through the
// stack so the right side may clobber r0 freely:
//
//	<left>    r0 = left
//	Push 0
//	<right>   r0 = right
//	Pop 1     r1 = left
//	<op>      r0 = r1 OP r0
func (c *Compiler) compileBinary(bin *BinaryExpr) {
	op, ok := binaryOpcodes[bin.Operator]
	if !ok {
		c.errorf(bin.SpanVal.Start, "unknown operator %q", bin.Operator)
		return
	}

	c.compileExpr(bin.Left)
	c.builder.Emit(vm.OpPush, 0)
	c.compileExpr(bin.Right)
	c.builder.Emit(vm.OpPop, 1)
	c.builder.EmitOp(op)
}

// compileCall lowers a host function call. Each argument is pushed as it is
// lowered, the argument count goes to r0, and Func transfers control. The
// callee pops its arguments, so the first argument sits deepest.
func (c *Compiler) compileCall(call *CallExpr) {
	id, ok := c.hosts.ResolveID(call.Name)
	if !ok {
		c.errorf(call.SpanVal.Start, "unknown function %q", call.Name)
	}

	for _, arg := range call.Args {
		c.compileExpr(arg)
		c.builder.Emit(vm.OpPush, 0)
	}

	if !ok {
		return
	}
	c.builder.Emit(vm.OpVal, int32(len(call.Args)))
	c.builder.Emit(vm.OpFunc, id)
}

// ---------------------------------------------------------------------------
// Compile helpers for external use
// ---------------------------------------------------------------------------

// Compile parses and lowers source code to an executable program.
func Compile(source string, opts ...Option) (*vm.Program, error) {
	prog, _, err := CompileWithInfo(source, opts...)
	return prog, err
}

// CompileWithInfo parses and lowers source code, additionally returning the
// variable declarations for debug sidecars and disassembly.
func CompileWithInfo(source string, opts ...Option) (*vm.Program, []vm.VarDecl, error) {
	parser := NewParser(source)
	script := parser.ParseScript()
	if len(parser.Errors()) > 0 {
		return nil, nil, fmt.Errorf("parse errors: %v", parser.Errors())
	}

	compiler := NewCompiler(opts...)
	prog, err := compiler.CompileScript(script)
	if err != nil {
		return nil, nil, err
	}
	return prog, compiler.VariableDecls(), nil
}
