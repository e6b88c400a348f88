package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies a single machine operation. Opcodes are stored as
// int32 in the binary format, interleaved with their operand.
type Opcode int32

// Values and stack
const (
	OpVal  Opcode = 0 // r0 = operand
	OpPush Opcode = 1 // push register (operand = register index)
	OpPop  Opcode = 2 // pop into register (operand = register index)
)

// Control flow (operand = label id, resolved through the label table)
const (
	OpJumpIf    Opcode = 3 // jump if r0 == 0 (condition true)
	OpJumpNotIf Opcode = 4 // jump if r0 != 0 (condition false)
	OpJump      Opcode = 5 // unconditional jump
)

// Host calls
const (
	OpFunc Opcode = 6 // r0 = host call (operand = function id, r0 = argc)
)

// Variables (operand = slot)
const (
	OpAssign Opcode = 7  // vars[slot] = r0
	OpGetVar Opcode = 8  // r0 = vars[slot]
	OpInc    Opcode = 9  // vars[slot] += 1
	OpDec    Opcode = 10 // vars[slot] -= 1
)

// Arithmetic (r0 = r1 OP r0)
const (
	OpAdd Opcode = 11
	OpSub Opcode = 12
	OpMul Opcode = 13
	OpDiv Opcode = 14
)

// Logical. True is 0 and false is 1 throughout; see the comparison group.
const (
	OpAnd Opcode = 15
	OpOr  Opcode = 16 // only r1 is tested, see Machine.step
)

// Comparisons (r0 = 0 if r1 OP r0 holds, else 1)
const (
	OpEquals           Opcode = 17
	OpNotEquals        Opcode = 18
	OpGreaterThan      Opcode = 19
	OpLessThan         Opcode = 20
	OpGreaterOrEquals  Opcode = 21
	OpLessThanOrEquals Opcode = 22
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OperandKind describes how an opcode's operand is interpreted.
type OperandKind int

const (
	OperandNone     OperandKind = iota // operand unused, emitted as 0
	OperandLiteral                     // immediate int32 value
	OperandRegister                    // register index (0 or 1)
	OperandLabel                       // label id into the label table
	OperandSlot                        // variable slot
	OperandHostFunc                    // host function id
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name    string      // mnemonic used by the disassembler
	Operand OperandKind // how to read the operand
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpVal:  {"Val", OperandLiteral},
	OpPush: {"Push", OperandRegister},
	OpPop:  {"Pop", OperandRegister},

	OpJumpIf:    {"JumpIf", OperandLabel},
	OpJumpNotIf: {"JumpNotIf", OperandLabel},
	OpJump:      {"Jump", OperandLabel},

	OpFunc: {"Func", OperandHostFunc},

	OpAssign: {"Assign", OperandSlot},
	OpGetVar: {"GetVar", OperandSlot},
	OpInc:    {"Inc", OperandSlot},
	OpDec:    {"Dec", OperandSlot},

	OpAdd: {"Add", OperandNone},
	OpSub: {"Sub", OperandNone},
	OpMul: {"Mul", OperandNone},
	OpDiv: {"Div", OperandNone},

	OpAnd: {"And", OperandNone},
	OpOr:  {"Or", OperandNone},

	OpEquals:           {"Equals", OperandNone},
	OpNotEquals:        {"NotEquals", OperandNone},
	OpGreaterThan:      {"GreaterThan", OperandNone},
	OpLessThan:         {"LessThan", OperandNone},
	OpGreaterOrEquals:  {"GreaterOrEquals", OperandNone},
	OpLessThanOrEquals: {"LessThanOrEquals", OperandNone},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("Opcode(%d)", int32(op)), Operand: OperandNone}
}

// Name returns the mnemonic for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeTable[op]
	return ok
}

// IsJump reports whether op redirects the program counter.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpIf || op == OpJumpNotIf
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeTable))
	for op := range opcodeTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeTable)
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

// Instruction is one fixed-width (opcode, operand) pair.
type Instruction struct {
	Op      Opcode
	Operand int32
}

// String formats the instruction the way the disassembler prints it.
func (in Instruction) String() string {
	return fmt.Sprintf("%s %d", in.Op.Name(), in.Operand)
}

// ---------------------------------------------------------------------------
// Labels
// ---------------------------------------------------------------------------

// Label identifies a jump target. Ids are allocated monotonically from 0
// and double as indexes into the program's label position table, so jump
// instructions carry the id itself and need no patching.
type Label int32

type labelSlot struct {
	position int32
	resolved bool
}

// ---------------------------------------------------------------------------
// Builder: instruction emitter over the symbol and constant tables
// ---------------------------------------------------------------------------

// VarDecl records one variable declaration for debug output: the slot it
// was assigned and the instruction count at the point of declaration.
type VarDecl struct {
	Name string
	Slot int32
	Pos  int32
}

// Builder accumulates instructions together with the variable, string,
// and label tables, and produces the immutable Program artifact.
// Label positions are write-once after allocation.
type Builder struct {
	instructions []Instruction
	strings      []string
	stringIDs    map[string]int32
	varSlots     map[string]int32
	varDecls     []VarDecl
	labels       []labelSlot
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		instructions: make([]Instruction, 0, 64),
		stringIDs:    make(map[string]int32),
		varSlots:     make(map[string]int32),
	}
}

// Position returns the number of instructions emitted so far.
func (b *Builder) Position() int32 {
	return int32(len(b.instructions))
}

// Emit appends one (opcode, operand) pair.
func (b *Builder) Emit(op Opcode, operand int32) {
	b.instructions = append(b.instructions, Instruction{Op: op, Operand: operand})
}

// EmitOp appends an instruction whose operand is unused.
func (b *Builder) EmitOp(op Opcode) {
	b.Emit(op, 0)
}

// EmitJump appends a jump instruction targeting the given label.
func (b *Builder) EmitJump(op Opcode, label Label) {
	if !op.IsJump() {
		panic(fmt.Sprintf("EmitJump with non-jump opcode %s", op))
	}
	if int(label) < 0 || int(label) >= len(b.labels) {
		panic(fmt.Sprintf("EmitJump with unallocated label %d", label))
	}
	b.Emit(op, int32(label))
}

// AllocateLabel returns a fresh, unresolved label. Its position defaults
// to 0 until MarkLabel is called; Finalize rejects labels left that way.
func (b *Builder) AllocateLabel() Label {
	b.labels = append(b.labels, labelSlot{})
	return Label(len(b.labels) - 1)
}

// MarkLabel resolves a label to the current instruction count.
func (b *Builder) MarkLabel(label Label) {
	if int(label) < 0 || int(label) >= len(b.labels) {
		panic(fmt.Sprintf("mark of unallocated label %d", label))
	}
	if b.labels[label].resolved {
		panic("label already resolved")
	}
	b.labels[label] = labelSlot{position: b.Position(), resolved: true}
}

// DeclareVariable registers a new variable and returns its slot.
func (b *Builder) DeclareVariable(name string) (int32, error) {
	if _, ok := b.varSlots[name]; ok {
		return 0, fmt.Errorf("duplicate variable %q", name)
	}
	slot := int32(len(b.varSlots))
	b.varSlots[name] = slot
	b.varDecls = append(b.varDecls, VarDecl{Name: name, Slot: slot, Pos: b.Position()})
	return slot, nil
}

// ResolveVariable returns the slot of a previously declared variable.
func (b *Builder) ResolveVariable(name string) (int32, error) {
	slot, ok := b.varSlots[name]
	if !ok {
		return 0, fmt.Errorf("undeclared variable %q", name)
	}
	return slot, nil
}

// InternString returns the id for a string literal, reusing the existing
// id when the exact text was interned before.
func (b *Builder) InternString(text string) int32 {
	if id, ok := b.stringIDs[text]; ok {
		return id
	}
	id := int32(len(b.strings))
	b.strings = append(b.strings, text)
	b.stringIDs[text] = id
	return id
}

// VariableDecls returns the recorded declarations in slot order.
func (b *Builder) VariableDecls() []VarDecl {
	decls := make([]VarDecl, len(b.varDecls))
	copy(decls, b.varDecls)
	return decls
}

// Finalize validates the label table and returns the immutable program.
// Every allocated label must have been resolved exactly once: an
// unresolved label would serialize as position 0 and silently send its
// jump back to the start of the program.
func (b *Builder) Finalize() (*Program, error) {
	labels := make([]int32, len(b.labels))
	for i, l := range b.labels {
		if !l.resolved {
			return nil, fmt.Errorf("label %d allocated but never resolved", i)
		}
		labels[i] = l.position
	}

	instructions := make([]Instruction, len(b.instructions))
	copy(instructions, b.instructions)
	strings := make([]string, len(b.strings))
	copy(strings, b.strings)

	return &Program{
		Instructions:  instructions,
		Strings:       strings,
		Labels:        labels,
		VariableCount: int32(len(b.varSlots)),
	}, nil
}
