package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// ---------------------------------------------------------------------------
// Program: the immutable compiled artifact
// ---------------------------------------------------------------------------

// ProgramMagic is the signature that opens every serialized program.
var ProgramMagic = [4]byte{'S', 'C', 'P', 'T'}

var (
	ErrInvalidMagic = errors.New("invalid magic number: expected SCPT")
)

// Program is a finished compilation unit: the instruction sequence plus
// the tables it references. Programs are read-only once built; the
// machine never mutates them.
type Program struct {
	Instructions  []Instruction
	Strings       []string // string table, first-use order
	Labels        []int32  // resolved label positions, indexed by label id
	VariableCount int32    // number of variable slots to allocate at load
}

// Serialize encodes the program to bytes.
// Format (int32 fields little-endian):
//
//	[magic "SCPT":4]
//	[instructionCount:4] [opcode:4 operand:4]...
//	[stringCount:4] [uvarint length + UTF-8 bytes]...
//	[labelCount:4] [position:4]...
//	[variableCount:4]
//
// String lengths use an unsigned LEB128 prefix, not a fixed-width field.
func (p *Program) Serialize() []byte {
	estimated := 4 + 4 + len(p.Instructions)*8 + 4 + len(p.Strings)*16 + 4 + len(p.Labels)*4 + 4
	buf := make([]byte, 0, estimated)

	buf = append(buf, ProgramMagic[:]...)

	// Instructions
	buf = appendInt32(buf, int32(len(p.Instructions)))
	for _, in := range p.Instructions {
		buf = appendInt32(buf, int32(in.Op))
		buf = appendInt32(buf, in.Operand)
	}

	// String table
	buf = appendInt32(buf, int32(len(p.Strings)))
	for _, s := range p.Strings {
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}

	// Label positions
	buf = appendInt32(buf, int32(len(p.Labels)))
	for _, pos := range p.Labels {
		buf = appendInt32(buf, pos)
	}

	// Variable count carries no payload; slots are allocated at load time.
	buf = appendInt32(buf, p.VariableCount)

	return buf
}

// Deserialize decodes a program from bytes.
func Deserialize(data []byte) (*Program, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidMagic, len(data))
	}
	if string(data[0:4]) != string(ProgramMagic[:]) {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, data[0:4])
	}
	pos := 4

	// Instructions
	count, pos, err := readInt32(data, pos, "instruction count")
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("invalid instruction count %d", count)
	}
	p := &Program{Instructions: make([]Instruction, count)}
	for i := int32(0); i < count; i++ {
		var op, operand int32
		op, pos, err = readInt32(data, pos, fmt.Sprintf("instruction %d opcode", i))
		if err != nil {
			return nil, err
		}
		operand, pos, err = readInt32(data, pos, fmt.Sprintf("instruction %d operand", i))
		if err != nil {
			return nil, err
		}
		if !Opcode(op).Valid() {
			return nil, fmt.Errorf("unknown opcode %d at instruction %d", op, i)
		}
		p.Instructions[i] = Instruction{Op: Opcode(op), Operand: operand}
	}

	// String table
	strCount, pos, err := readInt32(data, pos, "string count")
	if err != nil {
		return nil, err
	}
	if strCount < 0 {
		return nil, fmt.Errorf("invalid string count %d", strCount)
	}
	p.Strings = make([]string, strCount)
	for i := int32(0); i < strCount; i++ {
		length, n := binary.Uvarint(data[pos:])
		if n <= 0 {
			return nil, fmt.Errorf("unexpected end of program data reading string %d length", i)
		}
		pos += n
		if uint64(len(data)-pos) < length {
			return nil, fmt.Errorf("unexpected end of program data reading string %d: need %d bytes at pos %d", i, length, pos)
		}
		p.Strings[i] = string(data[pos : pos+int(length)])
		pos += int(length)
	}

	// Label positions
	labelCount, pos, err := readInt32(data, pos, "label count")
	if err != nil {
		return nil, err
	}
	if labelCount < 0 {
		return nil, fmt.Errorf("invalid label count %d", labelCount)
	}
	p.Labels = make([]int32, labelCount)
	for i := int32(0); i < labelCount; i++ {
		var target int32
		target, pos, err = readInt32(data, pos, fmt.Sprintf("label %d position", i))
		if err != nil {
			return nil, err
		}
		if target < 0 || target > count {
			return nil, fmt.Errorf("label %d position %d outside program of %d instructions", i, target, count)
		}
		p.Labels[i] = target
	}

	// Variable count
	varCount, _, err := readInt32(data, pos, "variable count")
	if err != nil {
		return nil, err
	}
	if varCount < 0 {
		return nil, fmt.Errorf("invalid variable count %d", varCount)
	}
	p.VariableCount = varCount

	return p, nil
}

// WriteFile serializes the program to a file.
func (p *Program) WriteFile(path string) error {
	if err := os.WriteFile(path, p.Serialize(), 0o644); err != nil {
		return fmt.Errorf("write program: %w", err)
	}
	return nil
}

// LoadFile reads and deserializes a program file.
func LoadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return Deserialize(data)
}

// ---------------------------------------------------------------------------
// Little-endian helpers
// ---------------------------------------------------------------------------

func appendInt32(buf []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(buf, uint32(v))
}

func readInt32(data []byte, pos int, what string) (int32, int, error) {
	if pos+4 > len(data) {
		return 0, pos, fmt.Errorf("unexpected end of program data reading %s at pos %d", what, pos)
	}
	return int32(binary.LittleEndian.Uint32(data[pos:])), pos + 4, nil
}
