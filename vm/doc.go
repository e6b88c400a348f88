// Package vm implements the script virtual machine.
//
// This package contains:
//   - The fixed-width (opcode, operand) instruction set and its metadata
//   - The bytecode builder: variable, string, and label tables plus the
//     instruction emitter the compiler drives
//   - The "SCPT" binary program format
//   - The fetch-decode-execute machine with its two registers, operand
//     stack, and variable slots
//   - The host function registry bridging bytecode to native Go
//   - The textual disassembler
package vm
