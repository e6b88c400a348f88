package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// Disassemble renders a program in the textual dump format: one
// "MNEMONIC operand" line per instruction, ":Label<id>" markers at each
// label's resolved position, and "//var <name> is id <n>" comments at
// declaration points when decls are supplied (nil produces a bare
// listing). At the same position, variable comments print before label
// markers, and labels print in id order.
func Disassemble(p *Program, decls []VarDecl) string {
	labelsAt := make(map[int32][]int, len(p.Labels))
	for id, pos := range p.Labels {
		labelsAt[pos] = append(labelsAt[pos], id)
	}
	declsAt := make(map[int32][]VarDecl, len(decls))
	for _, d := range decls {
		declsAt[d.Pos] = append(declsAt[d.Pos], d)
	}

	var sb strings.Builder
	end := int32(len(p.Instructions))
	for i := int32(0); i <= end; i++ {
		for _, d := range declsAt[i] {
			fmt.Fprintf(&sb, "//var %s is id %d\n", d.Name, d.Slot)
		}
		for _, id := range labelsAt[i] {
			fmt.Fprintf(&sb, ":Label%d\n", id)
		}
		if i < end {
			in := p.Instructions[i]
			fmt.Fprintf(&sb, "%s %d\n", in.Op.Name(), in.Operand)
		}
	}
	return sb.String()
}
