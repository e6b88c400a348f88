package hash

import (
	"encoding/binary"

	"github.com/Doddler/Scripting-Language-Guide/compiler"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of the script AST.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Counts and string lengths: uint32 big-endian
//   - Strings: uint32 length + UTF-8 bytes
//   - Child nodes: serialized inline (flat)
//
// Spans are never written, so layout, whitespace, and comments cannot
// reach the hash. Numeric literals keep their raw digits: "007" and "7"
// hash apart even though both lower to the same instruction.
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of a node tree.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(node compiler.Node) []byte {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	s.serializeNode(node)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) serializeNode(node compiler.Node) {
	switch n := node.(type) {
	case *compiler.Script:
		s.writeByte(TagScript)
		s.writeString(n.Entry)
		s.writeUint32(uint32(len(n.Statements)))
		for _, stmt := range n.Statements {
			s.serializeStmt(stmt)
		}

	case compiler.Stmt:
		s.serializeStmt(n)

	case compiler.Expr:
		s.serializeExpr(n)
	}
}

func (s *serializer) serializeStmt(stmt compiler.Stmt) {
	switch n := stmt.(type) {
	case *compiler.VarDeclaration:
		s.writeByte(TagVarDeclaration)
		s.writeUint32(uint32(len(n.Names)))
		for _, name := range n.Names {
			s.writeString(name)
		}

	case *compiler.IfStatement:
		s.writeByte(TagIfStatement)
		s.serializeExpr(n.Condition)
		s.serializeStmt(n.Then)
		if n.Else != nil {
			s.writeByte(1)
			s.serializeStmt(n.Else)
		} else {
			s.writeByte(0)
		}

	case *compiler.ForLoop:
		s.writeByte(TagForLoop)
		s.serializeExpr(n.Init)
		s.serializeExpr(n.Condition)
		s.serializeExpr(n.Post)
		s.serializeStmt(n.Body)

	case *compiler.BlockStmt:
		s.writeByte(TagBlockStmt)
		s.writeUint32(uint32(len(n.Statements)))
		for _, inner := range n.Statements {
			s.serializeStmt(inner)
		}

	case *compiler.ExprStmt:
		s.writeByte(TagExprStmt)
		s.serializeExpr(n.Expr)
	}
}

func (s *serializer) serializeExpr(expr compiler.Expr) {
	switch n := expr.(type) {
	case *compiler.NumberLiteral:
		s.writeByte(TagNumberLiteral)
		s.writeString(n.Text)

	case *compiler.StringLiteral:
		s.writeByte(TagStringLiteral)
		s.writeString(n.Value)

	case *compiler.Identifier:
		s.writeByte(TagIdentifier)
		s.writeString(n.Name)

	case *compiler.Assignment:
		s.writeByte(TagAssignment)
		s.writeString(n.Target)
		s.serializeExpr(n.Value)

	case *compiler.UnaryExpr:
		s.writeByte(TagUnaryExpr)
		s.writeString(n.Operator)
		s.writeString(n.Target)

	case *compiler.BinaryExpr:
		s.writeByte(TagBinaryExpr)
		s.writeString(n.Operator)
		s.serializeExpr(n.Left)
		s.serializeExpr(n.Right)

	case *compiler.ParenExpr:
		// Grouping adds no structure; the tree already fixes the
		// evaluation order. Writing the inner expression in place
		// keeps redundant parens out of the hash.
		s.serializeExpr(n.Inner)

	case *compiler.CallExpr:
		s.writeByte(TagCallExpr)
		s.writeString(n.Name)
		s.writeUint32(uint32(len(n.Args)))
		for _, arg := range n.Args {
			s.serializeExpr(arg)
		}
	}
}
