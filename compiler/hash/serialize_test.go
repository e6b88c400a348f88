package hash

import (
	"encoding/binary"
	"testing"

	"github.com/Doddler/Scripting-Language-Guide/compiler"
)

func TestSerialize_Deterministic(t *testing.T) {
	node := &compiler.ExprStmt{
		Expr: &compiler.BinaryExpr{
			Operator: "+",
			Left:     &compiler.Identifier{Name: "x"},
			Right:    &compiler.NumberLiteral{Text: "42"},
		},
	}

	data1 := Serialize(node)
	data2 := Serialize(node)

	if string(data1) != string(data2) {
		t.Error("serialization is not deterministic")
	}
}

func TestSerialize_VersionPrefix(t *testing.T) {
	data := Serialize(&compiler.NumberLiteral{Text: "1"})

	if len(data) < 1 {
		t.Fatal("empty serialization")
	}
	if data[0] != HashVersion {
		t.Errorf("version prefix: got 0x%02X, want 0x%02X", data[0], HashVersion)
	}
}

func TestSerialize_NumberLiteral(t *testing.T) {
	data := Serialize(&compiler.NumberLiteral{Text: "42"})

	// version(1) + tag(1) + len(4) + "42"(2) = 8
	if len(data) != 8 {
		t.Fatalf("length: got %d, want 8", len(data))
	}
	if data[1] != TagNumberLiteral {
		t.Errorf("tag: got 0x%02X, want 0x%02X", data[1], TagNumberLiteral)
	}
	if strLen := binary.BigEndian.Uint32(data[2:6]); strLen != 2 {
		t.Errorf("text length: got %d, want 2", strLen)
	}
	if string(data[6:8]) != "42" {
		t.Errorf("text: got %q, want %q", string(data[6:8]), "42")
	}
}

func TestSerialize_StringLiteral(t *testing.T) {
	data := Serialize(&compiler.StringLiteral{Value: "hello"})

	// version(1) + tag(1) + len(4) + "hello"(5) = 11
	if len(data) != 11 {
		t.Fatalf("length: got %d, want 11", len(data))
	}
	if data[1] != TagStringLiteral {
		t.Errorf("tag: got 0x%02X, want 0x%02X", data[1], TagStringLiteral)
	}
	if string(data[6:11]) != "hello" {
		t.Errorf("value: got %q, want %q", string(data[6:11]), "hello")
	}
}

func TestSerialize_EmptyScript(t *testing.T) {
	data := Serialize(&compiler.Script{Entry: "main"})

	// version(1) + tag(1) + len(4) + "main"(4) + count(4) = 14
	if len(data) != 14 {
		t.Fatalf("length: got %d, want 14", len(data))
	}
	if data[1] != TagScript {
		t.Errorf("tag: got 0x%02X, want 0x%02X", data[1], TagScript)
	}
	if count := binary.BigEndian.Uint32(data[10:14]); count != 0 {
		t.Errorf("statement count: got %d, want 0", count)
	}
}

func TestSerialize_ElsePresence(t *testing.T) {
	cond := func() compiler.Expr { return &compiler.Identifier{Name: "x"} }
	withoutElse := &compiler.IfStatement{
		Condition: cond(),
		Then:      &compiler.BlockStmt{},
	}
	withElse := &compiler.IfStatement{
		Condition: cond(),
		Then:      &compiler.BlockStmt{},
		Else:      &compiler.BlockStmt{},
	}

	bare := Serialize(withoutElse)
	full := Serialize(withElse)

	if string(bare) == string(full) {
		t.Error("if with and without else serialize identically")
	}
	// The presence byte closes the bare form.
	if bare[len(bare)-1] != 0 {
		t.Errorf("bare if ends with 0x%02X, want 0x00", bare[len(bare)-1])
	}
}

func TestSerialize_ParensTransparent(t *testing.T) {
	wrapped := Serialize(&compiler.ParenExpr{Inner: &compiler.Identifier{Name: "x"}})
	plain := Serialize(&compiler.Identifier{Name: "x"})

	if string(wrapped) != string(plain) {
		t.Error("redundant parens changed the serialization")
	}
}

func TestSerialize_DifferentNodesDiffer(t *testing.T) {
	nodes := []compiler.Node{
		&compiler.NumberLiteral{Text: "1"},
		&compiler.StringLiteral{Value: "1"},
		&compiler.Identifier{Name: "1"},
		&compiler.UnaryExpr{Operator: "++", Target: "x"},
		&compiler.UnaryExpr{Operator: "--", Target: "x"},
		&compiler.CallExpr{Name: "f"},
		&compiler.VarDeclaration{Names: []string{"x"}},
		&compiler.BlockStmt{},
		&compiler.Script{Entry: "main"},
	}

	seen := make(map[string]int)
	for i, node := range nodes {
		data := string(Serialize(node))
		if prev, ok := seen[data]; ok {
			t.Errorf("node %d and %d produce identical serializations", prev, i)
		}
		seen[data] = i
	}
}
