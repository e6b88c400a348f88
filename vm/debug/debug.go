// Package debug defines the sidecar symbol file written next to compiled
// programs. The binary format itself carries no names; the sidecar lets
// the disassembler annotate a loaded program with the variable comments
// the compiler would print.
package debug

import (
	"fmt"
	"os"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Ext is the sidecar file extension.
const Ext = ".scpd"

// Variable records one declaration: the slot it was assigned and the
// instruction count at the point of declaration.
type Variable struct {
	Name string `cbor:"1,keyasint"`
	Slot int32  `cbor:"2,keyasint"`
	Pos  int32  `cbor:"3,keyasint"`
}

// Info is the sidecar payload for one compiled program.
type Info struct {
	Source    string     `cbor:"1,keyasint,omitempty"` // path of the compiled source
	Variables []Variable `cbor:"2,keyasint,omitempty"`
}

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("debug: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes debug info to CBOR bytes.
func Marshal(info *Info) ([]byte, error) {
	return cborEncMode.Marshal(info)
}

// Unmarshal deserializes debug info from CBOR bytes.
func Unmarshal(data []byte) (*Info, error) {
	var info Info
	if err := cbor.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("debug: unmarshal info: %w", err)
	}
	return &info, nil
}

// SidecarPath returns the sidecar path for a program path, replacing the
// extension ("out/main.scpt" -> "out/main.scpd").
func SidecarPath(programPath string) string {
	if i := strings.LastIndex(programPath, "."); i > strings.LastIndex(programPath, "/") {
		return programPath[:i] + Ext
	}
	return programPath + Ext
}

// WriteFile marshals and writes a sidecar file.
func WriteFile(path string, info *Info) error {
	data, err := Marshal(info)
	if err != nil {
		return fmt.Errorf("debug: marshal info: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("debug: write sidecar: %w", err)
	}
	return nil
}

// ReadFile reads and unmarshals a sidecar file.
func ReadFile(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("debug: read sidecar: %w", err)
	}
	return Unmarshal(data)
}
