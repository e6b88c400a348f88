// Package hash computes content hashes of parsed scripts for build
// caching. The hash covers structure, literals, and names; layout and
// comments are invisible to it. Variable names stay significant because
// the debug sidecar records them, so a rename must produce a new build.
package hash

import (
	"crypto/sha256"
	"fmt"

	"github.com/Doddler/Scripting-Language-Guide/compiler"
)

// HashScript computes the SHA-256 content hash of a parsed script.
func HashScript(script *compiler.Script) [32]byte {
	return sha256.Sum256(Serialize(script))
}

// HashSource parses source text and hashes the resulting script.
func HashSource(source string) ([32]byte, error) {
	p := compiler.NewParser(source)
	script := p.ParseScript()
	if errs := p.Errors(); len(errs) > 0 {
		return [32]byte{}, fmt.Errorf("parse errors: %v", errs)
	}
	return HashScript(script), nil
}

// HashBytes hashes raw artifact bytes, for keying compiled output that
// has no AST form.
func HashBytes(data []byte) [32]byte {
	return sha256.Sum256(data)
}
