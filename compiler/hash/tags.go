package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the hashing AST serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// all previously computed content hashes and with them the build cache.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// AST node type tags. Each tag uniquely identifies a node kind in the
// serialized byte stream. Parenthesized expressions carry no tag; the
// serializer writes their inner expression in place.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Expressions
	TagNumberLiteral byte = 0x01
	TagStringLiteral byte = 0x02
	TagIdentifier    byte = 0x03
	TagAssignment    byte = 0x04
	TagUnaryExpr     byte = 0x05
	TagBinaryExpr    byte = 0x06
	TagCallExpr      byte = 0x07

	// Reserved 0x08-0x0F

	// Statements / structure
	TagVarDeclaration byte = 0x10
	TagIfStatement    byte = 0x11
	TagForLoop        byte = 0x12
	TagBlockStmt      byte = 0x13
	TagExprStmt       byte = 0x14
	TagScript         byte = 0x15

	// Reserved 0xFE-0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagNumberLiteral, TagStringLiteral, TagIdentifier,
	TagAssignment, TagUnaryExpr, TagBinaryExpr, TagCallExpr,
	TagVarDeclaration, TagIfStatement, TagForLoop,
	TagBlockStmt, TagExprStmt, TagScript,
}
