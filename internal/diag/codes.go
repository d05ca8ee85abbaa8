// Package diag provides the core's diagnostics and source-map types:
// a SourceManager assigning stable file ids, a SourceLoc triple, a Diag
// value carrying severity/message/location/code, a DiagSink for
// collecting-mode passes, and the Expected[T] result type every
// fallible core API returns instead of a bare error (spec §4.4, §7).
package diag

// Error codes are organized by phase, matching the taxonomy in spec §7.
// Each constant is referenced from exactly the diagnostic sites named
// in its doc comment; Registry carries the human-readable catalog.
const (
	// Syntax errors (textual IL grammar, spec §4.3.2).
	PAR001 = "PAR001" // unexpected token
	PAR002 = "PAR002" // malformed <mnemonic>
	PAR003 = "PAR003" // unknown opcode
	PAR004 = "PAR004" // duplicate label
	PAR005 = "PAR005" // undefined id
	PAR006 = "PAR006" // malformed type mnemonic
	PAR007 = "PAR007" // malformed module header / version

	// Structural errors (spec §3.7, §4.5).
	STR001 = "STR001" // duplicate extern/global/function/block/id name
	STR002 = "STR002" // missing or misplaced terminator
	STR003 = "STR003" // branch-argument arity mismatch
	STR004 = "STR004" // branch-argument type mismatch
	STR005 = "STR005" // call arity mismatch
	STR006 = "STR006" // call argument type mismatch
	STR007 = "STR007" // undefined successor label
	STR008 = "STR008" // operand count/category mismatch
	STR009 = "STR009" // use not dominated by its definition
	STR010 = "STR010" // void callee produced a result id
	STR011 = "STR011" // unresolved callee name

	// Runtime-ABI coherence errors (spec §3.7.6, §4.5.1 step 1).
	ABI001 = "ABI001" // extern signature mismatches the runtime registry

	// Frontend-semantic errors surfaced by BASIC analysis before
	// lowering (spec §4.9.6); lowering itself never raises these.
	SEM001 = "SEM001"

	// Lowering-phase errors the scan pass raises about the BASIC AST
	// itself, distinct from SEM001 (which lowering only forwards, never
	// produces) and from INT### (which is always about already-built
	// IR): these are checks spec §4.9.3 assigns to scan specifically.
	LOW001 = "LOW001" // FUNCTION has a reachable path without RETURN
	LOW002 = "LOW002" // GOTO target not declared anywhere in the procedure
	LOW003 = "LOW003" // array declared with more than one dimension

	// Internal invariant violations: a pass observed an IR that
	// violates spec §3.7 (spec §7 category 5).
	INT001 = "INT001" // fixpoint pass exceeded its iteration bound
	INT002 = "INT002" // pass produced an IR the verifier rejects
	INT003 = "INT003" // lowering assertion failure on a pre-validated AST
)

// Info is the catalog entry for an error code.
type Info struct {
	Code        string
	Phase       string
	Description string
}

// Registry maps every defined code to its catalog entry.
var Registry = map[string]Info{
	PAR001: {PAR001, "parse", "Unexpected token"},
	PAR002: {PAR002, "parse", "Malformed instruction"},
	PAR003: {PAR003, "parse", "Unknown opcode"},
	PAR004: {PAR004, "parse", "Duplicate block label"},
	PAR005: {PAR005, "parse", "Undefined SSA id"},
	PAR006: {PAR006, "parse", "Malformed type mnemonic"},
	PAR007: {PAR007, "parse", "Malformed module header"},

	STR001: {STR001, "verify", "Duplicate name"},
	STR002: {STR002, "verify", "Missing or misplaced terminator"},
	STR003: {STR003, "verify", "Branch-argument arity mismatch"},
	STR004: {STR004, "verify", "Branch-argument type mismatch"},
	STR005: {STR005, "verify", "Call arity mismatch"},
	STR006: {STR006, "verify", "Call argument type mismatch"},
	STR007: {STR007, "verify", "Undefined successor label"},
	STR008: {STR008, "verify", "Operand category or count mismatch"},
	STR009: {STR009, "verify", "Use not dominated by its definition"},
	STR010: {STR010, "verify", "Void callee has a result id"},
	STR011: {STR011, "verify", "Unresolved callee name"},

	ABI001: {ABI001, "verify", "Extern contradicts runtime ABI registry"},

	SEM001: {SEM001, "lower", "Semantic error from frontend analysis"},
	LOW001: {LOW001, "lower", "FUNCTION has a path that never reaches RETURN"},
	LOW002: {LOW002, "lower", "GOTO target is not declared in this procedure"},
	LOW003: {LOW003, "lower", "array has more than one dimension"},

	INT001: {INT001, "internal", "Fixpoint pass exceeded iteration bound"},
	INT002: {INT002, "internal", "Pass produced an invalid module"},
	INT003: {INT003, "internal", "Lowering assertion failure"},
}

// Lookup returns the catalog entry for code.
func Lookup(code string) (Info, bool) {
	info, ok := Registry[code]
	return info, ok
}
