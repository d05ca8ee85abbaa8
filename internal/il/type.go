// Package il defines the core data model for the Viper IL: types, SSA
// values, instructions, basic blocks, functions, externs, globals, and
// modules, plus the opcode metadata table that the parser, serializer,
// and verifier all consult as the single source of truth.
package il

// Kind identifies one of the primitive IL types. Types are value
// objects: small, copyable, and comparable with ==.
type Kind uint8

const (
	Void Kind = iota
	I1
	I16
	I32
	I64
	F64
	Ptr
	Str
	Error
	ResumeTok
)

// Type is a primitive IL type. There are no compound types in the core
// IL; pointers are opaque (no pointee type is tracked beyond "ptr").
type Type struct {
	Kind Kind
}

var (
	TVoid      = Type{Void}
	TI1        = Type{I1}
	TI16       = Type{I16}
	TI32       = Type{I32}
	TI64       = Type{I64}
	TF64       = Type{F64}
	TPtr       = Type{Ptr}
	TStr       = Type{Str}
	TError     = Type{Error}
	TResumeTok = Type{ResumeTok}
)

var mnemonics = map[Kind]string{
	Void:      "void",
	I1:        "i1",
	I16:       "i16",
	I32:       "i32",
	I64:       "i64",
	F64:       "f64",
	Ptr:       "ptr",
	Str:       "str",
	Error:     "error",
	ResumeTok: "resumeTok",
}

var kindsByMnemonic = func() map[string]Kind {
	m := make(map[string]Kind, len(mnemonics))
	for k, s := range mnemonics {
		m[s] = k
	}
	return m
}()

// String returns the canonical lowercase mnemonic for the type, as used
// in the textual IL form (spec §3.1, §6.1).
func (t Type) String() string {
	if s, ok := mnemonics[t.Kind]; ok {
		return s
	}
	return "?"
}

// ParseType resolves a type mnemonic to a Type. ok is false for any
// spelling not in the fixed primitive set.
func ParseType(mnemonic string) (Type, bool) {
	k, ok := kindsByMnemonic[mnemonic]
	if !ok {
		return Type{}, false
	}
	return Type{k}, true
}

// IsInteger reports whether t is one of the integer kinds (i1/i16/i32/i64).
func (t Type) IsInteger() bool {
	switch t.Kind {
	case I1, I16, I32, I64:
		return true
	default:
		return false
	}
}

// IsFloat reports whether t is f64.
func (t Type) IsFloat() bool { return t.Kind == F64 }

// BitWidth returns the width of an integer type, or 0 if t is not an
// integer type. Used for two's-complement wraparound in ConstFold.
func (t Type) BitWidth() int {
	switch t.Kind {
	case I1:
		return 1
	case I16:
		return 16
	case I32:
		return 32
	case I64:
		return 64
	default:
		return 0
	}
}
