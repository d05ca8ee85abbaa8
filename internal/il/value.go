package il

import (
	"fmt"
	"math"
	"strconv"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	// VTemp is an SSA identifier, %tN, unique within its function.
	VTemp ValueKind = iota
	// VConstInt is an integer literal of a declared integer type.
	VConstInt
	// VConstFloat is an f64 literal.
	VConstFloat
	// VConstStr is a reference to an interned string-literal symbol.
	VConstStr
	// VGlobalRef is a pointer-to-global reference, by name.
	VGlobalRef
	// VNullPtr is the null pointer constant.
	VNullPtr
)

// Value is the tagged SSA operand variant described in spec §3.2. It is
// a plain comparable struct so two Values can be compared with == and
// used as map keys where useful (e.g. constant-folding memoization).
type Value struct {
	Kind ValueKind

	// Temp
	ID uint32
	Ty Type

	// ConstInt
	Int int64

	// ConstFloat
	Float float64

	// ConstStr / GlobalRef: symbol or global name.
	Sym string
}

// Temp constructs an SSA temporary reference.
func Temp(id uint32, ty Type) Value { return Value{Kind: VTemp, ID: id, Ty: ty} }

// ConstInt constructs an integer literal. ty must be one of the integer
// kinds; callers are expected to have validated this (the verifier
// re-checks it regardless).
func ConstInt(v int64, ty Type) Value { return Value{Kind: VConstInt, Int: v, Ty: ty} }

// ConstFloat constructs an f64 literal.
func ConstFloat(v float64) Value { return Value{Kind: VConstFloat, Float: v, Ty: TF64} }

// ConstStr constructs a reference to an interned string symbol.
func ConstStr(sym string) Value { return Value{Kind: VConstStr, Sym: sym, Ty: TStr} }

// GlobalRef constructs a pointer-to-global reference.
func GlobalRef(name string) Value { return Value{Kind: VGlobalRef, Sym: name, Ty: TPtr} }

// NullPtr is the null pointer constant.
var NullPtr = Value{Kind: VNullPtr, Ty: TPtr}

// Type returns the operand's static type.
func (v Value) Type() Type { return v.Ty }

// IsConst reports whether v is one of the literal/constant variants
// (not a Temp).
func (v Value) IsConst() bool {
	return v.Kind != VTemp
}

// String renders v in its canonical IL text-format spelling.
func (v Value) String() string {
	switch v.Kind {
	case VTemp:
		return fmt.Sprintf("%%t%d", v.ID)
	case VConstInt:
		return strconv.FormatInt(v.Int, 10)
	case VConstFloat:
		return FormatFloat(v.Float)
	case VConstStr:
		return strconv.Quote(v.Sym)
	case VGlobalRef:
		return "@" + v.Sym
	case VNullPtr:
		return "null"
	default:
		return "<bad-value>"
	}
}

// FormatFloat renders f as the shortest decimal string that round-trips
// to the same IEEE-754 f64, per spec §4.3.4. strconv's 'g' format with
// precision -1 already implements the shortest round-tripping algorithm;
// we only need to guarantee a decimal point or exponent is present so the
// lexer can distinguish floats from integers on re-parse.
func FormatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "+inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if math.IsNaN(f) {
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' {
			return s
		}
	}
	return s + ".0"
}
