package basiclower

import (
	"github.com/viper-lang/viper/internal/basicast"
	"github.com/viper-lang/viper/internal/il"
)

// unaryFloatHelpers lowers a builtin taking one operand, promoted to
// f64, straight to a single registered runtime helper with no other
// bookkeeping.
var unaryFloatHelpers = map[string]string{
	"SQR": "rt_sqrt",
	"SIN": "rt_sin",
	"COS": "rt_cos",
	"ATN": "rt_atan",
	"LOG": "rt_log",
	"EXP": "rt_exp",
}

// lowerBuiltin lowers a BASIC builtin call by canonical uppercase name.
// CHR$ and ASC are intentionally unsupported: the runtime ABI has no
// character/codepoint helper for either to ground on. Frontend semantic
// analysis has already validated arity and operand types against its
// own copy of this registry (spec §4.9.4); lowering trusts that and
// treats any other unrecognized name as an internal invariant failure,
// not a user error.
//
// The second return value is false only for a builtin lowered purely
// for effect (RANDOMIZE); callers in expression position never see it,
// since semantic analysis would not have allowed such a builtin there.
func (b *funcBuilder) lowerBuiltin(name string, args []basicast.Expr, loc il.SourceLoc) (il.Value, bool) {
	switch name {
	case "ABS":
		x := b.lowerExpr(args[0])
		if x.Type() == il.TF64 {
			return b.callHelper("rt_abs_f64", []il.Value{x}, loc), true
		}
		return b.callHelper("rt_abs_i64", []il.Value{x}, loc), true

	case "INT", "FIX":
		x := b.lowerExpr(args[0])
		if x.Type() != il.TF64 {
			return x, true
		}
		if name == "INT" {
			x = b.callHelper("rt_floor", []il.Value{x}, loc)
		}
		return b.toInt(x, loc), true

	case "SGN":
		return b.lowerSgn(b.lowerExpr(args[0]), loc), true

	case "RND":
		return b.callHelper("rt_rng_next", nil, loc), true

	case "RANDOMIZE":
		seed := b.toInt(b.lowerExpr(args[0]), loc)
		b.callHelperVoid("rt_rng_seed", []il.Value{seed}, loc)
		return il.Value{}, false

	case "LEN":
		return b.callHelper("rt_str_len", []il.Value{b.lowerExpr(args[0])}, loc), true

	case "UCASE$":
		return b.callHelper("rt_str_upper", []il.Value{b.lowerExpr(args[0])}, loc), true
	case "LCASE$":
		return b.callHelper("rt_str_lower", []il.Value{b.lowerExpr(args[0])}, loc), true

	case "STR$":
		x := b.lowerExpr(args[0])
		if x.Type() == il.TF64 {
			return b.callHelper("rt_fmt_float", []il.Value{x}, loc), true
		}
		return b.callHelper("rt_fmt_int", []il.Value{b.toInt(x, loc)}, loc), true

	case "VAL":
		return b.callHelper("rt_parse_float", []il.Value{b.lowerExpr(args[0])}, loc), true

	case "LEFT$":
		s := b.lowerExpr(args[0])
		n := b.toInt(b.lowerExpr(args[1]), loc)
		zero := il.ConstInt(0, il.TI64)
		return b.callHelper("rt_str_substr", []il.Value{s, zero, n}, loc), true

	case "RIGHT$":
		s := b.lowerExpr(args[0])
		n := b.toInt(b.lowerExpr(args[1]), loc)
		slen := b.callHelper("rt_str_len", []il.Value{s}, loc)
		start := b.arith(il.OpSub, slen, n, loc)
		return b.callHelper("rt_str_substr", []il.Value{s, start, n}, loc), true

	case "MID$":
		s := b.lowerExpr(args[0])
		start1 := b.toInt(b.lowerExpr(args[1]), loc)
		start0 := b.arith(il.OpSub, start1, il.ConstInt(1, il.TI64), loc)
		var length il.Value
		if len(args) >= 3 {
			length = b.toInt(b.lowerExpr(args[2]), loc)
		} else {
			slen := b.callHelper("rt_str_len", []il.Value{s}, loc)
			length = b.arith(il.OpSub, slen, start0, loc)
		}
		return b.callHelper("rt_str_substr", []il.Value{s, start0, length}, loc), true
	}

	if helper, ok := unaryFloatHelpers[name]; ok {
		x := b.toFloat(b.lowerExpr(args[0]), loc)
		return b.callHelper(helper, []il.Value{x}, loc), true
	}

	assertf(loc, "basiclower: unrecognized builtin %s", name)
	return il.Value{}, false
}

// lowerSgn expands SGN(x) to -1, 0, or 1 via two nested control-flow
// selects — no registered helper computes a sign directly.
func (b *funcBuilder) lowerSgn(x il.Value, loc il.SourceLoc) il.Value {
	ty := x.Type()
	zero := il.ConstInt(0, il.TI64)
	negOne := il.ConstInt(-1, il.TI64)
	posOne := il.ConstInt(1, il.TI64)

	var isNeg, isPos il.Value
	if ty == il.TF64 {
		isNeg = b.arith(il.OpFCmpLt, x, il.ConstFloat(0), loc)
		isPos = b.arith(il.OpFCmpGt, x, il.ConstFloat(0), loc)
	} else {
		isNeg = b.arith(il.OpICmpLt, x, il.ConstInt(0, ty), loc)
		isPos = b.arith(il.OpICmpGt, x, il.ConstInt(0, ty), loc)
	}
	posOrZero := b.selectValue(isPos, posOne, zero, "sgn.pos", loc)
	return b.selectValue(isNeg, negOne, posOrZero, "sgn.neg", loc)
}
