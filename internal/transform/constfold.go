// Package transform holds the optimization passes of spec §4.8, one
// file per pass, each registered with internal/passmgr's registry from
// its own init(). Every pass operates in place on an *il.Function and
// reports whether it changed anything, per spec §4.8's "All transforms
// operate in place and return a changed flag."
package transform

import (
	"math"

	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/ilrt"
	"github.com/viper-lang/viper/internal/passmgr"
)

func init() {
	passmgr.Register(ConstFoldPass{})
}

// ConstFoldPass folds constant integer/float arithmetic, comparisons,
// and a fixed whitelist of pure runtime helpers (spec §4.8.1,
// SPEC_FULL.md §E). An instruction whose result is fully replaced is
// erased; every remaining use is rewritten via Instr.ReplaceUses.
type ConstFoldPass struct{}

func (ConstFoldPass) Name() string { return "constfold" }
func (ConstFoldPass) Description() string {
	return "folds constant arithmetic, comparisons, and pure runtime helper calls"
}
func (ConstFoldPass) Preserves() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG, passmgr.AnalysisDominators, passmgr.AnalysisLoopInfo}
}

func (ConstFoldPass) RunFunction(fn *il.Function, cache *passmgr.AnalysisCache, fi int) bool {
	type replacement struct {
		from uint32
		to   il.Value
	}
	var repls []replacement
	erase := map[uint32]bool{}

	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		for ii := range blk.Instrs {
			instr := &blk.Instrs[ii]
			if !instr.HasResult {
				continue
			}
			if v, ok := foldInstr(instr); ok {
				repls = append(repls, replacement{from: instr.ResultID, to: v})
				erase[instr.ResultID] = true
			}
		}
	}
	if len(repls) == 0 {
		return false
	}

	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		for ii := range blk.Instrs {
			for _, r := range repls {
				blk.Instrs[ii].ReplaceUses(r.from, r.to)
			}
		}
	}
	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		kept := blk.Instrs[:0]
		for _, instr := range blk.Instrs {
			if instr.HasResult && erase[instr.ResultID] {
				continue
			}
			kept = append(kept, instr)
		}
		blk.Instrs = kept
	}
	return true
}

func foldInstr(instr *il.Instr) (il.Value, bool) {
	if instr.Op == il.OpCall {
		return foldCall(instr)
	}
	if !allConst(instr.Args) {
		return il.Value{}, false
	}
	switch instr.Op {
	case il.OpAdd, il.OpSub, il.OpMul, il.OpSDiv, il.OpSRem, il.OpAnd, il.OpOr, il.OpXor, il.OpShl, il.OpShr:
		return foldIntBinary(instr)
	case il.OpNeg:
		a := instr.Args[0]
		return il.ConstInt(wrapToWidth(-a.Int, a.Ty.BitWidth()), a.Ty), true
	case il.OpFAdd, il.OpFSub, il.OpFMul, il.OpFDiv:
		return foldFloatBinary(instr)
	case il.OpFNeg:
		return il.ConstFloat(-instr.Args[0].Float), true
	case il.OpICmpEq, il.OpICmpNe, il.OpICmpLt, il.OpICmpLe, il.OpICmpGt, il.OpICmpGe:
		return foldIntCompare(instr)
	case il.OpFCmpEq, il.OpFCmpNe, il.OpFCmpLt, il.OpFCmpLe, il.OpFCmpGt, il.OpFCmpGe:
		return foldFloatCompare(instr)
	default:
		return il.Value{}, false
	}
}

func allConst(args []il.Value) bool {
	for _, a := range args {
		if !a.IsConst() {
			return false
		}
	}
	return true
}

// wrapToWidth truncates v to width bits of two's-complement storage,
// matching VM semantics (spec §4.8.1). i1 results are kept as plain
// 0/1 rather than sign-extended, since they denote booleans.
func wrapToWidth(v int64, width int) int64 {
	if width <= 0 || width >= 64 {
		return v
	}
	mask := int64(1)<<uint(width) - 1
	v &= mask
	if width == 1 {
		return v
	}
	signBit := int64(1) << uint(width-1)
	if v&signBit != 0 {
		v -= int64(1) << uint(width)
	}
	return v
}

func foldIntBinary(instr *il.Instr) (il.Value, bool) {
	a, b := instr.Args[0], instr.Args[1]
	width := a.Ty.BitWidth()
	var raw int64
	switch instr.Op {
	case il.OpAdd:
		raw = a.Int + b.Int
	case il.OpSub:
		raw = a.Int - b.Int
	case il.OpMul:
		raw = a.Int * b.Int
	case il.OpSDiv:
		if b.Int == 0 {
			return il.Value{}, false
		}
		raw = a.Int / b.Int
	case il.OpSRem:
		if b.Int == 0 {
			return il.Value{}, false
		}
		raw = a.Int % b.Int
	case il.OpAnd:
		raw = a.Int & b.Int
	case il.OpOr:
		raw = a.Int | b.Int
	case il.OpXor:
		raw = a.Int ^ b.Int
	case il.OpShl:
		raw = a.Int << uint(b.Int&63)
	case il.OpShr:
		raw = a.Int >> uint(b.Int&63)
	}
	return il.ConstInt(wrapToWidth(raw, width), a.Ty), true
}

func foldIntCompare(instr *il.Instr) (il.Value, bool) {
	a, b := instr.Args[0], instr.Args[1]
	var res bool
	switch instr.Op {
	case il.OpICmpEq:
		res = a.Int == b.Int
	case il.OpICmpNe:
		res = a.Int != b.Int
	case il.OpICmpLt:
		res = a.Int < b.Int
	case il.OpICmpLe:
		res = a.Int <= b.Int
	case il.OpICmpGt:
		res = a.Int > b.Int
	case il.OpICmpGe:
		res = a.Int >= b.Int
	}
	return il.ConstInt(boolToI1(res), il.TI1), true
}

func foldFloatBinary(instr *il.Instr) (il.Value, bool) {
	a, b := instr.Args[0], instr.Args[1]
	var r float64
	switch instr.Op {
	case il.OpFAdd:
		r = a.Float + b.Float
	case il.OpFSub:
		r = a.Float - b.Float
	case il.OpFMul:
		r = a.Float * b.Float
	case il.OpFDiv:
		r = a.Float / b.Float
	}
	return il.ConstFloat(r), true
}

func foldFloatCompare(instr *il.Instr) (il.Value, bool) {
	a, b := instr.Args[0], instr.Args[1]
	var res bool
	switch instr.Op {
	case il.OpFCmpEq:
		res = a.Float == b.Float
	case il.OpFCmpNe:
		res = a.Float != b.Float
	case il.OpFCmpLt:
		res = a.Float < b.Float
	case il.OpFCmpLe:
		res = a.Float <= b.Float
	case il.OpFCmpGt:
		res = a.Float > b.Float
	case il.OpFCmpGe:
		res = a.Float >= b.Float
	}
	return il.ConstInt(boolToI1(res), il.TI1), true
}

func boolToI1(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// foldCall folds the fixed whitelist of pure runtime helpers named in
// spec §4.8.1 and SPEC_FULL.md §E: absolute value; floor/ceil; sqrt
// when the input is non-negative; integer power with a small,
// non-negative exponent; sin(0)=0 and cos(0)=1; and the length of a
// constant string literal. ilrt.IsPure is consulted for the abs,
// floor/ceil, pow, and string-length cases; rt_sqrt (registered as
// EffectTrap) folds on its non-negative guard alone, and the
// rt_sin/rt_cos cases do not consult the registry.
func foldCall(instr *il.Instr) (il.Value, bool) {
	if !allConst(instr.Args) {
		return il.Value{}, false
	}
	switch instr.Callee {
	case "rt_abs_i64":
		if !ilrt.IsPure(instr.Callee) {
			return il.Value{}, false
		}
		x := instr.Args[0].Int
		if x < 0 {
			x = -x
		}
		return il.ConstInt(x, instr.Args[0].Ty), true
	case "rt_abs_f64":
		if !ilrt.IsPure(instr.Callee) {
			return il.Value{}, false
		}
		return il.ConstFloat(math.Abs(instr.Args[0].Float)), true
	case "rt_floor":
		if !ilrt.IsPure(instr.Callee) {
			return il.Value{}, false
		}
		return il.ConstFloat(math.Floor(instr.Args[0].Float)), true
	case "rt_ceil":
		if !ilrt.IsPure(instr.Callee) {
			return il.Value{}, false
		}
		return il.ConstFloat(math.Ceil(instr.Args[0].Float)), true
	case "rt_sqrt":
		x := instr.Args[0].Float
		if x < 0 {
			return il.Value{}, false // domain-checked: folding would hide a runtime trap
		}
		return il.ConstFloat(math.Sqrt(x)), true
	case "rt_pow_i64":
		if !ilrt.IsPure(instr.Callee) {
			return il.Value{}, false
		}
		base, exp := instr.Args[0].Int, instr.Args[1].Int
		if exp < 0 || exp > 63 {
			return il.Value{}, false
		}
		result := int64(1)
		for i := int64(0); i < exp; i++ {
			result *= base
		}
		return il.ConstInt(result, instr.Args[0].Ty), true
	case "rt_sin":
		if instr.Args[0].Float == 0 {
			return il.ConstFloat(0), true
		}
		return il.Value{}, false
	case "rt_cos":
		if instr.Args[0].Float == 0 {
			return il.ConstFloat(1), true
		}
		return il.Value{}, false
	case "rt_str_len":
		if !ilrt.IsPure(instr.Callee) {
			return il.Value{}, false
		}
		if instr.Args[0].Kind == il.VConstStr {
			return il.ConstInt(int64(len(instr.Args[0].Sym)), il.TI64), true
		}
		return il.Value{}, false
	default:
		return il.Value{}, false
	}
}
