package basiclower

import (
	"github.com/viper-lang/viper/internal/basicast"
	"github.com/viper-lang/viper/internal/il"
)

func (b *funcBuilder) lowerExpr(expr basicast.Expr) il.Value {
	switch e := expr.(type) {
	case *basicast.Ident:
		return b.readVar(e)
	case *basicast.IntLit:
		return il.ConstInt(e.Value, il.TI64)
	case *basicast.FloatLit:
		return il.ConstFloat(e.Value)
	case *basicast.StringLit:
		return il.ConstStr(e.Value)
	case *basicast.BinaryExpr:
		return b.lowerBinary(e)
	case *basicast.UnaryExpr:
		return b.lowerUnary(e)
	case *basicast.IndexExpr:
		return b.readArrayElem(e, e.Loc())
	case *basicast.CallExpr:
		if e.Builtin {
			v, _ := b.lowerBuiltin(e.Name, e.Args, e.Loc())
			return v
		}
		return b.lowerUserCall(e)
	}
	assertf(expr.Loc(), "basiclower: unhandled expression %T", expr)
	return il.Value{}
}

func (b *funcBuilder) readVar(e *basicast.Ident) il.Value {
	slot, ok := b.vars[e.Name]
	if !ok {
		assertf(e.Loc(), "basiclower: reference to undeclared variable %s", e.Name)
	}
	return b.load(slot.Ptr, slot.Ty)
}

func (b *funcBuilder) lowerUserCall(e *basicast.CallExpr) il.Value {
	sig, ok := b.mod.sigs[e.Name]
	if !ok {
		assertf(e.Loc(), "basiclower: call to undeclared procedure %s", e.Name)
	}
	args := make([]il.Value, len(e.Args))
	for i, a := range e.Args {
		args[i] = b.coerce(b.lowerExpr(a), sig.Params[i], e.Loc())
	}
	id := b.id()
	b.emit(il.Instr{Op: il.OpCall, Callee: e.Name, Args: args, HasResult: true, ResultID: id, ResultTy: sig.RetTy, Loc: e.Loc()})
	return il.Temp(id, sig.RetTy)
}

func (b *funcBuilder) lowerUnary(e *basicast.UnaryExpr) il.Value {
	loc := e.Loc()
	x := b.lowerExpr(e.X)
	switch e.Op {
	case basicast.UNeg:
		if x.Type() == il.TF64 {
			return b.unary(il.OpFNeg, x, loc)
		}
		return b.unary(il.OpNeg, x, loc)
	case basicast.UNot:
		return b.materializeBool(x, "not", 0, 1, loc)
	}
	assertf(loc, "basiclower: unhandled unary operator %v", e.Op)
	return il.Value{}
}

// promoteNumeric widens both operands to f64 if either already is,
// otherwise leaves them as i64 (spec §4.9.4: `/` and the arithmetic
// operators promote to f64 only when an operand already is one —
// two plain integers stay integer arithmetic).
func (b *funcBuilder) promoteNumeric(lhs, rhs il.Value, loc il.SourceLoc) (il.Value, il.Value, il.Type) {
	if lhs.Type() == il.TF64 || rhs.Type() == il.TF64 {
		return b.toFloat(lhs, loc), b.toFloat(rhs, loc), il.TF64
	}
	return lhs, rhs, il.TI64
}

func (b *funcBuilder) lowerBinary(e *basicast.BinaryExpr) il.Value {
	loc := e.Loc()

	if e.Op == basicast.BAnd || e.Op == basicast.BOr {
		return b.lowerShortCircuit(e)
	}

	lhs := b.lowerExpr(e.Left)
	rhs := b.lowerExpr(e.Right)

	if lhs.Type() == il.TStr || rhs.Type() == il.TStr {
		return b.lowerStringBinary(e.Op, lhs, rhs, loc)
	}

	switch e.Op {
	case basicast.BAdd:
		l, r, ty := b.promoteNumeric(lhs, rhs, loc)
		if ty == il.TF64 {
			return b.arith(il.OpFAdd, l, r, loc)
		}
		return b.arith(il.OpAdd, l, r, loc)
	case basicast.BSub:
		l, r, ty := b.promoteNumeric(lhs, rhs, loc)
		if ty == il.TF64 {
			return b.arith(il.OpFSub, l, r, loc)
		}
		return b.arith(il.OpSub, l, r, loc)
	case basicast.BMul:
		l, r, ty := b.promoteNumeric(lhs, rhs, loc)
		if ty == il.TF64 {
			return b.arith(il.OpFMul, l, r, loc)
		}
		return b.arith(il.OpMul, l, r, loc)
	case basicast.BDiv:
		l, r, ty := b.promoteNumeric(lhs, rhs, loc)
		if ty == il.TF64 {
			return b.arith(il.OpFDiv, l, r, loc)
		}
		b.checkDivisorNonZero(r, loc)
		return b.arith(il.OpSDiv, l, r, loc)
	case basicast.BIDiv:
		l := b.toInt(lhs, loc)
		r := b.toInt(rhs, loc)
		b.checkDivisorNonZero(r, loc)
		return b.arith(il.OpSDiv, l, r, loc)
	case basicast.BMod:
		l := b.toInt(lhs, loc)
		r := b.toInt(rhs, loc)
		b.checkDivisorNonZero(r, loc)
		return b.arith(il.OpSRem, l, r, loc)
	case basicast.BPow:
		l, r, ty := b.promoteNumeric(lhs, rhs, loc)
		if ty == il.TF64 {
			return b.callHelper("rt_pow_f64", []il.Value{l, r}, loc)
		}
		return b.callHelper("rt_pow_i64", []il.Value{l, r}, loc)
	case basicast.BEq, basicast.BNe, basicast.BLt, basicast.BLe, basicast.BGt, basicast.BGe:
		l, r, ty := b.promoteNumeric(lhs, rhs, loc)
		return b.arith(numericCmpOp(e.Op, ty), l, r, loc)
	}
	assertf(loc, "basiclower: unhandled binary operator %v", e.Op)
	return il.Value{}
}

func numericCmpOp(op basicast.BinOp, ty il.Type) il.Opcode {
	isFloat := ty == il.TF64
	switch op {
	case basicast.BEq:
		if isFloat {
			return il.OpFCmpEq
		}
		return il.OpICmpEq
	case basicast.BNe:
		if isFloat {
			return il.OpFCmpNe
		}
		return il.OpICmpNe
	case basicast.BLt:
		if isFloat {
			return il.OpFCmpLt
		}
		return il.OpICmpLt
	case basicast.BLe:
		if isFloat {
			return il.OpFCmpLe
		}
		return il.OpICmpLe
	case basicast.BGt:
		if isFloat {
			return il.OpFCmpGt
		}
		return il.OpICmpGt
	default:
		if isFloat {
			return il.OpFCmpGe
		}
		return il.OpICmpGe
	}
}

// lowerStringBinary never uses il.OpXor to negate rt_str_eq's result:
// i1 belongs to category CatI1, not CatInt, and OpXor's operand
// category is CatInt, so the verifier would reject it. `<>` goes
// through materializeBool's cbr-and-join negation instead, same as NOT.
func (b *funcBuilder) lowerStringBinary(op basicast.BinOp, lhs, rhs il.Value, loc il.SourceLoc) il.Value {
	switch op {
	case basicast.BAdd:
		return b.callHelper("rt_concat", []il.Value{lhs, rhs}, loc)
	case basicast.BEq:
		return b.callHelper("rt_str_eq", []il.Value{lhs, rhs}, loc)
	case basicast.BNe:
		eq := b.callHelper("rt_str_eq", []il.Value{lhs, rhs}, loc)
		return b.materializeBool(eq, "strne", 0, 1, loc)
	case basicast.BLt, basicast.BLe, basicast.BGt, basicast.BGe:
		cmp := b.callHelper("rt_str_cmp", []il.Value{lhs, rhs}, loc)
		zero := il.ConstInt(0, il.TI64)
		switch op {
		case basicast.BLt:
			return b.arith(il.OpICmpLt, cmp, zero, loc)
		case basicast.BLe:
			return b.arith(il.OpICmpLe, cmp, zero, loc)
		case basicast.BGt:
			return b.arith(il.OpICmpGt, cmp, zero, loc)
		default:
			return b.arith(il.OpICmpGe, cmp, zero, loc)
		}
	}
	assertf(loc, "basiclower: unsupported string operator %v", op)
	return il.Value{}
}

// lowerShortCircuit implements AND/OR by synthesizing an rhs block and
// a join block parameterized by i1 (spec §4.9.4), never by bitwise
// OpAnd/OpOr — those require CatInt operands and i1 is CatI1.
func (b *funcBuilder) lowerShortCircuit(e *basicast.BinaryExpr) il.Value {
	loc := e.Loc()
	lhs := b.lowerExpr(e.Left)

	rhsLabel := b.namer.Label("sc.rhs")
	joinLabel := b.namer.Label("sc.join")
	rhsIdx := b.newBlock(rhsLabel)
	joinIdx := b.newBlock(joinLabel)

	resID := b.id()
	b.blocks[joinIdx].Params = []il.Param{{Name: "v", Ty: il.TI1, ID: resID}}

	if e.Op == basicast.BAnd {
		b.emit(il.Instr{Op: il.OpCBr, Args: []il.Value{lhs}, Succs: []string{rhsLabel, joinLabel},
			BrArgs: [][]il.Value{nil, {il.ConstInt(0, il.TI1)}}, Loc: loc})
	} else {
		b.emit(il.Instr{Op: il.OpCBr, Args: []il.Value{lhs}, Succs: []string{joinLabel, rhsLabel},
			BrArgs: [][]il.Value{{il.ConstInt(1, il.TI1)}, nil}, Loc: loc})
	}

	b.switchTo(rhsIdx)
	rhs := b.lowerExpr(e.Right)
	b.emit(il.Instr{Op: il.OpBr, Succs: []string{joinLabel}, BrArgs: [][]il.Value{{rhs}}, Loc: loc})

	b.switchTo(joinIdx)
	return il.Temp(resID, il.TI1)
}
