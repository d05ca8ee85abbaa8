package basiclower

import (
	"github.com/viper-lang/viper/internal/basicast"
	"github.com/viper-lang/viper/internal/il"
)

// Array element types are restricted to the three the runtime ABI
// provides element families for (i64/f64/str), matching the set the
// frontend's semantic analyzer documents for DIM targets. Arrays are
// one-dimensional: the registered allocation/get/set helpers all take
// a single size or index operand.

func arrAllocHelper(elemTy il.Type) string {
	switch elemTy {
	case il.TF64:
		return "rt_arr_alloc_f64"
	case il.TStr:
		return "rt_arr_alloc_str"
	default:
		return "rt_arr_alloc_i64"
	}
}

func arrGetHelper(elemTy il.Type) string {
	switch elemTy {
	case il.TF64:
		return "rt_arr_get_f64"
	case il.TStr:
		return "rt_arr_get_str"
	default:
		return "rt_arr_get_i64"
	}
}

func arrSetHelper(elemTy il.Type) string {
	switch elemTy {
	case il.TF64:
		return "rt_arr_set_f64"
	case il.TStr:
		return "rt_arr_set_str"
	default:
		return "rt_arr_set_i64"
	}
}

func (b *funcBuilder) readArrayElem(e *basicast.IndexExpr, loc il.SourceLoc) il.Value {
	slot, ok := b.vars[e.Name]
	if !ok || !slot.IsArray {
		assertf(loc, "basiclower: reference to undeclared array %s", e.Name)
	}
	arr := b.load(slot.Ptr, il.TPtr)
	idx := b.toInt(b.lowerExpr(e.Index[0]), loc)
	if b.mod.boundsChecks {
		b.callHelperVoid("rt_arr_bounds_check", []il.Value{arr, idx}, loc)
	}
	return b.callHelper(arrGetHelper(slot.ElemTy), []il.Value{arr, idx}, loc)
}

func (b *funcBuilder) storeArrayElem(e *basicast.IndexExpr, v il.Value, loc il.SourceLoc) {
	slot, ok := b.vars[e.Name]
	if !ok || !slot.IsArray {
		assertf(loc, "basiclower: reference to undeclared array %s", e.Name)
	}
	arr := b.load(slot.Ptr, il.TPtr)
	idx := b.toInt(b.lowerExpr(e.Index[0]), loc)
	if b.mod.boundsChecks {
		b.callHelperVoid("rt_arr_bounds_check", []il.Value{arr, idx}, loc)
	}
	v = b.coerce(v, slot.ElemTy, loc)
	b.callHelperVoid(arrSetHelper(slot.ElemTy), []il.Value{arr, idx, v}, loc)
}
