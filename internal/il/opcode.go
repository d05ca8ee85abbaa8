package il

import "sort"

// Opcode is the dense enum identifying an instruction's operation. The
// OpcodeInfo table keyed by Opcode is the single source of truth
// consulted by the parser, serializer, and verifier (spec §4.1, §9).
type Opcode uint8

const (
	OpInvalid Opcode = iota

	// Terminators.
	OpRet
	OpBr
	OpCBr
	OpTrap

	// Memory.
	OpAlloca
	OpLoad
	OpStore

	// Integer arithmetic (two's-complement wrap, spec §4.8.1).
	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpSRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpNeg

	// Float arithmetic.
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFNeg

	// Integer comparisons, result is i1.
	OpICmpEq
	OpICmpNe
	OpICmpLt
	OpICmpLe
	OpICmpGt
	OpICmpGe

	// Float comparisons, result is i1.
	OpFCmpEq
	OpFCmpNe
	OpFCmpLt
	OpFCmpLe
	OpFCmpGt
	OpFCmpGe

	// Conversions (emitted by BASIC lowering's numeric-promotion rules).
	OpSIToFP
	OpFPToSI
	OpTrunc
	OpSExt

	// Calls: to an Extern or a Function in the same module.
	OpCall
)

// Category constrains an operand's (or result's) type at a coarse
// grain; exact width/ptr-target checks happen in the verifier.
type Category uint8

const (
	CatNone Category = iota
	CatInt           // any of i1/i16/i32/i64
	CatI1            // exactly i1 (branch predicates)
	CatFloat         // f64
	CatPtr           // ptr
	CatStr           // str
	CatAny           // any type accepted (used where the op is polymorphic)
)

// EffectClass classifies an opcode for DCE/LICM purposes (spec §4.8.2,
// §4.8.7, §9's open question on runtime-helper side effects).
type EffectClass uint8

const (
	EffectPure EffectClass = iota // no observable effect beyond its result
	EffectMem                     // load/store/alloca: conservatively effectful
	EffectTrap                    // may abort the program; never hoisted, never removed unobserved
	EffectIO                      // calls into the runtime that perform I/O; never hoisted, never removed unobserved
)

// ResultKind describes how an instruction's result type is determined.
type ResultKind uint8

const (
	ResultNone     ResultKind = iota // no result id
	ResultFixedCat                   // result category is fixed by the opcode (e.g. icmp -> i1)
	ResultOperand0                   // result type equals operand[0]'s type
	ResultDeclared                   // result type is carried on the instruction itself (alloca, load, cast, call)
)

// OpcodeInfo is one row of the opcode metadata table.
type OpcodeInfo struct {
	Op          Opcode
	Name        string // canonical text-format mnemonic
	MinOperands int
	MaxOperands int // -1 means unbounded (calls)
	OperandCat  Category
	Successors  int // 0, 1 (br), or 2 (cbr)
	Terminator  bool
	HasResult   bool
	ResultKind  ResultKind
	ResultCat   Category
	Effect      EffectClass
	IsCall      bool
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpRet:  {OpRet, "ret", 0, 1, CatAny, 0, true, false, ResultNone, CatNone, EffectPure, false},
	OpBr:   {OpBr, "br", 0, 0, CatNone, 1, true, false, ResultNone, CatNone, EffectPure, false},
	OpCBr:  {OpCBr, "cbr", 1, 1, CatI1, 2, true, false, ResultNone, CatNone, EffectPure, false},
	OpTrap: {OpTrap, "trap", 0, 0, CatNone, 0, true, false, ResultNone, CatNone, EffectTrap, false},

	OpAlloca: {OpAlloca, "alloca", 1, 1, CatInt, 0, false, true, ResultDeclared, CatPtr, EffectMem, false},
	OpLoad:   {OpLoad, "load", 1, 1, CatPtr, 0, false, true, ResultDeclared, CatAny, EffectMem, false},
	OpStore:  {OpStore, "store", 2, 2, CatAny, 0, false, false, ResultNone, CatNone, EffectMem, false},

	OpAdd: {OpAdd, "add", 2, 2, CatInt, 0, false, true, ResultOperand0, CatNone, EffectPure, false},
	OpSub: {OpSub, "sub", 2, 2, CatInt, 0, false, true, ResultOperand0, CatNone, EffectPure, false},
	OpMul: {OpMul, "mul", 2, 2, CatInt, 0, false, true, ResultOperand0, CatNone, EffectPure, false},
	OpSDiv: {OpSDiv, "sdiv", 2, 2, CatInt, 0, false, true, ResultOperand0, CatNone, EffectTrap, false},
	OpSRem: {OpSRem, "srem", 2, 2, CatInt, 0, false, true, ResultOperand0, CatNone, EffectTrap, false},
	OpAnd:  {OpAnd, "and", 2, 2, CatInt, 0, false, true, ResultOperand0, CatNone, EffectPure, false},
	OpOr:   {OpOr, "or", 2, 2, CatInt, 0, false, true, ResultOperand0, CatNone, EffectPure, false},
	OpXor:  {OpXor, "xor", 2, 2, CatInt, 0, false, true, ResultOperand0, CatNone, EffectPure, false},
	OpShl:  {OpShl, "shl", 2, 2, CatInt, 0, false, true, ResultOperand0, CatNone, EffectPure, false},
	OpShr:  {OpShr, "shr", 2, 2, CatInt, 0, false, true, ResultOperand0, CatNone, EffectPure, false},
	OpNeg:  {OpNeg, "neg", 1, 1, CatInt, 0, false, true, ResultOperand0, CatNone, EffectPure, false},

	OpFAdd: {OpFAdd, "fadd", 2, 2, CatFloat, 0, false, true, ResultOperand0, CatNone, EffectPure, false},
	OpFSub: {OpFSub, "fsub", 2, 2, CatFloat, 0, false, true, ResultOperand0, CatNone, EffectPure, false},
	OpFMul: {OpFMul, "fmul", 2, 2, CatFloat, 0, false, true, ResultOperand0, CatNone, EffectPure, false},
	OpFDiv: {OpFDiv, "fdiv", 2, 2, CatFloat, 0, false, true, ResultOperand0, CatNone, EffectPure, false},
	OpFNeg: {OpFNeg, "fneg", 1, 1, CatFloat, 0, false, true, ResultOperand0, CatNone, EffectPure, false},

	OpICmpEq: {OpICmpEq, "icmp_eq", 2, 2, CatInt, 0, false, true, ResultFixedCat, CatI1, EffectPure, false},
	OpICmpNe: {OpICmpNe, "icmp_ne", 2, 2, CatInt, 0, false, true, ResultFixedCat, CatI1, EffectPure, false},
	OpICmpLt: {OpICmpLt, "icmp_lt", 2, 2, CatInt, 0, false, true, ResultFixedCat, CatI1, EffectPure, false},
	OpICmpLe: {OpICmpLe, "icmp_le", 2, 2, CatInt, 0, false, true, ResultFixedCat, CatI1, EffectPure, false},
	OpICmpGt: {OpICmpGt, "icmp_gt", 2, 2, CatInt, 0, false, true, ResultFixedCat, CatI1, EffectPure, false},
	OpICmpGe: {OpICmpGe, "icmp_ge", 2, 2, CatInt, 0, false, true, ResultFixedCat, CatI1, EffectPure, false},

	OpFCmpEq: {OpFCmpEq, "fcmp_eq", 2, 2, CatFloat, 0, false, true, ResultFixedCat, CatI1, EffectPure, false},
	OpFCmpNe: {OpFCmpNe, "fcmp_ne", 2, 2, CatFloat, 0, false, true, ResultFixedCat, CatI1, EffectPure, false},
	OpFCmpLt: {OpFCmpLt, "fcmp_lt", 2, 2, CatFloat, 0, false, true, ResultFixedCat, CatI1, EffectPure, false},
	OpFCmpLe: {OpFCmpLe, "fcmp_le", 2, 2, CatFloat, 0, false, true, ResultFixedCat, CatI1, EffectPure, false},
	OpFCmpGt: {OpFCmpGt, "fcmp_gt", 2, 2, CatFloat, 0, false, true, ResultFixedCat, CatI1, EffectPure, false},
	OpFCmpGe: {OpFCmpGe, "fcmp_ge", 2, 2, CatFloat, 0, false, true, ResultFixedCat, CatI1, EffectPure, false},

	OpSIToFP: {OpSIToFP, "sitofp", 1, 1, CatInt, 0, false, true, ResultDeclared, CatNone, EffectPure, false},
	OpFPToSI: {OpFPToSI, "fptosi", 1, 1, CatFloat, 0, false, true, ResultDeclared, CatNone, EffectPure, false},
	OpTrunc:  {OpTrunc, "trunc", 1, 1, CatInt, 0, false, true, ResultDeclared, CatNone, EffectPure, false},
	OpSExt:   {OpSExt, "sext", 1, 1, CatInt, 0, false, true, ResultDeclared, CatNone, EffectPure, false},

	OpCall: {OpCall, "call", 0, -1, CatAny, 0, false, true, ResultDeclared, CatNone, EffectIO, true},
}

// LookupOpcode returns the metadata row for op.
func LookupOpcode(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeTable[op]
	return info, ok
}

// LookupMnemonic resolves a text-format mnemonic to its Opcode. Used by
// the parser; built once from the opcode table so there is exactly one
// place mnemonics are spelled.
func LookupMnemonic(name string) (Opcode, bool) {
	op, ok := mnemonicToOpcode[name]
	return op, ok
}

var mnemonicToOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeTable))
	for op, info := range opcodeTable {
		m[info.Name] = op
	}
	return m
}()

// Mnemonic returns op's canonical text-format spelling.
func (op Opcode) Mnemonic() string {
	if info, ok := opcodeTable[op]; ok {
		return info.Name
	}
	return "<invalid-opcode>"
}

// AllOpcodes returns every registered opcode in a stable order (sorted
// by mnemonic), for exhaustive coverage tests (spec §9, SPEC_FULL.md D.4).
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeTable))
	for op := range opcodeTable {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		return opcodeTable[ops[i]].Name < opcodeTable[ops[j]].Name
	})
	return ops
}

// IsBinaryArith reports whether op is a two-operand arithmetic opcode
// whose result shares operand[0]'s type — used by ConstFold and Peephole.
func (info OpcodeInfo) IsBinaryArith() bool {
	return info.MinOperands == 2 && info.MaxOperands == 2 && info.ResultKind == ResultOperand0
}
