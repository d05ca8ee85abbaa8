package basiclower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viper-lang/viper/internal/basicast"
	"github.com/viper-lang/viper/internal/config"
	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/verify"
)

func loc() il.SourceLoc { return il.SourceLoc{FileID: 1, Line: 1, Col: 1} }

func ident(name string) *basicast.Ident { return &basicast.Ident{Name: name, Loc_: loc()} }
func intLit(v int64) *basicast.IntLit   { return &basicast.IntLit{Value: v, Loc_: loc()} }
func floatLit(v float64) *basicast.FloatLit {
	return &basicast.FloatLit{Value: v, Loc_: loc()}
}
func strLit(v string) *basicast.StringLit { return &basicast.StringLit{Value: v, Loc_: loc()} }

func let(target basicast.Lvalue, value basicast.Expr) *basicast.LetStmt {
	return &basicast.LetStmt{Target: target, Value: value, Loc_: loc()}
}

func bin(op basicast.BinOp, l, r basicast.Expr) *basicast.BinaryExpr {
	return &basicast.BinaryExpr{Op: op, Left: l, Right: r, Loc_: loc()}
}

func programOf(main []basicast.Stmt, procs ...*basicast.Procedure) *basicast.Program {
	return &basicast.Program{Procedures: procs, Main: main}
}

func mustLower(t *testing.T, prog *basicast.Program) *il.Module {
	t.Helper()
	mod, diags := Lower(prog)
	require.Empty(t, diags, "unexpected lowering diagnostics: %v", diags)
	require.NotNil(t, mod)
	require.Empty(t, verify.Module(mod), "lowered module failed verification")
	return mod
}

func mainFn(t *testing.T, mod *il.Module) *il.Function {
	t.Helper()
	fn, ok := mod.FunctionByName("main")
	require.True(t, ok)
	return fn
}

func countOp(fn *il.Function, op il.Opcode) int {
	n := 0
	for _, blk := range fn.Blocks {
		for _, in := range blk.Instrs {
			if in.Op == op {
				n++
			}
		}
	}
	return n
}

func externNames(mod *il.Module) []string {
	names := make([]string, len(mod.Externs))
	for i, e := range mod.Externs {
		names[i] = e.Name
	}
	return names
}

func TestLowerSimpleLetAndPrint(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		let(ident("X%"), bin(basicast.BAdd, intLit(2), intLit(3))),
		&basicast.PrintStmt{Args: []basicast.Expr{ident("X%")}, Loc_: loc()},
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	require.Equal(t, 1, countOp(fn, il.OpAdd))
	require.Contains(t, externNames(mod), "rt_print_i64")
}

func TestLowerIfElseSharesJoinBlock(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.IfStmt{
			Cond: bin(basicast.BGt, ident("X%"), intLit(0)),
			Then: []basicast.Stmt{let(ident("Y%"), intLit(1))},
			Else: []basicast.Stmt{let(ident("Y%"), intLit(-1))},
			Loc_: loc(),
		},
		&basicast.PrintStmt{Args: []basicast.Expr{ident("Y%")}, Loc_: loc()},
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	require.Equal(t, 1, countOp(fn, il.OpCBr))
	joinBlk, ok := fn.BlockByLabel("if.join.0")
	require.True(t, ok)
	require.NotNil(t, joinBlk.Terminator())
}

func TestLowerIfElseIfChain(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.IfStmt{
			Cond: bin(basicast.BEq, ident("X%"), intLit(1)),
			Then: []basicast.Stmt{let(ident("Y%"), intLit(10))},
			ElseIfs: []basicast.ElseIfClause{
				{Cond: bin(basicast.BEq, ident("X%"), intLit(2)), Body: []basicast.Stmt{let(ident("Y%"), intLit(20))}},
			},
			Else: []basicast.Stmt{let(ident("Y%"), intLit(30))},
			Loc_: loc(),
		},
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	// Each arm of the chain (the top level plus the one ELSEIF) branches.
	require.Equal(t, 2, countOp(fn, il.OpCBr))
}

func TestLowerForStaticAscendingStep(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.ForStmt{
			Var:  "I%",
			From: intLit(1),
			To:   intLit(10),
			Body: []basicast.Stmt{&basicast.PrintStmt{Args: []basicast.Expr{ident("I%")}, Loc_: loc()}},
			Loc_: loc(),
		},
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	header, ok := fn.BlockByLabel("for.header.0")
	require.True(t, ok)
	require.Len(t, header.Params, 1)
	term := header.Terminator()
	require.Equal(t, il.OpCBr, term.Op)
	require.Equal(t, il.OpICmpLe, header.Instrs[0].Op)
}

func TestLowerForDynamicStepDirection(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.ForStmt{
			Var:  "I%",
			From: intLit(1),
			To:   intLit(10),
			Step: ident("S%"),
			Body: []basicast.Stmt{let(ident("Y%"), ident("I%"))},
			Loc_: loc(),
		},
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	// Unknown step sign falls back to selectValue, which opens its own
	// cbr-and-join triple inside the header block's lowering.
	require.GreaterOrEqual(t, countOp(fn, il.OpCBr), 2)
}

func TestLowerWhileLoop(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.WhileStmt{
			Cond: bin(basicast.BGt, ident("N%"), intLit(0)),
			Body: []basicast.Stmt{
				let(ident("N%"), bin(basicast.BSub, ident("N%"), intLit(1))),
			},
			Loc_: loc(),
		},
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	_, ok := fn.BlockByLabel("while.header.0")
	require.True(t, ok)
	require.Equal(t, 1, countOp(fn, il.OpSub))
}

func TestLowerGotoAndLabel(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.GotoStmt{Target: "SKIP", Loc_: loc()},
		let(ident("X%"), intLit(99)),
		&basicast.LabelStmt{Name: "SKIP", Loc_: loc()},
		let(ident("Y%"), intLit(1)),
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	_, ok := fn.BlockByLabel("L_SKIP")
	require.True(t, ok)
	// The statement between the GOTO and its label is unreachable; emit
	// still produces a well-formed (verifier-passing) block for it
	// rather than rejecting the input, trusting SimplifyCFG to prune it
	// away later.
	_, ok = fn.BlockByLabel("unreachable.0")
	require.True(t, ok)
}

func TestLowerGotoUndeclaredLabelFails(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.GotoStmt{Target: "NOPE", Loc_: loc()},
	})
	_, diags := Lower(prog)
	require.Len(t, diags, 1)
	require.Equal(t, diag.LOW002, diags[0].Code)
}

func TestScanDetectsFunctionMissingReturn(t *testing.T) {
	fn := &basicast.Procedure{
		Kind: basicast.ProcFunction,
		Name: "F%",
		Body: []basicast.Stmt{
			let(ident("X%"), intLit(1)),
		},
		Loc_: loc(),
	}
	prog := programOf(nil, fn)
	_, diags := Lower(prog)
	require.Len(t, diags, 1)
	require.Equal(t, diag.LOW001, diags[0].Code)
}

func TestLowerDimMultiDimensionFails(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.DimStmt{Name: "A%", Dims: []basicast.Expr{intLit(10), intLit(10)}, Loc_: loc()},
	})
	_, diags := Lower(prog)
	require.Len(t, diags, 1)
	require.Equal(t, diag.LOW003, diags[0].Code)
}

func TestLowerDimAndArrayAccess(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.DimStmt{Name: "A%", Dims: []basicast.Expr{intLit(10)}, Loc_: loc()},
		let(&basicast.IndexExpr{Name: "A%", Index: []basicast.Expr{intLit(0)}, Loc_: loc()}, intLit(42)),
		let(ident("X%"), &basicast.IndexExpr{Name: "A%", Index: []basicast.Expr{intLit(0)}, Loc_: loc()}),
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	require.Contains(t, externNames(mod), "rt_arr_alloc_i64")
	require.Contains(t, externNames(mod), "rt_arr_get_i64")
	require.Contains(t, externNames(mod), "rt_arr_set_i64")
	require.Contains(t, externNames(mod), "rt_arr_bounds_check")
	// alloc (DIM) + bounds_check+set (the store) + bounds_check+get (the read)
	require.Equal(t, 5, countOp(fn, il.OpCall))
}

func TestLowerWithOptionsBoundsChecksOffOmitsCheckCalls(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.DimStmt{Name: "A%", Dims: []basicast.Expr{intLit(10)}, Loc_: loc()},
		let(&basicast.IndexExpr{Name: "A%", Index: []basicast.Expr{intLit(0)}, Loc_: loc()}, intLit(42)),
		let(ident("X%"), &basicast.IndexExpr{Name: "A%", Index: []basicast.Expr{intLit(0)}, Loc_: loc()}),
	})
	mod, diags := LowerWithOptions(prog, config.New(config.WithBoundsChecks(false)))
	require.Empty(t, diags)
	require.Empty(t, verify.Module(mod))

	fn := mainFn(t, mod)
	require.NotContains(t, externNames(mod), "rt_arr_bounds_check")
	require.Contains(t, externNames(mod), "rt_arr_get_i64")
	require.Contains(t, externNames(mod), "rt_arr_set_i64")
	// alloc (DIM) + set (the store) + get (the read), no bounds checks
	require.Equal(t, 3, countOp(fn, il.OpCall))
}

func TestLowerShortCircuitAndOr(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		let(ident("A%"), bin(basicast.BAnd, bin(basicast.BGt, ident("X%"), intLit(0)), bin(basicast.BLt, ident("X%"), intLit(10)))),
		let(ident("B%"), bin(basicast.BOr, bin(basicast.BGt, ident("X%"), intLit(0)), bin(basicast.BLt, ident("X%"), intLit(10)))),
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	// Neither AND nor OR ever emits a bitwise opcode: i1 is CatI1, not
	// CatInt, and OpAnd/OpOr require CatInt operands.
	require.Equal(t, 0, countOp(fn, il.OpAnd))
	require.Equal(t, 0, countOp(fn, il.OpOr))
	_, ok := fn.BlockByLabel("sc.join.0")
	require.True(t, ok)
	_, ok = fn.BlockByLabel("sc.join.1")
	require.True(t, ok)
}

func TestLowerNotUsesMaterializeBoolNotXor(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		let(ident("A%"), &basicast.UnaryExpr{Op: basicast.UNot, X: bin(basicast.BGt, ident("X%"), intLit(0)), Loc_: loc()}),
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	require.Equal(t, 0, countOp(fn, il.OpXor))
	require.Equal(t, 1, countOp(fn, il.OpCBr))
}

func TestLowerStringInequalityAvoidsXor(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		let(ident("A%"), bin(basicast.BNe, ident("S$"), strLit("hi"))),
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	require.Equal(t, 0, countOp(fn, il.OpXor))
	require.Contains(t, externNames(mod), "rt_str_eq")
}

func TestLowerStringOrdering(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		let(ident("A%"), bin(basicast.BLt, ident("S$"), strLit("z"))),
	})
	mod := mustLower(t, prog)
	require.Contains(t, externNames(mod), "rt_str_cmp")
}

func TestLowerIntegerDivisionTrapsOnZeroDivisor(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		let(ident("A%"), bin(basicast.BDiv, intLit(10), ident("X%"))),
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	require.Equal(t, 1, countOp(fn, il.OpTrap))
	require.Equal(t, 1, countOp(fn, il.OpSDiv))
}

func TestLowerIDivAndModTrapOnZeroDivisor(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		let(ident("A%"), bin(basicast.BIDiv, ident("X%"), ident("Y%"))),
		let(ident("B%"), bin(basicast.BMod, ident("X%"), ident("Y%"))),
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	require.Equal(t, 2, countOp(fn, il.OpTrap))
	require.Equal(t, 1, countOp(fn, il.OpSDiv))
	require.Equal(t, 1, countOp(fn, il.OpSRem))
}

func TestLowerFloatDivisionNeverTraps(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		let(ident("A#"), bin(basicast.BDiv, floatLit(1.0), ident("X#"))),
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	require.Equal(t, 0, countOp(fn, il.OpTrap))
	require.Equal(t, 1, countOp(fn, il.OpFDiv))
}

func TestLowerIntegerDivisionStaysInteger(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		let(ident("A%"), bin(basicast.BDiv, ident("X%"), ident("Y%"))),
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	require.Equal(t, 1, countOp(fn, il.OpSDiv))
	require.Equal(t, 0, countOp(fn, il.OpSIToFP))
}

func TestLowerMixedIntFloatPromotes(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		let(ident("A#"), bin(basicast.BAdd, ident("X%"), ident("Y#"))),
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	require.Equal(t, 1, countOp(fn, il.OpFAdd))
	require.GreaterOrEqual(t, countOp(fn, il.OpSIToFP), 1)
}

func TestLowerPowUsesRuntimeHelper(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		let(ident("A#"), bin(basicast.BPow, ident("X#"), ident("Y#"))),
	})
	mod := mustLower(t, prog)
	require.Contains(t, externNames(mod), "rt_pow_f64")
}

func callExprOf(name string, builtin bool, args ...basicast.Expr) *basicast.CallExpr {
	return &basicast.CallExpr{Name: name, Builtin: builtin, Args: args, Loc_: loc()}
}

func TestLowerBuiltinsWireExpectedHelpers(t *testing.T) {
	cases := []struct {
		name   string
		expr   *basicast.CallExpr
		extern string
	}{
		{"ABS int", callExprOf("ABS", true, ident("X%")), "rt_abs_i64"},
		{"SGN", callExprOf("SGN", true, ident("X%")), ""},
		{"RND", callExprOf("RND", true), "rt_rng_next"},
		{"LEN", callExprOf("LEN", true, ident("S$")), "rt_str_len"},
		{"UCASE$", callExprOf("UCASE$", true, ident("S$")), "rt_str_upper"},
		{"STR$", callExprOf("STR$", true, ident("X%")), "rt_fmt_int"},
		{"VAL", callExprOf("VAL", true, ident("S$")), "rt_parse_float"},
		{"SQR", callExprOf("SQR", true, ident("X#")), "rt_sqrt"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			prog := programOf([]basicast.Stmt{
				let(ident("R#"), c.expr),
			})
			mod := mustLower(t, prog)
			if c.extern != "" {
				require.Contains(t, externNames(mod), c.extern)
			}
		})
	}
}

func TestLowerRandomizeIsVoidBuiltin(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.CallStmt{Name: "RANDOMIZE", Builtin: true, Args: []basicast.Expr{intLit(1)}, Loc_: loc()},
	})
	mod := mustLower(t, prog)
	require.Contains(t, externNames(mod), "rt_rng_seed")
}

func callCount(fn *il.Function, callee string) int {
	n := 0
	for _, blk := range fn.Blocks {
		for _, in := range blk.Instrs {
			if in.Op == il.OpCall && in.Callee == callee {
				n++
			}
		}
	}
	return n
}

func TestLowerLeftRightMidSubstr(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		let(ident("A$"), callExprOf("LEFT$", true, ident("S$"), intLit(3))),
		let(ident("B$"), callExprOf("RIGHT$", true, ident("S$"), intLit(3))),
		let(ident("C$"), callExprOf("MID$", true, ident("S$"), intLit(2), intLit(3))),
	})
	mod := mustLower(t, prog)
	fn := mainFn(t, mod)
	require.Equal(t, 3, callCount(fn, "rt_str_substr"))
}

func TestLowerUserFunctionCallAndRecursion(t *testing.T) {
	fact := &basicast.Procedure{
		Kind:   basicast.ProcFunction,
		Name:   "FACT%",
		Params: []basicast.Param{{Name: "N%", Loc_: loc()}},
		Body: []basicast.Stmt{
			&basicast.IfStmt{
				Cond: bin(basicast.BLe, ident("N%"), intLit(1)),
				Then: []basicast.Stmt{&basicast.ReturnStmt{Value: intLit(1), Loc_: loc()}},
				Else: []basicast.Stmt{&basicast.ReturnStmt{
					Value: bin(basicast.BMul, ident("N%"), callExprOf("FACT%", false, bin(basicast.BSub, ident("N%"), intLit(1)))),
					Loc_:  loc(),
				}},
				Loc_: loc(),
			},
		},
		Loc_: loc(),
	}
	prog := programOf([]basicast.Stmt{
		let(ident("R%"), callExprOf("FACT%", false, intLit(5))),
	}, fact)
	mod := mustLower(t, prog)
	factFn, ok := mod.FunctionByName("FACT%")
	require.True(t, ok)
	require.Equal(t, il.TI64, factFn.RetTy)
	require.Equal(t, 1, countOp(factFn, il.OpCall))
}

func TestLowerCallStmtToUserSub(t *testing.T) {
	sub := &basicast.Procedure{
		Kind: basicast.ProcSub,
		Name: "GREET",
		Body: []basicast.Stmt{
			&basicast.PrintStmt{Args: []basicast.Expr{strLit("hi")}, Loc_: loc()},
		},
		Loc_: loc(),
	}
	prog := programOf([]basicast.Stmt{
		&basicast.CallStmt{Name: "GREET", Loc_: loc()},
	}, sub)
	mod := mustLower(t, prog)
	greetFn, ok := mod.FunctionByName("GREET")
	require.True(t, ok)
	require.Equal(t, il.TVoid, greetFn.RetTy)
}

func TestLowerFileIO(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.OpenStmt{Path: strLit("data.txt"), Mode: "O", Handle: ident("H"), Loc_: loc()},
		&basicast.PrintFileStmt{Handle: ident("H"), Args: []basicast.Expr{strLit("line")}, Loc_: loc()},
		&basicast.LineInputFileStmt{Handle: ident("H"), Target: ident("L$"), Loc_: loc()},
		&basicast.CloseStmt{Handle: ident("H"), Loc_: loc()},
	})
	mod := mustLower(t, prog)
	require.Contains(t, externNames(mod), "rt_file_open")
	require.Contains(t, externNames(mod), "rt_file_write")
	require.Contains(t, externNames(mod), "rt_file_read_line")
	require.Contains(t, externNames(mod), "rt_file_close")
}

func TestLowerInputParsesNumericText(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.InputStmt{Target: ident("N%"), Loc_: loc()},
	})
	mod := mustLower(t, prog)
	require.Contains(t, externNames(mod), "rt_input_line")
	require.Contains(t, externNames(mod), "rt_parse_int")
}

func TestSynthesizedExternsAreSortedAndDeduplicated(t *testing.T) {
	prog := programOf([]basicast.Stmt{
		&basicast.PrintStmt{Args: []basicast.Expr{intLit(1)}, Loc_: loc()},
		&basicast.PrintStmt{Args: []basicast.Expr{intLit(2)}, Loc_: loc()},
		&basicast.PrintStmt{Args: []basicast.Expr{intLit(3)}, Loc_: loc()},
	})
	mod := mustLower(t, prog)
	names := externNames(mod)
	seen := map[string]bool{}
	for i, n := range names {
		require.False(t, seen[n], "duplicate extern %s", n)
		seen[n] = true
		if i > 0 {
			require.Less(t, names[i-1], n, "externs must be sorted")
		}
	}
}
