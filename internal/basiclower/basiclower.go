// Package basiclower lowers a basicast.Program to an il.Module (spec
// §4.9). It runs in two strictly separated passes: scan, which walks
// every procedure's body once to discover its variables, arrays, and
// labels and to raise the two checks that belong to scan rather than
// to the verifier (LOW001, LOW002); and emit, which walks the same
// bodies again to build IL instructions, trusting scan's results and
// treating any inconsistency it stumbles on as an internal invariant
// failure (spec §4.9.6), not a user error.
package basiclower

import (
	"github.com/viper-lang/viper/internal/basicast"
	"github.com/viper-lang/viper/internal/config"
	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/logging"
)

// Lower translates prog into a module under config.New()'s defaults
// (bounds checks on). Scan errors across every procedure are collected
// and returned together; emit, being inherently sequential like a
// recursive-descent parse, aborts on the first internal failure it
// hits (mirrors iltext's parseErr/abort).
func Lower(prog *basicast.Program) (*il.Module, []*diag.Diag) {
	return LowerWithOptions(prog, config.New())
}

// LowerWithOptions is Lower with the caller's config.Options: opts.
// BoundsChecks gates whether each array access emits a
// rt_arr_bounds_check call ahead of the get/set helper (spec §6.3;
// internal/basiclower/arrays.go).
func LowerWithOptions(prog *basicast.Program, opts config.Options) (*il.Module, []*diag.Diag) {
	sigs := make(map[string]procSig, len(prog.Procedures))
	for _, p := range prog.Procedures {
		sigs[p.Name] = procSigOf(p)
	}

	var diags []*diag.Diag
	scans := make(map[string]*scanResult, len(prog.Procedures))
	for _, p := range prog.Procedures {
		res, ds := scanProcedure(p.Name, p.Params, p.Body, p.Kind == basicast.ProcFunction)
		scans[p.Name] = res
		diags = append(diags, ds...)
	}
	mainScan, ds := scanProcedure("main", nil, prog.Main, false)
	diags = append(diags, ds...)
	if len(diags) > 0 {
		return nil, diags
	}

	ml := &moduleLowering{sigs: sigs, needExterns: map[string]bool{}, boundsChecks: opts.BoundsChecks}
	mod := &il.Module{Version: "0.1"}

	emitErr := runEmit(func() {
		for _, p := range prog.Procedures {
			logging.Debugf("lower", "emitting %s", p.Name)
			mod.Functions = append(mod.Functions, lowerProcedure(ml, p, scans[p.Name]))
		}
		logging.Debugf("lower", "emitting main")
		mod.Functions = append(mod.Functions, lowerMain(ml, prog.Main, mainScan))
	})
	if emitErr != nil {
		return nil, []*diag.Diag{emitErr}
	}

	mod.Externs = synthesizeExterns(ml.needExterns)
	return mod, nil
}

// runEmit recovers a lowerErr panic raised by abort() anywhere in fn's
// call tree and returns it as a diagnostic; any other panic propagates
// unchanged since it indicates a genuine bug in lowering itself rather
// than a pre-validated-AST assertion.
func runEmit(fn func()) (errDiag *diag.Diag) {
	defer func() {
		if r := recover(); r != nil {
			if le, ok := r.(lowerErr); ok {
				errDiag = le.d
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}

func lowerProcedure(ml *moduleLowering, p *basicast.Procedure, scan *scanResult) il.Function {
	retTy := il.TVoid
	if p.Kind == basicast.ProcFunction {
		retTy = basicast.TypeSuffix(p.Name)
	}

	b := newFuncBuilder(ml, retTy)
	b.setupLocals(p.Params, scan)
	b.lowerStmts(p.Body)
	b.finish()

	fnParams := make([]il.FuncParam, len(p.Params))
	for i, pr := range p.Params {
		fnParams[i] = il.FuncParam{Name: pr.Name, Ty: basicast.TypeSuffix(pr.Name)}
	}
	return il.Function{Name: p.Name, RetTy: retTy, Params: fnParams, Blocks: b.blocks}
}

// lowerMain lowers the program's unnamed top-level statement list into
// the module's entry point, `main`, returning i64 per the runtime ABI.
func lowerMain(ml *moduleLowering, body []basicast.Stmt, scan *scanResult) il.Function {
	b := newFuncBuilder(ml, il.TI64)
	b.setupLocals(nil, scan)
	b.lowerStmts(body)
	b.finish()
	return il.Function{Name: "main", RetTy: il.TI64, Blocks: b.blocks}
}
