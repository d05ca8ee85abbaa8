package basiclower

import (
	"github.com/viper-lang/viper/internal/basicast"
	"github.com/viper-lang/viper/internal/diag"
)

// scanResult is what scanning a procedure's body discovers before any
// IL is emitted (spec §4.9.3 step 1): every scalar variable and array
// it references and every label it declares. Emit consults this to
// size the entry block's stack-slot allocation and to resolve array
// element types before a single instruction is built.
type scanResult struct {
	vars        map[string]bool
	arrays      map[string]int // name -> declared dimension count
	labels      map[string]bool
	fileHandles map[string]bool // names bound by OPEN/used by CLOSE/PRINT#/LINE INPUT#, typed ptr regardless of suffix
}

func newScanResult() *scanResult {
	return &scanResult{
		vars:        map[string]bool{},
		arrays:      map[string]int{},
		labels:      map[string]bool{},
		fileHandles: map[string]bool{},
	}
}

// scanProcedure walks body once, in full, to build a scanResult and to
// raise the two checks spec §4.9.3 assigns to scan rather than to the
// verifier: every GOTO names a label declared somewhere in the same
// procedure, and — for a FUNCTION — every reachable path ends in a
// RETURN that carries a value.
func scanProcedure(name string, params []basicast.Param, body []basicast.Stmt, isFunction bool) (*scanResult, []*diag.Diag) {
	res := newScanResult()
	for _, p := range params {
		res.vars[p.Name] = true
	}

	var gotos []*basicast.GotoStmt
	walkStmts(body, res, &gotos)

	var diags []*diag.Diag
	for _, g := range gotos {
		if !res.labels[g.Target] {
			diags = append(diags, diag.Newf(diag.LOW002, g.Loc(), "GOTO %s: no such label declared in %s", g.Target, name))
		}
	}

	if isFunction && !stmtsReturn(body) {
		loc := diag.SourceLoc{}
		if len(body) > 0 {
			loc = body[len(body)-1].Loc()
		}
		diags = append(diags, diag.Newf(diag.LOW001, loc, "FUNCTION %s has a reachable path that never executes RETURN", name))
	}

	return res, diags
}

// diagLow003 builds the diagnostic for a DIM naming more than one
// dimension: the registered array helpers are all single-index, so
// emit has no way to lower a multi-dimensional declaration.
func diagLow003(s *basicast.DimStmt) *diag.Diag {
	return diag.Newf(diag.LOW003, s.Loc(), "array %s: only one-dimensional arrays are supported", s.Name)
}

func walkStmts(stmts []basicast.Stmt, res *scanResult, gotos *[]*basicast.GotoStmt) {
	for _, s := range stmts {
		walkStmt(s, res, gotos)
	}
}

func walkStmt(stmt basicast.Stmt, res *scanResult, gotos *[]*basicast.GotoStmt) {
	switch s := stmt.(type) {
	case *basicast.LabelStmt:
		res.labels[s.Name] = true
	case *basicast.GotoStmt:
		*gotos = append(*gotos, s)
	case *basicast.LetStmt:
		walkLvalue(s.Target, res)
		walkExpr(s.Value, res)
	case *basicast.IfStmt:
		walkExpr(s.Cond, res)
		walkStmts(s.Then, res, gotos)
		for _, ei := range s.ElseIfs {
			walkExpr(ei.Cond, res)
			walkStmts(ei.Body, res, gotos)
		}
		walkStmts(s.Else, res, gotos)
	case *basicast.ForStmt:
		res.vars[s.Var] = true
		walkExpr(s.From, res)
		walkExpr(s.To, res)
		if s.Step != nil {
			walkExpr(s.Step, res)
		}
		walkStmts(s.Body, res, gotos)
	case *basicast.WhileStmt:
		walkExpr(s.Cond, res)
		walkStmts(s.Body, res, gotos)
	case *basicast.PrintStmt:
		for _, a := range s.Args {
			walkExpr(a, res)
		}
	case *basicast.InputStmt:
		walkLvalue(s.Target, res)
	case *basicast.DimStmt:
		res.arrays[s.Name] = len(s.Dims)
		for _, d := range s.Dims {
			walkExpr(d, res)
		}
	case *basicast.ReturnStmt:
		if s.Value != nil {
			walkExpr(s.Value, res)
		}
	case *basicast.CallStmt:
		for _, a := range s.Args {
			walkExpr(a, res)
		}
	case *basicast.OpenStmt:
		walkExpr(s.Path, res)
		markFileHandle(s.Handle, res)
	case *basicast.CloseStmt:
		markFileHandle(s.Handle, res)
	case *basicast.PrintFileStmt:
		markFileHandle(s.Handle, res)
		for _, a := range s.Args {
			walkExpr(a, res)
		}
	case *basicast.LineInputFileStmt:
		markFileHandle(s.Handle, res)
		walkLvalue(s.Target, res)
	}
}

// markFileHandle records a file-handle variable separately from
// res.vars: its IL type is always ptr, never the i64/f64/str suffix
// rule an ordinary scalar would get from its name.
func markFileHandle(n basicast.Node, res *scanResult) {
	switch v := n.(type) {
	case *basicast.Ident:
		res.fileHandles[v.Name] = true
	case *basicast.IndexExpr:
		res.fileHandles[v.Name] = true
	}
}

func walkLvalue(lv basicast.Lvalue, res *scanResult) {
	switch lv := lv.(type) {
	case *basicast.Ident:
		res.vars[lv.Name] = true
	case *basicast.IndexExpr:
		if _, ok := res.arrays[lv.Name]; !ok {
			res.arrays[lv.Name] = len(lv.Index)
		}
		for _, i := range lv.Index {
			walkExpr(i, res)
		}
	}
}

func walkExpr(expr basicast.Expr, res *scanResult) {
	switch e := expr.(type) {
	case *basicast.Ident:
		res.vars[e.Name] = true
	case *basicast.BinaryExpr:
		walkExpr(e.Left, res)
		walkExpr(e.Right, res)
	case *basicast.UnaryExpr:
		walkExpr(e.X, res)
	case *basicast.IndexExpr:
		if _, ok := res.arrays[e.Name]; !ok {
			res.arrays[e.Name] = len(e.Index)
		}
		for _, i := range e.Index {
			walkExpr(i, res)
		}
	case *basicast.CallExpr:
		for _, a := range e.Args {
			walkExpr(a, res)
		}
	}
}

// stmtsReturn reports whether body is guaranteed to execute a
// value-carrying RETURN on every path reachable by falling off its end.
// Classic line-numbered control flow makes a fully precise answer
// effectively unbounded (a GOTO may jump to a label whose own path
// returns), so an unconditional GOTO is conservatively treated as
// satisfying the path it appears on; an IF only satisfies it when every
// arm — including a mandatory ELSE — does, and a FOR/WHILE never does
// by itself since its body may run zero times.
func stmtsReturn(body []basicast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	switch s := body[len(body)-1].(type) {
	case *basicast.ReturnStmt:
		return s.Value != nil
	case *basicast.GotoStmt:
		return true
	case *basicast.IfStmt:
		if len(s.Else) == 0 {
			return false
		}
		if !stmtsReturn(s.Then) {
			return false
		}
		for _, ei := range s.ElseIfs {
			if !stmtsReturn(ei.Body) {
				return false
			}
		}
		return stmtsReturn(s.Else)
	default:
		return false
	}
}
