// Package basicast is the minimal external contract between a BASIC
// frontend and internal/basiclower: the node shapes spec §4.9 names
// (program, procedures, statements, expressions) and the type-suffix
// rule. It defines no lexer, parser, or semantic analyzer — only the
// tree shape lowering consumes, on the assumption that it has already
// been produced by a semantically-analyzed, scope-resolved frontend
// (spec §4.9.1). Nothing here performs IL emission; see basiclower.
package basicast

import "github.com/viper-lang/viper/internal/il"

// Node is the base interface every AST node satisfies.
type Node interface {
	Loc() il.SourceLoc
}

// Stmt is a BASIC statement.
type Stmt interface {
	Node
	basicStmt()
}

// Expr is a BASIC expression.
type Expr interface {
	Node
	basicExpr()
}

// Lvalue is an assignment target: a bare variable or an array element.
type Lvalue interface {
	Node
	basicLvalue()
}

// ProcKind distinguishes a value-returning FUNCTION from a void SUB.
type ProcKind uint8

const (
	ProcSub ProcKind = iota
	ProcFunction
)

// Param is a formal parameter; its IL type is derived from its name's
// type suffix (TypeSuffix), exactly like any other variable.
type Param struct {
	Name string
	Loc_ il.SourceLoc
}

func (p Param) Loc() il.SourceLoc { return p.Loc_ }

// Procedure is one FUNCTION or SUB declaration. A FUNCTION's return
// type is derived from its own name's suffix; a SUB returns void.
type Procedure struct {
	Kind   ProcKind
	Name   string
	Params []Param
	Body   []Stmt
	Loc_   il.SourceLoc
}

func (p *Procedure) Loc() il.SourceLoc { return p.Loc_ }

// Program is a whole semantically-analyzed BASIC unit: the top-level
// program body (lowered to a synthetic @main) plus every FUNCTION/SUB
// declaration, in source order (spec §4.9.2).
type Program struct {
	Procedures []*Procedure
	Main       []Stmt
}
