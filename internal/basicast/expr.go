package basicast

import "github.com/viper-lang/viper/internal/il"

// BinOp is a BASIC binary operator. Division (`/`) and integer
// division (`\`)/`MOD` are kept distinct since they lower differently
// (spec §4.9.4): `/` may promote to f64, `\` and MOD require integer
// operands.
type BinOp uint8

const (
	BAdd BinOp = iota
	BSub
	BMul
	BDiv // "/"
	BIDiv
	BMod
	BAnd
	BOr
	BEq
	BNe
	BLt
	BLe
	BGt
	BGe
	BPow // "^"
)

// UnOp is a BASIC unary operator.
type UnOp uint8

const (
	UNeg UnOp = iota
	UNot
)

// Ident references a resolved variable or parameter by name; its type
// is TypeSuffix(Name).
type Ident struct {
	Name string
	Loc_ il.SourceLoc
}

func (e *Ident) Loc() il.SourceLoc { return e.Loc_ }
func (*Ident) basicExpr()          {}
func (*Ident) basicLvalue()        {}

// IntLit is an integer literal; its IL type is always i64.
type IntLit struct {
	Value int64
	Loc_  il.SourceLoc
}

func (e *IntLit) Loc() il.SourceLoc { return e.Loc_ }
func (*IntLit) basicExpr()          {}

// FloatLit is a floating-point literal; its IL type is always f64.
type FloatLit struct {
	Value float64
	Loc_  il.SourceLoc
}

func (e *FloatLit) Loc() il.SourceLoc { return e.Loc_ }
func (*FloatLit) basicExpr()          {}

// StringLit is a string literal.
type StringLit struct {
	Value string
	Loc_  il.SourceLoc
}

func (e *StringLit) Loc() il.SourceLoc { return e.Loc_ }
func (*StringLit) basicExpr()          {}

// BinaryExpr is a binary operator application.
type BinaryExpr struct {
	Op          BinOp
	Left, Right Expr
	Loc_        il.SourceLoc
}

func (e *BinaryExpr) Loc() il.SourceLoc { return e.Loc_ }
func (*BinaryExpr) basicExpr()          {}

// UnaryExpr is a unary operator application.
type UnaryExpr struct {
	Op   UnOp
	X    Expr
	Loc_ il.SourceLoc
}

func (e *UnaryExpr) Loc() il.SourceLoc { return e.Loc_ }
func (*UnaryExpr) basicExpr()          {}

// IndexExpr reads one element of the array named Name.
type IndexExpr struct {
	Name  string
	Index []Expr
	Loc_  il.SourceLoc
}

func (e *IndexExpr) Loc() il.SourceLoc { return e.Loc_ }
func (*IndexExpr) basicExpr()          {}
func (*IndexExpr) basicLvalue()        {}

// CallExpr invokes either a user FUNCTION (Builtin false) or a BASIC
// builtin (Builtin true, Name one of the ids the builtin registry
// recognizes, e.g. "ABS", "LEN", "SQR"). Frontend semantic analysis is
// responsible for telling the two apart and for validating arity and
// operand types against the builtin registry (spec §4.9.4); lowering
// trusts this flag.
type CallExpr struct {
	Name    string
	Builtin bool
	Args    []Expr
	Loc_    il.SourceLoc
}

func (e *CallExpr) Loc() il.SourceLoc { return e.Loc_ }
func (*CallExpr) basicExpr()          {}
