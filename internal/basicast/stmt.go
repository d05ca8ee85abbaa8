package basicast

import "github.com/viper-lang/viper/internal/il"

// LabelStmt marks a GOTO target: either a textual label or a line
// number, both carried as their source spelling. Scan populates the
// per-procedure label->block map from these (spec §4.9.5).
type LabelStmt struct {
	Name string
	Loc_ il.SourceLoc
}

func (s *LabelStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*LabelStmt) basicStmt()          {}

// GotoStmt transfers control to Target, a label or line-number spelling
// resolved against the enclosing procedure's label map.
type GotoStmt struct {
	Target string
	Loc_   il.SourceLoc
}

func (s *GotoStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*GotoStmt) basicStmt()          {}

// LetStmt assigns Value to Target (LET is optional in BASIC surface
// syntax but always explicit in the analyzed AST).
type LetStmt struct {
	Target Lvalue
	Value  Expr
	Loc_   il.SourceLoc
}

func (s *LetStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*LetStmt) basicStmt()          {}

// ElseIfClause is one ELSEIF arm of an IfStmt.
type ElseIfClause struct {
	Cond Expr
	Body []Stmt
}

// IfStmt is `IF ... THEN ... ELSEIF ... ELSE ... END IF`.
type IfStmt struct {
	Cond    Expr
	Then    []Stmt
	ElseIfs []ElseIfClause
	Else    []Stmt
	Loc_    il.SourceLoc
}

func (s *IfStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*IfStmt) basicStmt()          {}

// ForStmt is `FOR Var = From TO To [STEP Step] ... NEXT`. Step is nil
// when unspecified (lowering treats that as the literal 1).
type ForStmt struct {
	Var        string
	From, To   Expr
	Step       Expr
	Body       []Stmt
	Loc_       il.SourceLoc
}

func (s *ForStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*ForStmt) basicStmt()          {}

// WhileStmt is `WHILE Cond ... WEND`.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
	Loc_ il.SourceLoc
}

func (s *WhileStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*WhileStmt) basicStmt()          {}

// PrintStmt writes each argument to the terminal in order.
type PrintStmt struct {
	Args []Expr
	Loc_ il.SourceLoc
}

func (s *PrintStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*PrintStmt) basicStmt()          {}

// InputStmt reads one line from the terminal into Target.
type InputStmt struct {
	Prompt string
	Target Lvalue
	Loc_   il.SourceLoc
}

func (s *InputStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*InputStmt) basicStmt()          {}

// DimStmt declares an array. A scalar local never needs a DimStmt;
// lowering's scan pass discovers scalars from every Ident/Lvalue use
// instead, and allocates them a stack slot regardless.
type DimStmt struct {
	Name string
	Dims []Expr
	Loc_ il.SourceLoc
}

func (s *DimStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*DimStmt) basicStmt()          {}

// ReturnStmt is a FUNCTION's `Name = Value` assignment form or an
// explicit RETURN; Value is nil inside a SUB.
type ReturnStmt struct {
	Value Expr
	Loc_  il.SourceLoc
}

func (s *ReturnStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*ReturnStmt) basicStmt()          {}

// CallStmt invokes a SUB (or builtin with no result consumed) as a
// bare statement.
type CallStmt struct {
	Name    string
	Builtin bool
	Args    []Expr
	Loc_    il.SourceLoc
}

func (s *CallStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*CallStmt) basicStmt()          {}

// OpenStmt opens Path in the given mode ("I", "O", or "A") and binds
// the resulting file handle to Handle.
type OpenStmt struct {
	Path   Expr
	Mode   string
	Handle Lvalue
	Loc_   il.SourceLoc
}

func (s *OpenStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*OpenStmt) basicStmt()          {}

// CloseStmt closes a previously opened file handle.
type CloseStmt struct {
	Handle Expr
	Loc_   il.SourceLoc
}

func (s *CloseStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*CloseStmt) basicStmt()          {}

// PrintFileStmt is PRINT redirected to an open file handle.
type PrintFileStmt struct {
	Handle Expr
	Args   []Expr
	Loc_   il.SourceLoc
}

func (s *PrintFileStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*PrintFileStmt) basicStmt()          {}

// LineInputFileStmt is INPUT redirected from an open file handle.
type LineInputFileStmt struct {
	Handle Expr
	Target Lvalue
	Loc_   il.SourceLoc
}

func (s *LineInputFileStmt) Loc() il.SourceLoc { return s.Loc_ }
func (*LineInputFileStmt) basicStmt()          {}
