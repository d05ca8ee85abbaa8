package il

// SourceLoc is a location in a registered source file, (fileID, line,
// column). fileID == 0 denotes an unregistered location (spec §4.4).
type SourceLoc struct {
	FileID uint32
	Line   uint32
	Col    uint32
}

// Valid reports whether loc refers to a registered file.
func (loc SourceLoc) Valid() bool { return loc.FileID != 0 }

// Instr is a single IL instruction (spec §3.3). Blocks own their
// instructions by value.
type Instr struct {
	Op Opcode

	// HasResult mirrors OpcodeInfo.HasResult but is cached on the
	// instruction because result presence for Call depends on the
	// callee's return type (void calls have no result id).
	HasResult bool
	ResultID  uint32
	ResultTy  Type

	// Operands in declaration order.
	Args []Value

	// Callee is set for OpCall: the name of the Extern or Function invoked.
	Callee string

	// Succs holds successor block labels in order (1 for br, 2 for
	// cbr: [then, else]).
	Succs []string

	// BrArgs holds one branch-argument vector per successor, aligned
	// with Succs by index.
	BrArgs [][]Value

	Loc SourceLoc
}

// Info returns this instruction's opcode metadata row.
func (i *Instr) Info() OpcodeInfo {
	info, _ := LookupOpcode(i.Op)
	return info
}

// Result returns the instruction's result as a Value and true, or the
// zero Value and false if the instruction has no result.
func (i *Instr) Result() (Value, bool) {
	if !i.HasResult {
		return Value{}, false
	}
	return Temp(i.ResultID, i.ResultTy), true
}

// Uses calls visit once per SSA temp referenced by the instruction: its
// plain operands and every branch-argument value. Order matches
// declaration order (operands first, then successors in order, then
// branch args in order within each successor).
func (i *Instr) Uses(visit func(Value)) {
	for _, a := range i.Args {
		if a.Kind == VTemp {
			visit(a)
		}
	}
	for _, args := range i.BrArgs {
		for _, a := range args {
			if a.Kind == VTemp {
				visit(a)
			}
		}
	}
}

// ReplaceUses rewrites every occurrence of a temp with id `from` to the
// value `to`, across operands and branch arguments. Used by the uniform
// replaceAll helper transforms rely on (spec §4.8.1).
func (i *Instr) ReplaceUses(from uint32, to Value) {
	for idx, a := range i.Args {
		if a.Kind == VTemp && a.ID == from {
			i.Args[idx] = to
		}
	}
	for bi, args := range i.BrArgs {
		for ai, a := range args {
			if a.Kind == VTemp && a.ID == from {
				i.BrArgs[bi][ai] = to
			}
		}
	}
}

// IsTerminator reports whether this instruction is the required
// block-ending terminator.
func (i *Instr) IsTerminator() bool { return i.Info().Terminator }
