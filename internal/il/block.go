package il

// Param is a typed basic-block parameter, the IL's substitute for phi
// nodes (spec §3.4, §9). Incoming values are supplied by the
// predecessor's branch-argument vector for the corresponding successor.
// ID is the parameter's SSA identity: a block parameter is itself a
// Value, so declaration sites and use sites must print the same way.
type Param struct {
	Name string
	Ty   Type
	ID   uint32
}

// Value returns the Value this parameter denotes within its function.
func (p Param) Value() Value { return Temp(p.ID, p.Ty) }

// BasicBlock is a label, an ordered parameter list, and an ordered,
// terminator-final instruction list. Functions own blocks by value.
type BasicBlock struct {
	Label   string
	Params  []Param
	Instrs  []Instr
}

// Terminator returns the block's final instruction, or nil if the block
// is empty (a transient state during construction; never valid in a
// verified module).
func (b *BasicBlock) Terminator() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	return &b.Instrs[len(b.Instrs)-1]
}

// ParamNames returns the block's parameter names in order.
func (b *BasicBlock) ParamNames() []string {
	names := make([]string, len(b.Params))
	for i, p := range b.Params {
		names[i] = p.Name
	}
	return names
}

// ParamTypes returns the block's parameter types in order.
func (b *BasicBlock) ParamTypes() []Type {
	tys := make([]Type, len(b.Params))
	for i, p := range b.Params {
		tys[i] = p.Ty
	}
	return tys
}
