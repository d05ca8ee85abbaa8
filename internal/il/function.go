package il

// Param is reused for block parameters; FuncParam carries the same
// shape for function parameters so entry-block arity can be compared
// against it directly (spec §3.4: "Entry block parameters must match
// the function parameters by count and type").
type FuncParam struct {
	Name string
	Ty   Type
}

// Function owns its blocks by value; the first block is the entry
// block (spec §3.4).
type Function struct {
	Name    string
	RetTy   Type
	Params  []FuncParam
	Blocks  []BasicBlock
}

// Entry returns the function's entry block, or nil if the function has
// no blocks yet (only valid as a transient construction state).
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return &f.Blocks[0]
}

// BlockByLabel returns the block with the given label and true, or the
// zero value and false if no such block exists.
func (f *Function) BlockByLabel(label string) (*BasicBlock, bool) {
	for i := range f.Blocks {
		if f.Blocks[i].Label == label {
			return &f.Blocks[i], true
		}
	}
	return nil, false
}

// BlockIndex returns the position of the block labeled `label` within
// Blocks, or -1 if not found. Several analyses key caches by index
// rather than label for speed.
func (f *Function) BlockIndex(label string) int {
	for i := range f.Blocks {
		if f.Blocks[i].Label == label {
			return i
		}
	}
	return -1
}

// ParamTypes returns the function's parameter types in order.
func (f *Function) ParamTypes() []Type {
	tys := make([]Type, len(f.Params))
	for i, p := range f.Params {
		tys[i] = p.Ty
	}
	return tys
}
