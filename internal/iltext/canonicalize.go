package iltext

import "github.com/viper-lang/viper/internal/il"

// canonicalizeFunction returns a copy of f with every value ID
// renumbered to a dense, deterministic sequence assigned in declaration
// order (entry to exit block, each block's parameters then its
// instructions) — spec §6.3's canonicalize option. A pass pipeline that
// deletes instructions leaves gaps in the ID space (DCE, SimplifyCFG's
// ParamCanonicalization, ...); printing those gapped IDs verbatim is a
// legitimate, lower-overhead mode (Options.Canonicalize off), but the
// canonical mode closes them so a module's printed form depends only on
// its structure, never on how many values a prior pass happened to
// delete ahead of the ones that remain.
func canonicalizeFunction(f il.Function) il.Function {
	remap := map[uint32]uint32{}
	var next uint32

	assign := func(id uint32) uint32 {
		if newID, ok := remap[id]; ok {
			return newID
		}
		newID := next
		next++
		remap[id] = newID
		return newID
	}

	blocks := make([]il.BasicBlock, len(f.Blocks))
	for bi, blk := range f.Blocks {
		params := make([]il.Param, len(blk.Params))
		for pi, p := range blk.Params {
			p.ID = assign(p.ID)
			params[pi] = p
		}

		instrs := make([]il.Instr, len(blk.Instrs))
		for ii, instr := range blk.Instrs {
			instr.Args = remapValues(instr.Args, assign)
			if instr.BrArgs != nil {
				brArgs := make([][]il.Value, len(instr.BrArgs))
				for ai, args := range instr.BrArgs {
					brArgs[ai] = remapValues(args, assign)
				}
				instr.BrArgs = brArgs
			}
			if instr.HasResult {
				instr.ResultID = assign(instr.ResultID)
			}
			instrs[ii] = instr
		}

		blocks[bi] = blk
		blocks[bi].Params = params
		blocks[bi].Instrs = instrs
	}

	f.Blocks = blocks
	return f
}

// remapValues rewrites every VTemp in vs through assign, which lazily
// allocates a fresh canonical ID for any temp whose declaration this
// walk hasn't reached yet (a branch argument can reference a block
// parameter declared later in block order, e.g. a loop back-edge).
func remapValues(vs []il.Value, assign func(uint32) uint32) []il.Value {
	if len(vs) == 0 {
		return vs
	}
	out := make([]il.Value, len(vs))
	for i, v := range vs {
		if v.Kind == il.VTemp {
			v.ID = assign(v.ID)
		}
		out[i] = v
	}
	return out
}
