package transform

import (
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/ilrt"
	"github.com/viper-lang/viper/internal/passmgr"
)

func init() {
	passmgr.Register(DCEPass{})
}

// DCEPass removes instructions whose results have no remaining uses
// and no observable side effect, erases loads/stores/allocas whose
// effects are wholly unobserved under a conservative single-alloca
// aliasing model, and drops unused block parameters together with
// their matching branch-argument columns (spec §4.8.2). Entry-block
// parameters are never dropped: they are tied one-to-one to the
// function's own signature (spec §3.4), not substitutes for phi nodes.
type DCEPass struct{}

func (DCEPass) Name() string        { return "dce" }
func (DCEPass) Description() string { return "removes dead instructions and block parameters" }
func (DCEPass) Preserves() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG, passmgr.AnalysisDominators}
}

func (DCEPass) RunFunction(fn *il.Function, cache *passmgr.AnalysisCache, fi int) bool {
	changed := false
	for dceSweep(fn) {
		changed = true
	}
	return changed
}

// dceSweep runs one round of use counting followed by removal; the
// caller repeats until a round makes no change (removing one dead
// value can make its sole consumer dead in turn).
func dceSweep(fn *il.Function) bool {
	uses := map[uint32]int{}
	storeOnly := map[uint32]bool{}
	seenAnyUse := map[uint32]bool{}

	countUse := func(id uint32, asStoreTarget bool) {
		if !seenAnyUse[id] {
			seenAnyUse[id] = true
			storeOnly[id] = true
		}
		uses[id]++
		if !asStoreTarget {
			storeOnly[id] = false
		}
	}

	for bi := range fn.Blocks {
		for ii := range fn.Blocks[bi].Instrs {
			instr := &fn.Blocks[bi].Instrs[ii]
			if instr.Op == il.OpStore && len(instr.Args) == 2 {
				if instr.Args[0].Kind == il.VTemp {
					countUse(instr.Args[0].ID, true)
				}
				if instr.Args[1].Kind == il.VTemp {
					countUse(instr.Args[1].ID, false)
				}
				continue
			}
			instr.Uses(func(v il.Value) { countUse(v.ID, false) })
		}
	}

	removedAny := false

	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		kept := blk.Instrs[:0]
		for _, instr := range blk.Instrs {
			if instr.IsTerminator() || !dceCanRemove(instr, uses, storeOnly) {
				kept = append(kept, instr)
				continue
			}
			removedAny = true
		}
		blk.Instrs = kept
	}

	// An alloca whose every remaining use was a just-erased store (or
	// that had no uses at all) is now dead in turn.
	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		kept := blk.Instrs[:0]
		for _, instr := range blk.Instrs {
			if instr.Op == il.OpAlloca && instr.HasResult && (!seenAnyUse[instr.ResultID] || storeOnly[instr.ResultID]) {
				removedAny = true
				continue
			}
			kept = append(kept, instr)
		}
		blk.Instrs = kept
	}

	if dropUnusedParams(fn, uses) {
		removedAny = true
	}

	return removedAny
}

func dceCanRemove(instr il.Instr, uses map[uint32]int, storeOnly map[uint32]bool) bool {
	switch instr.Op {
	case il.OpStore:
		if len(instr.Args) != 2 || instr.Args[0].Kind != il.VTemp {
			return false
		}
		return storeOnly[instr.Args[0].ID] // nothing ever reads the target: the write is unobserved
	case il.OpAlloca:
		return false // handled once its stores are already gone, above
	case il.OpCall:
		if !instr.HasResult {
			return false // a void call's effect is never provably unobserved here
		}
		return uses[instr.ResultID] == 0 && ilrt.IsPure(instr.Callee)
	default:
		if !instr.HasResult {
			return false
		}
		info := instr.Info()
		if info.Effect != il.EffectPure && instr.Op != il.OpLoad {
			return false
		}
		return uses[instr.ResultID] == 0
	}
}

// dropUnusedParams removes block parameters with zero remaining uses
// (skipping the entry block) and shrinks every predecessor's matching
// branch-argument column so the vectors stay aligned with Params.
func dropUnusedParams(fn *il.Function, uses map[uint32]int) bool {
	changed := false
	for bi := range fn.Blocks {
		if bi == 0 {
			continue // entry parameters mirror the function signature
		}
		blk := &fn.Blocks[bi]
		if len(blk.Params) == 0 {
			continue
		}
		drop := map[int]bool{}
		for pi, p := range blk.Params {
			if uses[p.ID] == 0 {
				drop[pi] = true
			}
		}
		if len(drop) == 0 {
			continue
		}
		changed = true

		kept := blk.Params[:0]
		for pi, p := range blk.Params {
			if !drop[pi] {
				kept = append(kept, p)
			}
		}
		blk.Params = kept

		for obi := range fn.Blocks {
			term := fn.Blocks[obi].Terminator()
			if term == nil {
				continue
			}
			for si, label := range term.Succs {
				if label != blk.Label {
					continue
				}
				args := term.BrArgs[si]
				newArgs := args[:0]
				for ai, a := range args {
					if !drop[ai] {
						newArgs = append(newArgs, a)
					}
				}
				term.BrArgs[si] = newArgs
			}
		}
	}
	return changed
}
