package transform

import (
	"sort"

	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/ilrt"
	"github.com/viper-lang/viper/internal/passmgr"
)

func init() {
	passmgr.Register(LICMPass{})
}

// LICMPass hoists an instruction out of its innermost loop when it is
// side-effect-free per opcode metadata, every operand is defined
// outside the loop or is itself loop-invariant, and it cannot trap
// (spec §4.8.7). It relies on each loop already having a unique
// preheader, the shape LoopSimplify establishes, to know where to put
// a hoisted instruction; a loop whose header still has more than one
// outside predecessor is left alone. Moving an instruction between
// existing blocks changes neither the block set nor any edge, so CFG,
// Dominators, and LoopInfo all remain valid across the whole pass.
type LICMPass struct{}

func (LICMPass) Name() string        { return "licm" }
func (LICMPass) Description() string { return "hoists loop-invariant, side-effect-free instructions to loop preheaders" }
func (LICMPass) Preserves() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG, passmgr.AnalysisDominators, passmgr.AnalysisLoopInfo}
}

func (LICMPass) RunFunction(fn *il.Function, cache *passmgr.AnalysisCache, fi int) bool {
	cfg := cache.CFG(fi, fn)
	dom := cache.Dominators(fi, fn)
	li := analysis.BuildLoopInfo(cfg, dom)

	headers := li.Headers()
	if len(headers) == 0 {
		return false
	}

	changed := false
	bound := 4
	for bi := range fn.Blocks {
		bound += len(fn.Blocks[bi].Instrs)
	}

	for round := 0; round < bound; round++ {
		roundChanged := false
		defBlock := blockOfEachValue(fn)

		for _, h := range headers {
			loop, _ := li.Loop(h)
			preheader, ok := uniquePreheader(cfg, loop)
			if !ok {
				continue
			}
			if hoistLoop(fn, loop, preheader, defBlock) {
				roundChanged = true
			}
		}

		if !roundChanged {
			break
		}
		changed = true
	}

	return changed
}

// uniquePreheader returns loop's single predecessor lying outside the
// loop, if it has exactly one.
func uniquePreheader(cfg *analysis.CFG, loop *analysis.Loop) (int, bool) {
	outside := -1
	count := 0
	for _, p := range cfg.Predecessors(loop.Header) {
		if !loop.Blocks[p] {
			count++
			outside = p
		}
	}
	if count != 1 {
		return 0, false
	}
	return outside, true
}

// blockOfEachValue maps every SSA id currently defined in fn (block
// parameters and instruction results) to the index of the block that
// defines it.
func blockOfEachValue(fn *il.Function) map[uint32]int {
	defBlock := map[uint32]int{}
	for bi := range fn.Blocks {
		for _, p := range fn.Blocks[bi].Params {
			defBlock[p.ID] = bi
		}
		for ii := range fn.Blocks[bi].Instrs {
			instr := &fn.Blocks[bi].Instrs[ii]
			if instr.HasResult {
				defBlock[instr.ResultID] = bi
			}
		}
	}
	return defBlock
}

// hoistLoop moves every instruction in loop it can prove invariant into
// preheader, just before its terminator, repeating within the loop's
// own blocks until no further instruction qualifies (so a chain of
// invariant computations hoists in one call regardless of the order its
// instructions appear in).
func hoistLoop(fn *il.Function, loop *analysis.Loop, preheader int, defBlock map[uint32]int) bool {
	blocks := make([]int, 0, len(loop.Blocks))
	for b := range loop.Blocks {
		blocks = append(blocks, b)
	}
	sort.Ints(blocks)

	invariant := map[uint32]bool{}
	preBlk := &fn.Blocks[preheader]
	anyHoisted := false

	for {
		hoistedThisPass := false
		for _, bi := range blocks {
			blk := &fn.Blocks[bi]
			kept := blk.Instrs[:0]
			for _, instr := range blk.Instrs {
				if instr.IsTerminator() || !canHoist(instr, loop, invariant, defBlock) {
					kept = append(kept, instr)
					continue
				}
				term := preBlk.Instrs[len(preBlk.Instrs)-1]
				preBlk.Instrs[len(preBlk.Instrs)-1] = instr
				preBlk.Instrs = append(preBlk.Instrs, term)
				invariant[instr.ResultID] = true
				defBlock[instr.ResultID] = preheader
				hoistedThisPass, anyHoisted = true, true
			}
			blk.Instrs = kept
		}
		if !hoistedThisPass {
			break
		}
	}

	return anyHoisted
}

// canHoist reports whether instr may be moved to its loop's preheader:
// it must produce a value (never a bare store or void call), be free of
// any effect beyond that result (or, for a call, invoke a runtime
// facility known pure), and every value it uses must already be proven
// invariant — defined outside the loop entirely or hoisted earlier in
// this same pass.
func canHoist(instr il.Instr, loop *analysis.Loop, invariant map[uint32]bool, defBlock map[uint32]int) bool {
	if !instr.HasResult {
		return false
	}
	if instr.Op == il.OpCall {
		if !ilrt.IsPure(instr.Callee) {
			return false
		}
	} else if instr.Info().Effect != il.EffectPure {
		return false
	}

	ok := true
	instr.Uses(func(v il.Value) {
		if !ok {
			return
		}
		db, known := defBlock[v.ID]
		if !known {
			ok = false
			return
		}
		if loop.Blocks[db] && !invariant[v.ID] {
			ok = false
		}
	})
	return ok
}
