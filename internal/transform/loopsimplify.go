package transform

import (
	"fmt"

	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/passmgr"
)

func init() {
	passmgr.Register(LoopSimplifyPass{})
}

// LoopSimplifyPass normalizes every natural loop to a unique preheader
// and a single back edge (spec §4.8.7), inserting forwarding blocks
// where a header is entered from more than one outside predecessor or
// re-entered along more than one back edge. LICM depends on this shape:
// a unique preheader is where a hoisted instruction is placed.
type LoopSimplifyPass struct{}

func (LoopSimplifyPass) Name() string        { return "loopsimplify" }
func (LoopSimplifyPass) Description() string { return "gives every natural loop a unique preheader and single latch" }
func (LoopSimplifyPass) Preserves() []passmgr.AnalysisKind { return nil }

func (LoopSimplifyPass) RunFunction(fn *il.Function, cache *passmgr.AnalysisCache, fi int) bool {
	changed := false
	for {
		cfg := analysis.BuildCFG(fn)
		dom := analysis.BuildDominators(cfg)
		li := analysis.BuildLoopInfo(cfg, dom)

		progress := false
		for _, h := range li.Headers() {
			loop, _ := li.Loop(h)
			var outside, inside []int
			for _, p := range cfg.Predecessors(h) {
				if loop.Blocks[p] {
					inside = append(inside, p)
				} else {
					outside = append(outside, p)
				}
			}
			if len(outside) > 1 {
				insertForwarder(fn, h, outside, ".preheader")
				progress, changed = true, true
				break
			}
			if len(inside) > 1 {
				insertForwarder(fn, h, inside, ".latch")
				progress, changed = true, true
				break
			}
		}
		if !progress {
			break
		}
	}
	return changed
}

// insertForwarder inserts a fresh block unconditionally branching to
// the block at headerIdx, retargets every predecessor listed in preds
// from the header to the new block (their branch-argument vectors are
// unchanged, since it is exactly those values the new block now
// receives), and has the new block forward its own parameters, mirrored
// from the header's, back to the header.
func insertForwarder(fn *il.Function, headerIdx int, preds []int, suffix string) {
	header := &fn.Blocks[headerIdx]
	label := freshLabel(fn, header.Label+suffix)
	nextID := nextFreeID(fn)

	params := make([]il.Param, len(header.Params))
	args := make([]il.Value, len(header.Params))
	for i, hp := range header.Params {
		pid := nextID
		nextID++
		params[i] = il.Param{Name: hp.Name, Ty: hp.Ty, ID: pid}
		args[i] = params[i].Value()
	}

	fwd := il.BasicBlock{
		Label:  label,
		Params: params,
		Instrs: []il.Instr{{
			Op:     il.OpBr,
			Succs:  []string{header.Label},
			BrArgs: [][]il.Value{args},
		}},
	}

	for _, p := range preds {
		term := fn.Blocks[p].Terminator()
		for si, succ := range term.Succs {
			if succ == header.Label {
				term.Succs[si] = label
			}
		}
	}

	// Appended after every existing block: block 0 must stay the entry
	// block, and nothing else in this IR depends on block order.
	fn.Blocks = append(fn.Blocks, fwd)
}

// freshLabel returns base if no block already carries that label, or
// base suffixed with the smallest non-negative integer that makes it
// unique otherwise.
func freshLabel(fn *il.Function, base string) string {
	if _, ok := fn.BlockByLabel(base); !ok {
		return base
	}
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if _, ok := fn.BlockByLabel(candidate); !ok {
			return candidate
		}
	}
}
