package transform

import (
	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/passmgr"
)

func init() {
	passmgr.Register(SimplifyCFGPass{})
}

// SimplifyCFGPass runs the five idempotent subpasses of spec §4.8.6, in
// the order the spec names them, each rebuilding the CFG fresh since
// the previous subpass may have changed the block set: BlockMerging,
// BranchFolding, ForwardingElimination, ParamCanonicalization, and
// ReachabilityCleanup last.
type SimplifyCFGPass struct{}

func (SimplifyCFGPass) Name() string        { return "simplifycfg" }
func (SimplifyCFGPass) Description() string { return "merges, folds, and forwards blocks; drops unreachable ones" }
func (SimplifyCFGPass) Preserves() []passmgr.AnalysisKind { return nil }

func (SimplifyCFGPass) RunFunction(fn *il.Function, cache *passmgr.AnalysisCache, fi int) bool {
	changed := false
	changed = mergeBlocks(fn) || changed
	changed = foldConstantBranches(fn) || changed
	changed = eliminateForwardingBlocks(fn) || changed
	changed = canonicalizeParams(fn) || changed
	changed = cleanUnreachable(fn) || changed
	return changed
}

// mergeBlocks folds a block into its unique predecessor when the
// predecessor's only successor is this block and the branch-argument
// vector feeding it matches the block's own parameters one for one.
func mergeBlocks(fn *il.Function) bool {
	changed := false
	for {
		cfg := analysis.BuildCFG(fn)
		merged := false
		for bi := 1; bi < len(fn.Blocks); bi++ { // never merge the entry block away
			blk := &fn.Blocks[bi]
			preds := cfg.Predecessors(bi)
			if len(preds) != 1 {
				continue
			}
			predIdx := preds[0]
			if predIdx == bi {
				continue
			}
			pblk := &fn.Blocks[predIdx]
			pterm := pblk.Terminator()
			if pterm == nil || pterm.Op != il.OpBr || pterm.Succs[0] != blk.Label {
				continue
			}
			args := pterm.BrArgs[0]
			if len(args) != len(blk.Params) {
				continue
			}

			replace := map[uint32]il.Value{}
			for i, p := range blk.Params {
				replace[p.ID] = args[i]
			}
			body := append([]il.Instr(nil), blk.Instrs...)
			for i := range body {
				for from, to := range replace {
					body[i].ReplaceUses(from, to)
				}
			}
			pblk.Instrs = append(pblk.Instrs[:len(pblk.Instrs)-1], body...)

			fn.Blocks = append(fn.Blocks[:bi], fn.Blocks[bi+1:]...)
			merged, changed = true, true
			break
		}
		if !merged {
			break
		}
	}
	return changed
}

// eliminateForwardingBlocks removes a non-entry block whose only
// content is a terminator forwarding its own parameters (or
// already-dominating values) to a single successor, retargeting every
// predecessor directly and composing argument vectors.
func eliminateForwardingBlocks(fn *il.Function) bool {
	changed := false
	for {
		cfg := analysis.BuildCFG(fn)
		removed := false
		for bi := 1; bi < len(fn.Blocks); bi++ {
			blk := fn.Blocks[bi]
			if len(blk.Instrs) != 1 {
				continue
			}
			term := blk.Instrs[0]
			if term.Op != il.OpBr || term.Succs[0] == blk.Label {
				continue
			}
			argsY := term.BrArgs[0]

			preds := cfg.Predecessors(bi)
			for _, predIdx := range preds {
				pblk := &fn.Blocks[predIdx]
				pterm := pblk.Terminator()
				for si, succ := range pterm.Succs {
					if succ != blk.Label {
						continue
					}
					predArgs := pterm.BrArgs[si]
					sub := map[uint32]il.Value{}
					for i, p := range blk.Params {
						if i < len(predArgs) {
							sub[p.ID] = predArgs[i]
						}
					}
					newArgs := make([]il.Value, len(argsY))
					for k, v := range argsY {
						if v.Kind == il.VTemp {
							if r, ok := sub[v.ID]; ok {
								v = r
							}
						}
						newArgs[k] = v
					}
					pterm.Succs[si] = term.Succs[0]
					pterm.BrArgs[si] = newArgs
				}
			}

			fn.Blocks = append(fn.Blocks[:bi], fn.Blocks[bi+1:]...)
			removed, changed = true, true
			break
		}
		if !removed {
			break
		}
	}
	return changed
}

// canonicalizeParams drops unused block parameters and their matching
// branch-argument columns, sharing the removal machinery DCE uses
// (spec §4.8.6's removal-order determinism is satisfied by iterating
// blocks and parameters in declaration order).
func canonicalizeParams(fn *il.Function) bool {
	uses := map[uint32]int{}
	for bi := range fn.Blocks {
		for ii := range fn.Blocks[bi].Instrs {
			fn.Blocks[bi].Instrs[ii].Uses(func(v il.Value) { uses[v.ID]++ })
		}
	}
	return dropUnusedParams(fn, uses)
}

// cleanUnreachable removes blocks no edge from the entry ever reaches.
func cleanUnreachable(fn *il.Function) bool {
	cfg := analysis.BuildCFG(fn)
	kept := fn.Blocks[:0]
	changed := false
	for i, blk := range fn.Blocks {
		if i != 0 && !cfg.Reachable(i) {
			changed = true
			continue
		}
		kept = append(kept, blk)
	}
	fn.Blocks = kept
	return changed
}
