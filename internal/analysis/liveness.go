package analysis

import "github.com/viper-lang/viper/internal/il"

// Liveness is backward, block-granularity liveness over SSA ids,
// computed to a fixpoint over the CFG.
//
// Two distinct kinds of cross-block value flow exist in this IR (spec
// §3.4): a value may be visible in any block its definition dominates
// (classical dominance-based SSA visibility), or it may be threaded
// explicitly through a successor's block parameter via a branch
// argument. The two need different treatment here: a plain id
// propagates unchanged across an edge, but a block parameter's
// liveness must be translated, at each predecessor, back to whichever
// value that predecessor's branch argument supplies for that
// parameter position — otherwise a value consumed only as a branch
// argument would never be recognized as needed by its producer block.
type Liveness struct {
	fn      *il.Function
	liveIn  []map[uint32]bool
	liveOut []map[uint32]bool
}

// BuildLiveness computes liveness for fn over cfg.
func BuildLiveness(fn *il.Function, cfg *CFG) *Liveness {
	n := len(fn.Blocks)
	lv := &Liveness{fn: fn, liveIn: make([]map[uint32]bool, n), liveOut: make([]map[uint32]bool, n)}
	for i := range lv.liveIn {
		lv.liveIn[i] = map[uint32]bool{}
		lv.liveOut[i] = map[uint32]bool{}
	}

	paramIDs := make([]map[uint32]bool, n)
	uses := make([]map[uint32]bool, n)
	defs := make([]map[uint32]bool, n)
	for i, blk := range fn.Blocks {
		pids := map[uint32]bool{}
		for _, p := range blk.Params {
			pids[p.ID] = true
		}
		paramIDs[i] = pids

		// instrDefs accumulates only instruction-result ids, in scan
		// order; a block's own parameters are deliberately excluded so
		// a reference to one is always treated as a genuine use — that
		// is how a dead block parameter (and the branch argument
		// feeding it) gets discovered as removable.
		u, instrDefs := map[uint32]bool{}, map[uint32]bool{}
		for idx := range blk.Instrs {
			instr := &blk.Instrs[idx]
			instr.Uses(func(v il.Value) {
				if !instrDefs[v.ID] {
					u[v.ID] = true
				}
			})
			if instr.HasResult {
				instrDefs[instr.ResultID] = true
			}
		}
		d := map[uint32]bool{}
		for id := range pids {
			d[id] = true
		}
		for id := range instrDefs {
			d[id] = true
		}
		uses[i], defs[i] = u, d
	}

	changed := true
	for changed {
		changed = false
		for _, b := range reversedRPO(cfg) {
			out := map[uint32]bool{}
			term := fn.Blocks[b].Terminator()
			succs := cfg.Successors(b)
			for si, s := range succs {
				var args []il.Value
				if term != nil && si < len(term.BrArgs) {
					args = term.BrArgs[si]
				}
				for id := range lv.liveIn[s] {
					if paramIDs[s][id] {
						continue // translated below via the branch-argument vector
					}
					out[id] = true // dominance-visible value, same id across the edge
				}
				for k, p := range fn.Blocks[s].Params {
					if !lv.liveIn[s][p.ID] || k >= len(args) {
						continue
					}
					if args[k].Kind == il.VTemp {
						out[args[k].ID] = true
					}
				}
			}

			in := map[uint32]bool{}
			for id := range uses[b] {
				in[id] = true
			}
			for id := range out {
				if !defs[b][id] {
					in[id] = true
				}
			}
			if !mapEqual(in, lv.liveIn[b]) || !mapEqual(out, lv.liveOut[b]) {
				lv.liveIn[b] = in
				lv.liveOut[b] = out
				changed = true
			}
		}
	}
	return lv
}

func reversedRPO(cfg *CFG) []int {
	rpo := cfg.RPO()
	rev := make([]int, len(rpo))
	for i, b := range rpo {
		rev[len(rpo)-1-i] = b
	}
	return rev
}

func mapEqual(a, b map[uint32]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// LiveIn reports whether id is live at the start of block index b.
func (lv *Liveness) LiveIn(b int, id uint32) bool { return lv.liveIn[b][id] }

// LiveOut reports whether id is live at the end of block index b.
func (lv *Liveness) LiveOut(b int, id uint32) bool { return lv.liveOut[b][id] }
