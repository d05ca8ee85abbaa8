package transform

import (
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/passmgr"
)

func init() {
	passmgr.Register(SCCPPass{})
}

// SCCPPass is Sparse Conditional Constant Propagation (spec §4.8.4): a
// joint lattice over value constantness and edge executability, run to
// a fixpoint, followed by rewriting constant-valued instructions,
// folding branches whose predicate became constant, and pruning blocks
// that no executable edge ever reaches. Unlike ConstFold, SCCP reasons
// about which edges actually execute, so it sees through branches
// ConstFold's purely local view cannot.
type SCCPPass struct{}

func (SCCPPass) Name() string        { return "sccp" }
func (SCCPPass) Description() string { return "propagates constants through reachable control flow" }
func (SCCPPass) Preserves() []passmgr.AnalysisKind { return nil } // may prune blocks

type sccpState int

const (
	sccpUndef sccpState = iota
	sccpConst
	sccpOverdef
)

type sccpValue struct {
	state sccpState
	val   il.Value
}

func meetSCCP(a, b sccpValue) sccpValue {
	if a.state == sccpUndef {
		return b
	}
	if b.state == sccpUndef {
		return a
	}
	if a.state == sccpOverdef || b.state == sccpOverdef {
		return sccpValue{state: sccpOverdef}
	}
	if a.val == b.val {
		return a
	}
	return sccpValue{state: sccpOverdef}
}

func (SCCPPass) RunFunction(fn *il.Function, cache *passmgr.AnalysisCache, fi int) bool {
	if len(fn.Blocks) == 0 {
		return false
	}

	lattice := map[uint32]sccpValue{}
	blockExec := map[string]bool{fn.Blocks[0].Label: true}
	edgeExec := map[sccpEdge]bool{}

	eval := func(v il.Value) sccpValue {
		if v.IsConst() {
			return sccpValue{state: sccpConst, val: v}
		}
		if lv, ok := lattice[v.ID]; ok {
			return lv
		}
		return sccpValue{state: sccpUndef}
	}

	bound := 4
	for bi := range fn.Blocks {
		bound += len(fn.Blocks[bi].Instrs) + len(fn.Blocks[bi].Params)
	}

	changed := true
	for round := 0; changed && round < bound; round++ {
		changed = false

		for bi := range fn.Blocks {
			blk := &fn.Blocks[bi]
			if !blockExec[blk.Label] {
				continue
			}

			for pi, p := range blk.Params {
				merged := sccpValue{state: sccpUndef}
				for si := range fn.Blocks {
					term := fn.Blocks[si].Terminator()
					if term == nil {
						continue
					}
					for succIdx, label := range term.Succs {
						if label != blk.Label || !edgeExec[sccpEdge{fn.Blocks[si].Label, succIdx}] {
							continue
						}
						if pi < len(term.BrArgs[succIdx]) {
							merged = meetSCCP(merged, eval(term.BrArgs[succIdx][pi]))
						}
					}
				}
				if old, ok := lattice[p.ID]; !ok || old != merged {
					lattice[p.ID] = merged
					changed = true
				}
			}

			for ii := range blk.Instrs {
				instr := &blk.Instrs[ii]
				switch instr.Op {
				case il.OpBr:
					if markEdge(edgeExec, blk.Label, 0, blockExec, instr.Succs[0]) {
						changed = true
					}
				case il.OpCBr:
					pred := eval(instr.Args[0])
					switch pred.state {
					case sccpConst:
						taken := 1
						if pred.val.Int != 0 {
							taken = 0
						}
						if markEdge(edgeExec, blk.Label, taken, blockExec, instr.Succs[taken]) {
							changed = true
						}
					case sccpOverdef:
						if markEdge(edgeExec, blk.Label, 0, blockExec, instr.Succs[0]) {
							changed = true
						}
						if markEdge(edgeExec, blk.Label, 1, blockExec, instr.Succs[1]) {
							changed = true
						}
					}
				case il.OpRet, il.OpTrap:
					// no successors
				default:
					if !instr.HasResult {
						continue
					}
					nv := evalInstr(instr, eval)
					if old, ok := lattice[instr.ResultID]; !ok || old != nv {
						lattice[instr.ResultID] = nv
						changed = true
					}
				}
			}
		}
	}

	return rewriteSCCP(fn, lattice, blockExec)
}

type sccpEdge struct {
	src     string
	succIdx int
}

func markEdge(edgeExec map[sccpEdge]bool, src string, succIdx int, blockExec map[string]bool, dst string) bool {
	key := sccpEdge{src, succIdx}
	changed := false
	if !edgeExec[key] {
		edgeExec[key] = true
		changed = true
	}
	if !blockExec[dst] {
		blockExec[dst] = true
		changed = true
	}
	return changed
}

// evalInstr computes the lattice value of a non-terminator instruction
// from its operands' current lattice values. Calls are always overdef:
// folding a pure call whose arguments are now known-constant is
// ConstFold's job, run separately in the pipeline.
func evalInstr(instr *il.Instr, eval func(il.Value) sccpValue) sccpValue {
	if instr.Op == il.OpAlloca || instr.Op == il.OpLoad || instr.Op == il.OpStore || instr.Op == il.OpCall {
		return sccpValue{state: sccpOverdef}
	}

	args := make([]sccpValue, len(instr.Args))
	anyOverdef, allConst := false, true
	for i, a := range instr.Args {
		args[i] = eval(a)
		switch args[i].state {
		case sccpOverdef:
			anyOverdef = true
			allConst = false
		case sccpUndef:
			allConst = false
		}
	}
	if anyOverdef {
		return sccpValue{state: sccpOverdef}
	}
	if !allConst {
		return sccpValue{state: sccpUndef}
	}

	constArgs := make([]il.Value, len(instr.Args))
	for i, a := range args {
		constArgs[i] = a.val
	}
	synth := *instr
	synth.Args = constArgs
	v, ok := foldInstr(&synth)
	if !ok {
		return sccpValue{state: sccpOverdef}
	}
	return sccpValue{state: sccpConst, val: v}
}

// constValueOf reports the constant value v denotes, whether it is
// already a literal or a temp the lattice resolved to a constant.
func constValueOf(v il.Value, resolved map[uint32]il.Value) (il.Value, bool) {
	if v.IsConst() {
		return v, true
	}
	c, ok := resolved[v.ID]
	return c, ok
}

func rewriteSCCP(fn *il.Function, lattice map[uint32]sccpValue, blockExec map[string]bool) bool {
	changed := false

	resolved := map[uint32]il.Value{}
	for id, lv := range lattice {
		if lv.state == sccpConst {
			resolved[id] = lv.val
		}
	}

	for _, blk := range fn.Blocks {
		if !blockExec[blk.Label] {
			changed = true
			continue
		}
		for ii := range blk.Instrs {
			instr := &blk.Instrs[ii]
			if instr.Op == il.OpCBr {
				if pred, ok := constValueOf(instr.Args[0], resolved); ok {
					taken := 1
					if pred.Int != 0 {
						taken = 0
					}
					instr.Op = il.OpBr
					instr.Args = nil
					instr.Succs = []string{instr.Succs[taken]}
					instr.BrArgs = [][]il.Value{instr.BrArgs[taken]}
					changed = true
				}
			}
			for from, to := range resolved {
				instr.ReplaceUses(from, to)
			}
		}
	}

	if !changed && len(resolved) == 0 {
		return false
	}

	kept := fn.Blocks[:0]
	for _, blk := range fn.Blocks {
		if !blockExec[blk.Label] {
			continue
		}
		b := blk
		filtered := b.Instrs[:0]
		for _, instr := range b.Instrs {
			if instr.HasResult {
				if _, ok := resolved[instr.ResultID]; ok {
					continue
				}
			}
			filtered = append(filtered, instr)
		}
		b.Instrs = filtered
		kept = append(kept, b)
	}
	fn.Blocks = kept

	return true
}
